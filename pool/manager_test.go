package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeClient struct {
	closes   atomic.Int32
	closeErr error
}

func (c *fakeClient) Close() error {
	c.closes.Add(1)
	return c.closeErr
}

type fakeFactory struct {
	mu      sync.Mutex
	delay   time.Duration
	err     error
	creates int
	clients []*fakeClient
}

func (f *fakeFactory) Create(ctx context.Context) (Client, error) {
	f.mu.Lock()
	f.creates++
	delay, err := f.delay, f.err
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	c := &fakeClient{}
	f.mu.Lock()
	f.clients = append(f.clients, c)
	f.mu.Unlock()
	return c, nil
}

func (f *fakeFactory) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *fakeFactory) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func TestGetConcurrentSingleConstruction(t *testing.T) {
	f := &fakeFactory{delay: 50 * time.Millisecond}
	m := New(f)

	var wg sync.WaitGroup
	clients := make([]Client, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := m.Get(context.Background(), "a")
			require.NoError(t, err)
			clients[i] = c
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.created(), "factory must run exactly once per key")
	assert.Same(t, clients[0], clients[1], "both callers must observe the same handle")
	assert.Equal(t, 2, m.Stats()["a"].Refcount)
}

func TestGetReusesAcrossKeys(t *testing.T) {
	f := &fakeFactory{}
	m := New(f)
	ctx := context.Background()

	a1, err := m.Get(ctx, "a")
	require.NoError(t, err)
	b, err := m.Get(ctx, "b")
	require.NoError(t, err)
	a2, err := m.Get(ctx, "a")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, f.created())

	stats := m.Stats()
	assert.Equal(t, 2, stats["a"].Refcount)
	assert.Equal(t, 1, stats["b"].Refcount)
}

func TestReleaseUnknownKeyIsNoOp(t *testing.T) {
	m := New(&fakeFactory{})

	assert.NotPanics(t, func() { m.Release("missing-key") })
	assert.Empty(t, m.Stats())
}

func TestReleaseNeverGoesNegative(t *testing.T) {
	m := New(&fakeFactory{}, WithClock(newFakeClock()))

	_, err := m.Get(context.Background(), "a")
	require.NoError(t, err)

	m.Release("a")
	m.Release("a")
	m.Release("a")

	assert.Equal(t, 0, m.Stats()["a"].Refcount)
}

func TestRefcountAccounting(t *testing.T) {
	m := New(&fakeFactory{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := m.Get(ctx, "a")
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		m.Release("a")
	}

	assert.Equal(t, 2, m.Stats()["a"].Refcount)
}

func TestCreationFailureNotCached(t *testing.T) {
	f := &fakeFactory{err: errors.New("store unreachable")}
	m := New(f)
	ctx := context.Background()

	_, err := m.Get(ctx, "b")
	require.Error(t, err)

	var cerr *CreationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "b", cerr.Key)
	assert.NotContains(t, m.Stats(), "b")

	// A working factory on the next call recovers the key.
	f.setErr(nil)
	c, err := m.Get(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 1, m.Stats()["b"].Refcount)
}

func TestCreateTimeout(t *testing.T) {
	f := FactoryFunc(func(ctx context.Context) (Client, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return &fakeClient{}, nil
		}
	})
	m := New(f, WithCreateTimeout(20*time.Millisecond))

	_, err := m.Get(context.Background(), "slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, m.Stats())
}

func TestCreateDetachedFromCallerCancellation(t *testing.T) {
	f := FactoryFunc(func(ctx context.Context) (Client, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(30 * time.Millisecond):
			return &fakeClient{}, nil
		}
	})
	m := New(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled; creation must still run to completion

	c, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 1, m.Stats()["a"].Refcount)
}

func TestWithClientReleasesOnSuccess(t *testing.T) {
	m := New(&fakeFactory{}, WithClock(newFakeClock()))

	err := m.WithClient(context.Background(), "a", func(ctx context.Context, c Client) error {
		assert.Equal(t, 1, m.Stats()["a"].Refcount)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, m.Stats()["a"].Refcount)
}

func TestWithClientReleasesOnError(t *testing.T) {
	m := New(&fakeFactory{}, WithClock(newFakeClock()))
	boom := errors.New("tool failed")

	err := m.WithClient(context.Background(), "a", func(ctx context.Context, c Client) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Stats()["a"].Refcount)
}

func TestWithClientReleasesOnPanic(t *testing.T) {
	m := New(&fakeFactory{}, WithClock(newFakeClock()))

	require.Panics(t, func() {
		_ = m.WithClient(context.Background(), "a", func(ctx context.Context, c Client) error {
			panic("handler blew up")
		})
	})
	assert.Equal(t, 0, m.Stats()["a"].Refcount)
}

func TestWithClientPropagatesCreationError(t *testing.T) {
	m := New(&fakeFactory{err: errors.New("no connection")})

	called := false
	err := m.WithClient(context.Background(), "a", func(ctx context.Context, c Client) error {
		called = true
		return nil
	})
	require.Error(t, err)
	var cerr *CreationError
	assert.ErrorAs(t, err, &cerr)
	assert.False(t, called)
}

func TestConcurrentChurn(t *testing.T) {
	f := &fakeFactory{delay: time.Millisecond}
	m := New(f)
	keys := []string{"a", "b", "c"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				key := keys[(i+j)%len(keys)]
				err := m.WithClient(context.Background(), key, func(ctx context.Context, c Client) error {
					return nil
				})
				require.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	stats := m.Stats()
	require.Len(t, stats, len(keys))
	for key, s := range stats {
		assert.Zerof(t, s.Refcount, "key %q must end unreferenced", key)
	}
	assert.Equal(t, len(keys), f.created(), "one construction per key despite churn")
}
