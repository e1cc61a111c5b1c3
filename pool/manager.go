package pool

import (
	"context"
	"log"
	"sync"
	"time"
)

// Client is the handle the pool manages. The pool only controls identity and
// lifetime; what the handle does is the caller's business.
type Client interface {
	Close() error
}

// Factory constructs clients. Create may block for a real network round trip,
// so the pool calls it holding only the per-key creation lock.
type Factory interface {
	Create(ctx context.Context) (Client, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (Client, error)

// Create calls f.
func (f FactoryFunc) Create(ctx context.Context) (Client, error) { return f(ctx) }

// Defaults match the backing store's connection economics: connects are slow
// but clients are cheap to keep around for a while.
const (
	DefaultCreateTimeout   = 30 * time.Second
	DefaultCleanupInterval = 5 * time.Minute
	DefaultIdleTimeout     = 10 * time.Minute
)

// entry tracks one pooled client through its lifecycle:
// absent -> creating -> ready -> evicting -> absent.
// A nil client marks the creating state; the evicted flag marks evicting so
// late acquirers retry instead of reviving a closed handle.
type entry struct {
	key string

	// createMu serializes construction for this key only. The factory runs
	// under createMu, never under the registry lock.
	createMu sync.Mutex

	mu             sync.Mutex // guards the fields below
	client         Client
	refcount       int
	createdAt      time.Time
	lastReleasedAt time.Time
	evicted        bool
}

// Manager is a process-wide registry of refcounted clients keyed by client
// identity. Construct one with New and share it; all methods are safe for
// concurrent use.
type Manager struct {
	factory Factory
	clock   Clock

	createTimeout time.Duration
	maxLifetime   time.Duration
	maxPoolSize   int

	mu      sync.RWMutex
	entries map[string]*entry

	cleanupMu   sync.Mutex
	idleTimeout time.Duration
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the system clock, letting tests drive eviction
// deterministically.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithCreateTimeout bounds how long a single factory call may take.
// Zero disables the bound.
func WithCreateTimeout(d time.Duration) Option {
	return func(m *Manager) { m.createTimeout = d }
}

// WithIdleTimeout sets how long an unreferenced client may sit idle before
// eviction. StartPeriodicCleanup can override it.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleTimeout = d }
}

// WithMaxLifetime evicts unreferenced clients older than d even if recently
// used. Zero disables lifetime eviction.
func WithMaxLifetime(d time.Duration) Option {
	return func(m *Manager) { m.maxLifetime = d }
}

// WithMaxPoolSize makes a creation that would grow the registry past n first
// sweep clients idle beyond half the idle timeout. The cap is advisory:
// creation proceeds even if the sweep frees nothing. Zero disables it.
func WithMaxPoolSize(n int) Option {
	return func(m *Manager) { m.maxPoolSize = n }
}

// New creates a Manager that builds clients with factory.
func New(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory:       factory,
		clock:         systemClock{},
		createTimeout: DefaultCreateTimeout,
		idleTimeout:   DefaultIdleTimeout,
		entries:       make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the shared client for key, constructing it on first use.
// Concurrent calls for the same unseen key serialize on a per-key lock so the
// factory runs exactly once; everyone else observes the handle it produced.
// Every successful Get must be paired with exactly one Release; prefer
// WithClient, which pairs them for you.
func (m *Manager) Get(ctx context.Context, key string) (Client, error) {
	for {
		m.mu.RLock()
		e := m.entries[key]
		m.mu.RUnlock()

		if e == nil {
			e = m.insert(key)
		}

		e.createMu.Lock()

		e.mu.Lock()
		if e.evicted {
			// Reclaimed between lookup and lock; start over with a fresh entry.
			e.mu.Unlock()
			e.createMu.Unlock()
			continue
		}
		if c := e.client; c != nil {
			e.refcount++
			e.mu.Unlock()
			e.createMu.Unlock()
			return c, nil
		}
		e.mu.Unlock()

		// Creating: run the factory holding only this key's lock.
		client, err := m.create(ctx)
		if err != nil {
			m.remove(e)
			e.mu.Lock()
			e.evicted = true
			e.mu.Unlock()
			e.createMu.Unlock()
			return nil, &CreationError{Key: key, Err: err}
		}

		now := m.clock.Now()
		e.mu.Lock()
		if e.evicted {
			// CleanupAll won the race while the factory was connecting.
			// The fresh handle must not outlive the shutdown that evicted it.
			e.mu.Unlock()
			e.createMu.Unlock()
			if cerr := client.Close(); cerr != nil {
				log.Printf("[POOL] close client %q created during shutdown: %v", key, cerr)
			}
			continue
		}
		e.client = client
		e.refcount = 1
		e.createdAt = now
		e.lastReleasedAt = now
		e.mu.Unlock()
		e.createMu.Unlock()

		log.Printf("[POOL] created client %q", key)
		return client, nil
	}
}

// create runs the factory detached from the caller's cancellation: an
// in-flight connect is never abandoned half-built, and the handle it yields
// stays available to future callers. Only the creation timeout bounds it.
func (m *Manager) create(ctx context.Context) (Client, error) {
	ctx = context.WithoutCancel(ctx)
	if m.createTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.createTimeout)
		defer cancel()
	}
	return m.factory.Create(ctx)
}

// insert registers a placeholder entry for key, enforcing the pool-size cap
// first. Returns the existing entry if another caller raced the insert.
func (m *Manager) insert(key string) *entry {
	if m.maxPoolSize > 0 {
		m.enforcePoolSize()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		return e
	}
	e := &entry{key: key}
	m.entries[key] = e
	return e
}

// remove deletes e from the registry if it is still the registered entry for
// its key. A newer entry under the same key is left alone.
func (m *Manager) remove(e *entry) {
	m.mu.Lock()
	if cur, ok := m.entries[e.key]; ok && cur == e {
		delete(m.entries, e.key)
	}
	m.mu.Unlock()
}

// enforcePoolSize sweeps clients idle beyond half the idle timeout when the
// registry has reached the cap.
func (m *Manager) enforcePoolSize() {
	m.mu.RLock()
	size := len(m.entries)
	m.mu.RUnlock()

	if size < m.maxPoolSize {
		return
	}
	log.Printf("[POOL] pool full (%d/%d), sweeping idle clients", size, m.maxPoolSize)
	m.sweep(m.currentIdleTimeout() / 2)
}

// Release decrements the refcount for key and records the release time.
// Unknown keys and already-unreferenced clients are logged and ignored;
// Release never fails.
func (m *Manager) Release(key string) {
	m.mu.RLock()
	e := m.entries[key]
	m.mu.RUnlock()

	if e == nil {
		log.Printf("[POOL] release of unknown client %q ignored", key)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.refcount == 0 {
		log.Printf("[POOL] release of unreferenced client %q ignored", key)
		return
	}
	e.refcount--
	e.lastReleasedAt = m.clock.Now()
}

// CleanupAll force-closes every client regardless of refcount and clears the
// registry. Intended for process shutdown; a refcount above zero here means a
// caller leaked an acquisition.
//
// CleanupAll does not fence later use: a Get after (or racing) CleanupAll
// constructs a fresh client in the emptied registry. Callers own the ordering;
// stop accepting work before calling this.
func (m *Manager) CleanupAll() {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.refcount > 0 {
			log.Printf("[POOL] closing client %q with %d outstanding acquisitions (caller leak)", e.key, e.refcount)
		}
		c := e.client
		e.client = nil
		e.refcount = 0
		e.evicted = true
		e.mu.Unlock()

		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			log.Printf("[POOL] close client %q: %v", e.key, err)
		}
	}
	log.Printf("[POOL] all clients cleaned up")
}

// Stat is a point-in-time view of one pooled client. IdleTime is zero while
// the client is referenced.
type Stat struct {
	Refcount int           `json:"refcount"`
	Age      time.Duration `json:"age"`
	IdleTime time.Duration `json:"idle_time"`
}

// Stats returns a snapshot of the registry with no side effects. Entries
// still being created are not reported.
func (m *Manager) Stats() map[string]Stat {
	m.mu.RLock()
	snapshot := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		snapshot = append(snapshot, e)
	}
	m.mu.RUnlock()

	now := m.clock.Now()
	stats := make(map[string]Stat, len(snapshot))
	for _, e := range snapshot {
		e.mu.Lock()
		if e.client != nil && !e.evicted {
			s := Stat{
				Refcount: e.refcount,
				Age:      now.Sub(e.createdAt),
			}
			if e.refcount == 0 {
				s.IdleTime = now.Sub(e.lastReleasedAt)
			}
			stats[e.key] = s
		}
		e.mu.Unlock()
	}
	return stats
}
