package cache

import (
	"context"
	"errors"
	"testing"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (e *countingEmbedder) Dimensions() int { return 3 }
func (e *countingEmbedder) Close() error    { return nil }

func TestEmbedCachesRepeatedText(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	e, err := New(inner, 16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	first, err := e.Embed(ctx, "same text")
	if err != nil {
		t.Fatalf("first Embed: %v", err)
	}
	e.cache.Wait() // flush the admission buffer so the hit is deterministic

	second, err := e.Embed(ctx, "same text")
	if err != nil {
		t.Fatalf("second Embed: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner embedder called %d times, want 1", inner.calls)
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("cached vector differs: %v vs %v", first, second)
	}
}

func TestEmbedDistinctTextMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	e, err := New(inner, 16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	if _, err := e.Embed(ctx, "one"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	e.cache.Wait()
	if _, err := e.Embed(ctx, "two"); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if inner.calls != 2 {
		t.Errorf("inner embedder called %d times, want 2", inner.calls)
	}
}

// A cache sized in vectors must actually admit that many vectors. MaxCost
// counts entries only when ristretto's internal per-item overhead is ignored,
// so a tiny cache is the case that catches a mischarged config.
func TestSmallCacheAdmitsEntries(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	e, err := New(inner, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	texts := []string{"alpha", "beta", "gamma"}
	for _, text := range texts {
		if _, err := e.Embed(ctx, text); err != nil {
			t.Fatalf("Embed(%q): %v", text, err)
		}
	}
	e.cache.Wait()

	for _, text := range texts {
		if _, err := e.Embed(ctx, text); err != nil {
			t.Fatalf("Embed(%q): %v", text, err)
		}
	}

	if inner.calls != len(texts) {
		t.Errorf("inner embedder called %d times, want %d", inner.calls, len(texts))
	}
}

func TestEmbedErrorNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{err: errors.New("offline")}
	e, err := New(inner, 16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	if _, err := e.Embed(ctx, "text"); err == nil {
		t.Fatal("expected error from inner embedder")
	}

	inner.err = nil
	if _, err := e.Embed(ctx, "text"); err != nil {
		t.Fatalf("Embed after recovery: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner embedder called %d times, want 2", inner.calls)
	}
}

func TestDimensionsDelegates(t *testing.T) {
	e, err := New(&countingEmbedder{}, 16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	if e.Dimensions() != 3 {
		t.Errorf("Dimensions() = %d, want 3", e.Dimensions())
	}
}
