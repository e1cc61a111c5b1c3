package vecstore_test

import (
	"context"
	"testing"
	"time"

	"memgate/memstore"
	"memgate/memstore/embed/mock"
	"memgate/memstore/vecstore"
)

func mustEmbed(t *testing.T, e memstore.Embedder, text string) []float32 {
	t.Helper()
	vec, err := e.Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("embed %q: %v", text, err)
	}
	return vec
}

func TestStoreAndQuery(t *testing.T) {
	ctx := context.Background()
	s := vecstore.New()
	embedder := mock.New()

	texts := []string{"Jack lives in London", "Jack prefers tea", "the weather is bad"}
	for i, text := range texts {
		rec := memstore.Record{
			ID:        string(rune('a' + i)),
			UserID:    "user1",
			Text:      text,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.Store(ctx, rec, mustEmbed(t, embedder, text)); err != nil {
			t.Fatalf("store %q: %v", text, err)
		}
	}

	// Querying with an exact stored embedding must return that record first.
	results, err := s.Query(ctx, "user1", mustEmbed(t, embedder, "Jack prefers tea"), 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Text != "Jack prefers tea" {
		t.Errorf("expected exact match first, got %q", results[0].Text)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("results not ordered by similarity: %v vs %v", results[0].Score, results[1].Score)
	}
}

func TestQueryLimitAboveCollectionSize(t *testing.T) {
	ctx := context.Background()
	s := vecstore.New()
	embedder := mock.New()

	rec := memstore.Record{ID: "1", UserID: "u", Text: "only memory", CreatedAt: time.Now()}
	if err := s.Store(ctx, rec, mustEmbed(t, embedder, rec.Text)); err != nil {
		t.Fatalf("store: %v", err)
	}

	results, err := s.Query(ctx, "u", mustEmbed(t, embedder, "anything"), 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	s := vecstore.New()
	embedder := mock.New()

	results, err := s.Query(context.Background(), "nobody", mustEmbed(t, embedder, "query"), 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestUserIsolation(t *testing.T) {
	ctx := context.Background()
	s := vecstore.New()
	embedder := mock.New()

	rec := memstore.Record{ID: "1", UserID: "alice", Text: "alice's secret", CreatedAt: time.Now()}
	if err := s.Store(ctx, rec, mustEmbed(t, embedder, rec.Text)); err != nil {
		t.Fatalf("store: %v", err)
	}

	results, err := s.Query(ctx, "bob", mustEmbed(t, embedder, "alice's secret"), 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("bob must not see alice's memories, got %d", len(results))
	}

	bobAll, err := s.List(ctx, "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bobAll) != 0 {
		t.Fatalf("expected empty list for bob, got %d", len(bobAll))
	}
}

func TestListOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := vecstore.New()
	embedder := mock.New()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"newest", "oldest", "middle"} {
		offsets := map[string]time.Duration{"oldest": 0, "middle": time.Hour, "newest": 2 * time.Hour}
		rec := memstore.Record{
			ID:        string(rune('a' + i)),
			UserID:    "u",
			Text:      text,
			CreatedAt: base.Add(offsets[text]),
		}
		if err := s.Store(ctx, rec, mustEmbed(t, embedder, text)); err != nil {
			t.Fatalf("store: %v", err)
		}
	}

	records, err := s.List(ctx, "u")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	want := []string{"oldest", "middle", "newest"}
	for i, rec := range records {
		if rec.Text != want[i] {
			t.Errorf("position %d: got %q, want %q", i, rec.Text, want[i])
		}
	}
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	ctx := context.Background()
	s := vecstore.New()
	embedder := mock.New()

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	rec := memstore.Record{ID: "1", UserID: "u", Text: "too late", CreatedAt: time.Now()}
	if err := s.Store(ctx, rec, mustEmbed(t, embedder, rec.Text)); err == nil {
		t.Fatal("expected error storing into closed store")
	}
	if _, err := s.List(ctx, "u"); err == nil {
		t.Fatal("expected error listing closed store")
	}
}
