package memstore

import (
	"context"
	"time"
)

// Record is one stored memory.
type Record struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Text      string            `json:"memory"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	// Score is the similarity to the query for search results, zero
	// otherwise.
	Score float32 `json:"score,omitempty"`
}

// Client is the handle for one backing memory store. The pool manages Client
// lifetimes; handlers receive one through scoped acquisition and must not
// retain it past the call.
type Client interface {
	// Add stores text as one or more memories for userID and returns the
	// records written.
	Add(ctx context.Context, text, userID string) ([]Record, error)

	// Search returns up to limit memories relevant to query, most similar
	// first.
	Search(ctx context.Context, query, userID string, limit int) ([]Record, error)

	// GetAll returns every memory stored for userID, oldest first.
	GetAll(ctx context.Context, userID string) ([]Record, error)

	// Close releases the backing connection. Safe to call more than once.
	Close() error
}

// Store is the vector storage backend.
// Implementations: vecstore.Store (embedded chromem-go).
type Store interface {
	// Store saves a record with its embedding.
	Store(ctx context.Context, rec Record, embedding []float32) error

	// Query retrieves records by vector similarity, highest first.
	Query(ctx context.Context, userID string, embedding []float32, limit int) ([]Record, error)

	// List returns all records for a user, oldest first.
	List(ctx context.Context, userID string) ([]Record, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations live under memstore/embed.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// Close releases embedder resources (model sessions, caches).
	Close() error
}

// Extractor distills raw input into discrete facts worth remembering.
// Implementations: ClaudeExtractor.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}
