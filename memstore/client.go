package memstore

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalClient is the SDK-provided Client implementation backed by an embedded
// vector store. Each instance owns its store and embedder; closing the client
// closes both.
type LocalClient struct {
	store     Store
	embedder  Embedder
	extractor Extractor // optional

	closeOnce sync.Once
	closeErr  error
}

// ClientOption configures a LocalClient.
type ClientOption func(*LocalClient)

// WithExtractor enables LLM fact extraction on Add. Without it, raw text is
// stored as a single memory.
func WithExtractor(x Extractor) ClientOption {
	return func(c *LocalClient) { c.extractor = x }
}

// NewLocalClient creates a client over the given store and embedder.
// The client takes ownership of both.
func NewLocalClient(store Store, embedder Embedder, opts ...ClientOption) *LocalClient {
	c := &LocalClient{
		store:    store,
		embedder: embedder,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add stores text for userID. With an extractor configured, the text is first
// distilled into discrete facts and each fact becomes its own record;
// extraction failures fall back to storing the raw text so a flaky LLM never
// loses a memory.
func (c *LocalClient) Add(ctx context.Context, text, userID string) ([]Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("add memory: empty text")
	}

	facts := []string{text}
	if c.extractor != nil {
		extracted, err := c.extractor.Extract(ctx, text)
		switch {
		case err != nil:
			log.Printf("[MEMSTORE] fact extraction failed, storing raw text: %v", err)
		case len(extracted) > 0:
			facts = extracted
		}
	}

	records := make([]Record, 0, len(facts))
	for _, fact := range facts {
		embedding, err := c.embedder.Embed(ctx, fact)
		if err != nil {
			return records, fmt.Errorf("embed memory: %w", err)
		}

		rec := Record{
			ID:        uuid.New().String(),
			UserID:    userID,
			Text:      fact,
			CreatedAt: time.Now().UTC(),
		}
		if err := c.store.Store(ctx, rec, embedding); err != nil {
			return records, fmt.Errorf("store memory: %w", err)
		}
		records = append(records, rec)
	}

	log.Printf("[MEMSTORE] stored %d memories for user %q", len(records), userID)
	return records, nil
}

// Search embeds the query and returns up to limit records by vector
// similarity.
func (c *LocalClient) Search(ctx context.Context, query, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 3
	}

	embedding, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	records, err := c.store.Query(ctx, userID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	log.Printf("[MEMSTORE] retrieved %d memories for query %q", len(records), truncate(query, 50))
	return records, nil
}

// GetAll returns every record stored for userID.
func (c *LocalClient) GetAll(ctx context.Context, userID string) ([]Record, error) {
	records, err := c.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}
	return records, nil
}

// Close releases the store and embedder. Subsequent calls return the first
// result.
func (c *LocalClient) Close() error {
	c.closeOnce.Do(func() {
		serr := c.store.Close()
		eerr := c.embedder.Close()
		if serr != nil {
			c.closeErr = fmt.Errorf("close store: %w", serr)
			return
		}
		if eerr != nil {
			c.closeErr = fmt.Errorf("close embedder: %w", eerr)
		}
	})
	return c.closeErr
}

// truncate shortens text for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
