// Package vecstore backs memstore with chromem-go, a pure Go embedded vector
// database. Each user gets an isolated collection; a side index of stored
// records supports listing, which chromem does not offer natively.
package vecstore

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"memgate/memstore"
)

// Store implements memstore.Store over chromem-go.
type Store struct {
	db *chromem.DB

	mu          sync.RWMutex
	collections map[string]*chromem.Collection // per-user collections
	records     map[string]map[string]memstore.Record
	closed      bool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		records:     make(map[string]map[string]memstore.Record),
	}
}

// getOrCreateCollection returns the collection for a user, creating it on
// first use. Double-checked under the RWMutex so concurrent first writers
// for one user create a single collection.
func (s *Store) getOrCreateCollection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[userID]
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("store is closed")
	}
	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if col, exists := s.collections[userID]; exists {
		return col, nil
	}

	name := "user_" + userID
	if userID == "" {
		name = "global"
	}
	col, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.collections[userID] = col
	return col, nil
}

// Store saves a record with its embedding.
func (s *Store) Store(ctx context.Context, rec memstore.Record, embedding []float32) error {
	col, err := s.getOrCreateCollection(rec.UserID)
	if err != nil {
		return err
	}

	metadata := map[string]string{
		"user_id":    rec.UserID,
		"created_at": rec.CreatedAt.Format(time.RFC3339),
	}
	for k, v := range rec.Metadata {
		metadata[k] = v
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Text,
		Embedding: embedding,
		Metadata:  metadata,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	s.mu.Lock()
	if s.records[rec.UserID] == nil {
		s.records[rec.UserID] = make(map[string]memstore.Record)
	}
	s.records[rec.UserID][rec.ID] = rec
	s.mu.Unlock()

	return nil
}

// Query retrieves records by vector similarity, highest first.
func (s *Store) Query(ctx context.Context, userID string, embedding []float32, limit int) ([]memstore.Record, error) {
	col, err := s.getOrCreateCollection(userID)
	if err != nil {
		return nil, err
	}

	where := map[string]string{"user_id": userID}

	// chromem requires nResults <= collection size, so walk the limit down
	// until the query fits.
	var results []chromem.Result
	for nResults := limit; nResults >= 1; nResults-- {
		results, err = col.QueryEmbedding(ctx, embedding, nResults, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if nResults == 1 {
				return nil, nil // collection is empty
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	records := make([]memstore.Record, 0, len(results))
	for _, result := range results {
		rec, err := s.recordFromResult(userID, result)
		if err != nil {
			log.Printf("[VECSTORE] skipping result %s: %v", result.ID, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// List returns all records for a user, oldest first.
func (s *Store) List(ctx context.Context, userID string) ([]memstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	byID := s.records[userID]
	records := make([]memstore.Record, 0, len(byID))
	for _, rec := range byID {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// Close drops all collections. The store cannot be reused afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.collections = nil
	s.records = nil
	return nil
}

// recordFromResult rebuilds a Record from a chromem result, preferring the
// indexed original when present.
func (s *Store) recordFromResult(userID string, result chromem.Result) (memstore.Record, error) {
	s.mu.RLock()
	rec, ok := s.records[userID][result.ID]
	s.mu.RUnlock()

	if ok {
		rec.Score = result.Similarity
		return rec, nil
	}

	// Index miss: reconstruct from document metadata.
	createdAt, err := time.Parse(time.RFC3339, result.Metadata["created_at"])
	if err != nil {
		return memstore.Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	metadata := make(map[string]string)
	for k, v := range result.Metadata {
		if k != "user_id" && k != "created_at" {
			metadata[k] = v
		}
	}
	return memstore.Record{
		ID:        result.ID,
		UserID:    result.Metadata["user_id"],
		Text:      result.Content,
		CreatedAt: createdAt,
		Metadata:  metadata,
		Score:     result.Similarity,
	}, nil
}

// isInsufficientDocsError checks if a query failed because it asked for more
// results than the collection holds.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
