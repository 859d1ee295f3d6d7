package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hubenschmidt/go-ragdesk/core"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory vector store for development and testing.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	order     []string
	records   map[string]Record
}

// NewMemoryStore creates a new in-memory vector store. A positive
// dimension is enforced on insert.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		records:   make(map[string]Record),
	}
}

// Insert stores records. An id that already exists is rejected.
func (s *MemoryStore) Insert(ctx context.Context, records []Record) ([]string, error) {
	if err := checkDimensions("memory.insert", records, s.dimension); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(records))
	for i, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if _, ok := s.records[r.ID]; ok {
			return nil, core.StorageError("memory.insert", fmt.Errorf("duplicate id %s", r.ID))
		}
		ids[i] = r.ID
	}

	for i, r := range records {
		r.ID = ids[i]
		r.Embedding = append([]float64(nil), r.Embedding...)
		s.records[r.ID] = r
		s.order = append(s.order, r.ID)
	}
	return ids, nil
}

// SimilaritySearch scores every record with brute-force cosine similarity.
func (s *MemoryStore) SimilaritySearch(ctx context.Context, embedding []float64, limit int, threshold float64) ([]SearchResult, error) {
	if s.dimension > 0 && len(embedding) != s.dimension {
		return nil, core.StorageError("memory.search", fmt.Errorf("query has %d dimensions, want %d: %w",
			len(embedding), s.dimension, core.ErrDimensionMismatch))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.order))
	for _, id := range s.order {
		r := s.records[id]
		results = append(results, SearchResult{
			ID:         r.ID,
			Content:    r.Content,
			Metadata:   r.Metadata,
			Similarity: CosineSimilarity(embedding, r.Embedding),
		})
	}
	return rank(results, limit, threshold), nil
}

// Delete removes records by ID.
func (s *MemoryStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.records, id)
	}
	order := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.records[id]; ok {
			order = append(order, id)
		}
	}
	s.order = order
	return nil
}

// Count returns the number of records in the store.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op for in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
