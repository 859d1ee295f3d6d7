// Package vector provides vector storage and similarity search.
package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/hubenschmidt/go-ragdesk/core"
)

// Record is a stored chunk with its embedding. Records are created on
// ingestion and never updated in place.
type Record struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float64      `json:"embedding,omitempty"`
}

// SearchResult is one match of a similarity search.
type SearchResult struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float64        `json:"similarity"` // cosine similarity, -1..1
}

// Store provides vector storage and similarity search operations.
//
// SimilaritySearch returns at most limit results, each with similarity
// strictly greater than threshold, in non-increasing similarity order. No
// match is an empty slice, not an error.
type Store interface {
	// Insert stores records and returns their ids in input order. Records
	// without an id get a generated one.
	Insert(ctx context.Context, records []Record) ([]string, error)

	SimilaritySearch(ctx context.Context, embedding []float64, limit int, threshold float64) ([]SearchResult, error)

	// Delete removes records by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// checkDimensions verifies every record carries an embedding of length dim.
// A zero dim accepts any non-empty embedding.
func checkDimensions(op string, records []Record, dim int) error {
	for i, r := range records {
		if len(r.Embedding) == 0 {
			return core.StorageError(op, fmt.Errorf("record %d has no embedding: %w", i, core.ErrInvalidInput))
		}
		if dim > 0 && len(r.Embedding) != dim {
			return core.StorageError(op, fmt.Errorf("record %d has %d dimensions, want %d: %w",
				i, len(r.Embedding), dim, core.ErrDimensionMismatch))
		}
	}
	return nil
}

// rank enforces the search contract on results coming from any backend.
func rank(results []SearchResult, limit int, threshold float64) []SearchResult {
	kept := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if r.Similarity > threshold {
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity > kept[j].Similarity
	})

	if limit < 0 {
		limit = 0
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
