package vector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/supabase"
)

var _ Store = (*SupabaseStore)(nil)

// SupabaseStore keeps records in the documents table of a hosted Supabase
// project and searches through its match function over REST. The table and
// function must exist; see Schema.
type SupabaseStore struct {
	client *supabase.Client
	opts   TableOptions
}

func NewSupabaseStore(client *supabase.Client, opts TableOptions) (*SupabaseStore, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, core.StorageError("supabase.open", err)
	}
	return &SupabaseStore{client: client, opts: opts}, nil
}

type supabaseRow struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float64      `json:"embedding"`
}

// Insert writes all records in a single request, so PostgREST applies them
// in one transaction.
func (s *SupabaseStore) Insert(ctx context.Context, records []Record) ([]string, error) {
	if err := checkDimensions("supabase.insert", records, s.opts.Dimension); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []string{}, nil
	}

	rows := make([]supabaseRow, len(records))
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
		if ids[i] == "" {
			ids[i] = uuid.NewString()
		}
		metadata := r.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		rows[i] = supabaseRow{ID: ids[i], Content: r.Content, Metadata: metadata, Embedding: r.Embedding}
	}

	if err := s.client.Insert(ctx, s.opts.Table, rows, nil); err != nil {
		return nil, core.StorageError("supabase.insert", err)
	}
	return ids, nil
}

type matchArgs struct {
	QueryEmbedding []float64 `json:"query_embedding"`
	MatchThreshold float64   `json:"match_threshold"`
	MatchCount     int       `json:"match_count"`
}

// SimilaritySearch calls the match function over RPC.
func (s *SupabaseStore) SimilaritySearch(ctx context.Context, embedding []float64, limit int, threshold float64) ([]SearchResult, error) {
	if s.opts.Dimension > 0 && len(embedding) != s.opts.Dimension {
		return nil, core.StorageError("supabase.search", fmt.Errorf("query has %d dimensions, want %d: %w",
			len(embedding), s.opts.Dimension, core.ErrDimensionMismatch))
	}
	if limit <= 0 {
		return []SearchResult{}, nil
	}

	var results []SearchResult
	args := matchArgs{QueryEmbedding: embedding, MatchThreshold: threshold, MatchCount: limit}
	if err := s.client.RPC(ctx, s.opts.MatchFunction, args, &results); err != nil {
		return nil, core.StorageError("supabase.search", err)
	}
	return rank(results, limit, threshold), nil
}

// Delete removes records by ID.
func (s *SupabaseStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	filter := url.Values{"id": {"in.(" + strings.Join(ids, ",") + ")"}}
	if err := s.client.Delete(ctx, s.opts.Table, filter); err != nil {
		return core.StorageError("supabase.delete", err)
	}
	return nil
}

func (s *SupabaseStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, s.opts.Table)
	if err != nil {
		return 0, core.StorageError("supabase.count", err)
	}
	return n, nil
}

// Close is a no-op; the REST client holds no connections of its own.
func (s *SupabaseStore) Close() error {
	return nil
}
