package vector

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/go-ragdesk/core"
)

func unit(dims, hot int) []float64 {
	v := make([]float64, dims)
	v[hot] = 1
	return v
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Zero(t, CosineSimilarity([]float64{0, 0}, []float64{1, 2}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}

func TestRank(t *testing.T) {
	in := []SearchResult{
		{ID: "a", Similarity: 0.2},
		{ID: "b", Similarity: 0.9},
		{ID: "c", Similarity: 0.5},
		{ID: "d", Similarity: 0.5},
		{ID: "e", Similarity: 0.7},
	}

	t.Run("threshold is strict", func(t *testing.T) {
		out := rank(in, 10, 0.5)
		require.Len(t, out, 2)
		assert.Equal(t, "b", out[0].ID)
		assert.Equal(t, "e", out[1].ID)
	})
	t.Run("limit", func(t *testing.T) {
		out := rank(in, 3, 0)
		require.Len(t, out, 3)
		assert.Equal(t, []string{"b", "e", "c"}, []string{out[0].ID, out[1].ID, out[2].ID})
	})
	t.Run("zero and negative limit", func(t *testing.T) {
		assert.Empty(t, rank(in, 0, -1))
		assert.Empty(t, rank(in, -3, -1))
	})
	t.Run("nothing clears threshold", func(t *testing.T) {
		out := rank(in, 5, 0.95)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})
}

func TestMemoryStore_Insert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)

	ids, err := s.Insert(ctx, []Record{
		{Content: "one", Embedding: []float64{1, 0, 0}},
		{ID: "fixed", Content: "two", Embedding: []float64{0, 1, 0}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.Equal(t, "fixed", ids[1])

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Insert(ctx, []Record{{ID: "fixed", Content: "dup", Embedding: []float64{0, 0, 1}}})
	assert.ErrorIs(t, err, core.ErrStorage)
}

func TestMemoryStore_RejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)

	_, err := s.Insert(ctx, []Record{
		{Content: "ok", Embedding: []float64{1, 0, 0}},
		{Content: "bad", Embedding: []float64{1, 0}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	n, _ := s.Count(ctx)
	assert.Zero(t, n, "a failed batch must not be partially stored")

	_, err = s.Insert(ctx, []Record{{Content: "no vector"}})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = s.SimilaritySearch(ctx, []float64{1, 0}, 5, 0)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestMemoryStore_SearchIdenticalVector(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(4)

	_, err := s.Insert(ctx, []Record{
		{ID: "a", Content: "alpha", Embedding: unit(4, 0)},
		{ID: "b", Content: "beta", Embedding: unit(4, 1), Metadata: map[string]any{"page": 2}},
		{ID: "c", Content: "gamma", Embedding: []float64{0.5, 0.5, 0, 0}},
	})
	require.NoError(t, err)

	results, err := s.SimilaritySearch(ctx, unit(4, 1), 1, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "beta", results[0].Content)
	assert.Equal(t, 2, results[0].Metadata["page"])
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
}

func TestMemoryStore_SearchContract(t *testing.T) {
	ctx := context.Background()
	const dims = 8
	rng := rand.New(rand.NewSource(7))

	s := NewMemoryStore(dims)
	records := make([]Record, 60)
	for i := range records {
		v := make([]float64, dims)
		for j := range v {
			v[j] = rng.Float64()*2 - 1
		}
		records[i] = Record{Content: fmt.Sprintf("record %d", i), Embedding: v}
	}
	_, err := s.Insert(ctx, records)
	require.NoError(t, err)

	query := records[0].Embedding
	for _, limit := range []int{0, 1, 5, 100} {
		for _, threshold := range []float64{-1, -0.2, 0, 0.3, 0.8, 0.99} {
			results, err := s.SimilaritySearch(ctx, query, limit, threshold)
			require.NoError(t, err)
			require.NotNil(t, results)

			assert.LessOrEqual(t, len(results), limit)
			for i, r := range results {
				assert.Greater(t, r.Similarity, threshold)
				if i > 0 {
					assert.LessOrEqual(t, r.Similarity, results[i-1].Similarity)
				}
			}
		}
	}
}

func TestMemoryStore_EmptyStoreSearch(t *testing.T) {
	results, err := NewMemoryStore(2).SimilaritySearch(context.Background(), []float64{1, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	ids, err := s.Insert(ctx, []Record{
		{Content: "x", Embedding: []float64{1, 0}},
		{Content: "y", Embedding: []float64{0, 1}},
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, []string{ids[0], "unknown"}))

	n, _ := s.Count(ctx)
	assert.Equal(t, 1, n)

	results, err := s.SimilaritySearch(ctx, []float64{1, 0}, 5, -1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ids[1], results[0].ID)
}

func TestSchema(t *testing.T) {
	sql, err := Schema(TableOptions{Dimension: 1536})
	require.NoError(t, err)
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS documents")
	assert.Contains(t, sql, "embedding vector(1536)")
	assert.Contains(t, sql, "FUNCTION match_documents")
	assert.Contains(t, sql, "> match_threshold")
	assert.NotContains(t, sql, "{{")

	sql, err = Schema(TableOptions{Table: "faq_chunks", MatchFunction: "match_faq", Dimension: 3})
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM faq_chunks d")
	assert.Contains(t, sql, "query_embedding vector(3)")

	_, err = Schema(TableOptions{Table: "docs; drop table x", Dimension: 3})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Schema(TableOptions{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(ctx, StoreConfig{DatabaseURL: "memory://", TableOptions: TableOptions{Dimension: 3}})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(ctx, StoreConfig{SupabaseURL: "https://example.supabase.co", SupabaseKey: "k",
		TableOptions: TableOptions{Dimension: 3}})
	require.NoError(t, err)
	assert.IsType(t, &SupabaseStore{}, s)

	_, err = NewStore(ctx, StoreConfig{DatabaseURL: "mysql://x"})
	assert.ErrorIs(t, err, core.ErrStorage)

	_, err = NewStore(ctx, StoreConfig{})
	assert.ErrorIs(t, err, core.ErrStorage)
}
