package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/supabase"
)

func newSupabaseStore(t *testing.T, handler http.HandlerFunc) *SupabaseStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := supabase.New(srv.URL, "service-key")
	require.NoError(t, err)
	s, err := NewSupabaseStore(client, TableOptions{Dimension: 2})
	require.NoError(t, err)
	return s
}

func TestSupabaseStore_Insert(t *testing.T) {
	var rows []supabaseRow
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/documents", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		w.WriteHeader(http.StatusCreated)
	})

	ids, err := s.Insert(context.Background(), []Record{
		{Content: "Silk Lounge is open from 9am to 11pm daily.", Embedding: []float64{1, 0},
			Metadata: map[string]any{"source": "faq.pdf"}},
		{Content: "Smart casual dress code.", Embedding: []float64{0, 1}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	require.Len(t, rows, 2)
	assert.Equal(t, ids[0], rows[0].ID)
	assert.Equal(t, "faq.pdf", rows[0].Metadata["source"])
	assert.Equal(t, []float64{0, 1}, rows[1].Embedding)
	assert.NotNil(t, rows[1].Metadata)
}

func TestSupabaseStore_InsertDimensionMismatch(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := s.Insert(context.Background(), []Record{{Content: "x", Embedding: []float64{1, 0, 0}}})
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestSupabaseStore_SimilaritySearch(t *testing.T) {
	var args matchArgs
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/match_documents", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		w.Header().Set("Content-Type", "application/json")
		// a lenient server function; the store still enforces the contract
		w.Write([]byte(`[
			{"id": "b", "content": "beta", "metadata": {"page": 2}, "similarity": 0.61},
			{"id": "a", "content": "alpha", "metadata": {}, "similarity": 0.93},
			{"id": "c", "content": "gamma", "metadata": {}, "similarity": 0.3}
		]`))
	})

	results, err := s.SimilaritySearch(context.Background(), []float64{0.6, 0.8}, 5, 0.3)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.6, 0.8}, args.QueryEmbedding)
	assert.Equal(t, 0.3, args.MatchThreshold)
	assert.Equal(t, 5, args.MatchCount)

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.Equal(t, float64(2), results[1].Metadata["page"])
}

func TestSupabaseStore_SearchEmpty(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})

	results, err := s.SimilaritySearch(context.Background(), []float64{1, 0}, 5, 0.3)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSupabaseStore_ErrorsAreStorageErrors(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"PGRST202","message":"Could not find the function public.match_documents"}`))
	})

	_, err := s.SimilaritySearch(context.Background(), []float64{1, 0}, 5, 0.3)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorage)

	var apiErr *supabase.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "PGRST202", apiErr.Code)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestSupabaseStore_DeleteAndCount(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			assert.Equal(t, "in.(a,b)", r.URL.Query().Get("id"))
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
			w.Header().Set("Content-Range", "0-0/42")
			w.Write([]byte(`[]`))
		}
	})

	require.NoError(t, s.Delete(context.Background(), []string{"a", "b"}))
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}
