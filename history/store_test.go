package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/supabase"
)

func newSQLite(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_AddGet(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	added, err := s.Add(ctx, Entry{Query: "What are the operating hours?", Reply: "9am to 11pm daily."})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.False(t, added.CreatedAt.IsZero())

	got, err := s.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added, got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, q := range []string{"first", "second", "third"} {
		_, err := s.Add(ctx, Entry{Query: q, Reply: "ok", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	entries, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].Query)
	assert.Equal(t, "second", entries[1].Query)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStore_ListEmpty(t *testing.T) {
	entries, err := newSQLite(t).List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{postgres: true}
	assert.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))
	lite := &SQLStore{}
	assert.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}

func TestNewStore(t *testing.T) {
	s, err := NewStore("off", nil, "")
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	_, err = NewStore("supabase", nil, "")
	assert.Error(t, err)

	s, err = NewStore(filepath.Join(t.TempDir(), "h.db"), nil, "")
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())
}

func TestNopStore(t *testing.T) {
	var s NopStore
	e, err := s.Add(context.Background(), Entry{Query: "q", Reply: "r"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)

	_, err = s.Get(context.Background(), e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSupabaseStore(t *testing.T) {
	var inserted []supabaseRow
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/chat_log", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			if r.URL.Query().Get("id") == "eq.missing" {
				w.Write([]byte(`[]`))
				return
			}
			assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
			json.NewEncoder(w).Encode(inserted)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := supabase.New(srv.URL, "key")
	require.NoError(t, err)
	s := NewSupabaseStore(client, "chat_log")

	ctx := context.Background()
	added, err := s.Add(ctx, Entry{Query: "hours?", Reply: "9am to 11pm"})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, "hours?", inserted[0].Query)
	assert.Equal(t, "9am to 11pm", inserted[0].Reply)

	entries, err := s.List(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, added, entries[0])

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
