package history

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/hubenschmidt/go-ragdesk/supabase"
)

// DefaultSupabaseTable is the table written by SupabaseStore.
const DefaultSupabaseTable = "chat_history"

// SupabaseStore keeps history in a table of the hosted project, next to
// the documents.
type SupabaseStore struct {
	client *supabase.Client
	table  string
}

func NewSupabaseStore(client *supabase.Client, table string) *SupabaseStore {
	if table == "" {
		table = DefaultSupabaseTable
	}
	return &SupabaseStore{client: client, table: table}
}

type supabaseRow struct {
	ID        string `json:"id"`
	Query     string `json:"user_query"`
	Reply     string `json:"chatbot_reply"`
	CreatedAt int64  `json:"created_at"`
}

func (r supabaseRow) entry() Entry {
	return Entry{ID: r.ID, Query: r.Query, Reply: r.Reply, CreatedAt: time.UnixMilli(r.CreatedAt).UTC()}
}

func (s *SupabaseStore) Add(ctx context.Context, e Entry) (Entry, error) {
	e = prepare(e)
	row := supabaseRow{ID: e.ID, Query: e.Query, Reply: e.Reply, CreatedAt: e.CreatedAt.UnixMilli()}
	if err := s.client.Insert(ctx, s.table, []supabaseRow{row}, nil); err != nil {
		return Entry{}, fmt.Errorf("insert history: %w", err)
	}
	return e, nil
}

func (s *SupabaseStore) Get(ctx context.Context, id string) (Entry, error) {
	var rows []supabaseRow
	query := url.Values{"id": {"eq." + id}, "limit": {"1"}}
	if err := s.client.Select(ctx, s.table, query, &rows); err != nil {
		return Entry{}, fmt.Errorf("query history: %w", err)
	}
	if len(rows) == 0 {
		return Entry{}, errNotFound
	}
	return rows[0].entry(), nil
}

func (s *SupabaseStore) List(ctx context.Context, limit int) ([]Entry, error) {
	var rows []supabaseRow
	query := url.Values{
		"order": {"created_at.desc"},
		"limit": {strconv.Itoa(listLimit(limit))},
	}
	if err := s.client.Select(ctx, s.table, query, &rows); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry()
	}
	return entries, nil
}

func (s *SupabaseStore) Close() error {
	return nil
}
