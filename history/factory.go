package history

import (
	"fmt"
	"strings"

	"github.com/hubenschmidt/go-ragdesk/supabase"
)

// DefaultPath is the SQLite database used when no DSN is given.
const DefaultPath = "data/history.db"

// NewStore creates a history store based on the DSN.
// - Empty DSN: SQLite at data/history.db
// - off or none: NopStore
// - supabase: the hosted project's table, through client
// - postgres:// or postgresql://: PostgreSQL
// - Anything else: SQLite at the specified path
func NewStore(dsn string, client *supabase.Client, table string) (Store, error) {
	switch {
	case dsn == "":
		return NewSQLiteStore(DefaultPath)
	case dsn == "off" || dsn == "none":
		return NopStore{}, nil
	case dsn == "supabase":
		if client == nil {
			return nil, fmt.Errorf("supabase history needs SUPABASE_URL and SUPABASE_KEY")
		}
		return NewSupabaseStore(client, table), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := NewPostgresStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil
	}
	return NewSQLiteStore(dsn)
}
