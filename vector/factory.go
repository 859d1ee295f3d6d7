package vector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/supabase"
)

// StoreConfig selects and configures a Store backend.
type StoreConfig struct {
	// DatabaseURL connects straight to Postgres when set. "memory://" keeps
	// records in process.
	DatabaseURL string
	SupabaseURL string
	SupabaseKey string
	Timeout     time.Duration
	TableOptions
}

// NewStore creates a vector store based on the config.
// - DatabaseURL memory://: MemoryStore
// - DatabaseURL postgres:// or postgresql://: PgVectorStore
// - Otherwise SupabaseURL and SupabaseKey: SupabaseStore
func NewStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch {
	case cfg.DatabaseURL == "memory://":
		return NewMemoryStore(cfg.Dimension), nil
	case strings.HasPrefix(cfg.DatabaseURL, "postgres://"), strings.HasPrefix(cfg.DatabaseURL, "postgresql://"):
		return NewPgVectorStore(ctx, cfg.DatabaseURL, cfg.TableOptions)
	case cfg.DatabaseURL != "":
		return nil, core.StorageError("vector.open", fmt.Errorf("unsupported database URL scheme: %w", core.ErrInvalidInput))
	}

	var opts []supabase.Option
	if cfg.Timeout > 0 {
		opts = append(opts, supabase.WithTimeout(cfg.Timeout))
	}
	client, err := supabase.New(cfg.SupabaseURL, cfg.SupabaseKey, opts...)
	if err != nil {
		return nil, core.StorageError("vector.open", err)
	}
	return NewSupabaseStore(client, cfg.TableOptions)
}
