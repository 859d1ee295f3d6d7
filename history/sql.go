package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/history/migrations"
)

var errNotFound = core.NewError("history.get", core.ErrNotFound, nil)

// SQLStore implements Store on SQLite or PostgreSQL.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// NewSQLiteStore opens (creating if needed) the SQLite database at path.
func NewSQLiteStore(path string) (*SQLStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := runMigration(db, migrations.SQLite, "sqlite/001_init.sql"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

// NewPostgresStore connects to dsn and creates the history table.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := runMigration(db, migrations.Postgres, "postgres/001_init.sql"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db, postgres: true}, nil
}

type fileReader interface {
	ReadFile(name string) ([]byte, error)
}

func runMigration(db *sql.DB, fs fileReader, name string) error {
	data, err := fs.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.Exec(string(data)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *SQLStore) Add(ctx context.Context, e Entry) (Entry, error) {
	e = prepare(e)
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO chat_history (id, user_query, chatbot_reply, created_at)
		VALUES (?, ?, ?, ?)`),
		e.ID, e.Query, e.Reply, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert history: %w", err)
	}
	return e, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Entry, error) {
	var e Entry
	var created int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, user_query, chatbot_reply, created_at
		FROM chat_history WHERE id = ?`), id).Scan(&e.ID, &e.Query, &e.Reply, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, errNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("query history: %w", err)
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	return e, nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, user_query, chatbot_reply, created_at
		FROM chat_history ORDER BY created_at DESC, id LIMIT ?`), listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.Query, &e.Reply, &created); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
