package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/hubenschmidt/go-ragdesk/core"
)

var _ Store = (*PgVectorStore)(nil)

// PgVectorStore is a PostgreSQL-based vector store using pgvector. Search
// goes through the same match function the hosted deployment uses.
type PgVectorStore struct {
	db   *sql.DB
	opts TableOptions
}

// NewPgVectorStore connects to dsn and applies the schema migration.
// opts.Dimension is the embedding dimension (e.g., 1536 for OpenAI).
func NewPgVectorStore(ctx context.Context, dsn string, opts TableOptions) (*PgVectorStore, error) {
	schema, err := Schema(opts)
	if err != nil {
		return nil, core.StorageError("pgvector.open", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, core.StorageError("pgvector.open", fmt.Errorf("open database: %w", err))
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, core.StorageError("pgvector.open", fmt.Errorf("ping database: %w", err))
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, core.StorageError("pgvector.open", fmt.Errorf("migrate: %w", err))
	}

	return &PgVectorStore{db: db, opts: opts.withDefaults()}, nil
}

// Insert writes all records in one transaction.
func (s *PgVectorStore) Insert(ctx context.Context, records []Record) ([]string, error) {
	if err := checkDimensions("pgvector.insert", records, s.opts.Dimension); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []string{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.StorageError("pgvector.insert", fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, content, metadata, embedding) VALUES ($1, $2, $3, $4)`, s.opts.Table))
	if err != nil {
		return nil, core.StorageError("pgvector.insert", fmt.Errorf("prepare: %w", err))
	}
	defer stmt.Close()

	ids := make([]string, len(records))
	for i, r := range records {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}

		metadata, err := marshalMetadata(r.Metadata)
		if err != nil {
			return nil, core.StorageError("pgvector.insert", err)
		}

		if _, err := stmt.ExecContext(ctx, id, r.Content, metadata, pgvector.NewVector(toFloat32(r.Embedding))); err != nil {
			return nil, core.StorageError("pgvector.insert", fmt.Errorf("insert record %d: %w", i, err))
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, core.StorageError("pgvector.insert", fmt.Errorf("commit: %w", err))
	}
	return ids, nil
}

// SimilaritySearch calls the match function with the query embedding.
func (s *PgVectorStore) SimilaritySearch(ctx context.Context, embedding []float64, limit int, threshold float64) ([]SearchResult, error) {
	if len(embedding) != s.opts.Dimension {
		return nil, core.StorageError("pgvector.search", fmt.Errorf("query has %d dimensions, want %d: %w",
			len(embedding), s.opts.Dimension, core.ErrDimensionMismatch))
	}
	if limit <= 0 {
		return []SearchResult{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, content, metadata, similarity FROM %s($1, $2, $3)`, s.opts.MatchFunction),
		pgvector.NewVector(toFloat32(embedding)), threshold, limit)
	if err != nil {
		return nil, core.StorageError("pgvector.search", fmt.Errorf("query: %w", err))
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var metadataBytes []byte

		if err := rows.Scan(&r.ID, &r.Content, &metadataBytes, &r.Similarity); err != nil {
			return nil, core.StorageError("pgvector.search", fmt.Errorf("scan row: %w", err))
		}
		if len(metadataBytes) > 0 {
			if err := json.Unmarshal(metadataBytes, &r.Metadata); err != nil {
				return nil, core.StorageError("pgvector.search", fmt.Errorf("unmarshal metadata: %w", err))
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageError("pgvector.search", err)
	}

	return rank(results, limit, threshold), nil
}

// Delete removes records by ID.
func (s *PgVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id::text IN (%s)", s.opts.Table, strings.Join(placeholders, ","))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return core.StorageError("pgvector.delete", err)
	}
	return nil
}

func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", s.opts.Table)).Scan(&n); err != nil {
		return 0, core.StorageError("pgvector.count", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *PgVectorStore) Close() error {
	return s.db.Close()
}

func marshalMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

// pgvector stores single-precision components.
func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
