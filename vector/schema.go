package vector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/vector/migrations"
)

const (
	DefaultTable         = "documents"
	DefaultMatchFunction = "match_documents"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableOptions names the documents table and its search function.
type TableOptions struct {
	Table         string
	MatchFunction string
	Dimension     int
}

func (o TableOptions) withDefaults() TableOptions {
	if o.Table == "" {
		o.Table = DefaultTable
	}
	if o.MatchFunction == "" {
		o.MatchFunction = DefaultMatchFunction
	}
	return o
}

func (o TableOptions) validate() error {
	for _, name := range []string{o.Table, o.MatchFunction} {
		if !identifier.MatchString(name) {
			return fmt.Errorf("invalid identifier %q: %w", name, core.ErrInvalidInput)
		}
	}
	if o.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d: %w", o.Dimension, core.ErrInvalidInput)
	}
	return nil
}

// Schema renders the SQL that creates the documents table, its HNSW index
// and the match function. It is applied by PgVectorStore and can be run by
// hand in a hosted project's SQL editor.
func Schema(opts TableOptions) (string, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return "", err
	}

	data, err := migrations.Postgres.ReadFile("postgres/001_documents.sql")
	if err != nil {
		return "", fmt.Errorf("read migration: %w", err)
	}

	r := strings.NewReplacer(
		"{{table}}", opts.Table,
		"{{match_function}}", opts.MatchFunction,
		"{{dimension}}", strconv.Itoa(opts.Dimension),
	)
	return r.Replace(string(data)), nil
}
