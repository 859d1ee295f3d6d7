// Package history records question and answer pairs served by the agent.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Entry is one answered question.
type Entry struct {
	ID        string    `json:"id"`
	Query     string    `json:"user_query"`
	Reply     string    `json:"chatbot_reply"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the interface for chat history persistence.
type Store interface {
	// Add persists e, filling in ID and CreatedAt when unset.
	Add(ctx context.Context, e Entry) (Entry, error)
	// Get returns core.ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (Entry, error)
	// List returns the newest entries first.
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

func prepare(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Millisecond)
	return e
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// NopStore discards everything. It backs a disabled history.
type NopStore struct{}

func (NopStore) Add(_ context.Context, e Entry) (Entry, error) { return prepare(e), nil }

func (NopStore) Get(context.Context, string) (Entry, error) { return Entry{}, errNotFound }

func (NopStore) List(context.Context, int) ([]Entry, error) { return []Entry{}, nil }

func (NopStore) Close() error { return nil }
