// Package retrieval embeds a query and looks up the closest stored chunks.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/llm"
	"github.com/hubenschmidt/go-ragdesk/vector"
)

const (
	DefaultTopK      = 5
	DefaultThreshold = 0.3
)

// Retriever is immutable after construction and safe for concurrent use.
type Retriever struct {
	embedder  llm.EmbeddingClient
	store     vector.Store
	model     string
	topK      int
	threshold float64
}

type Option func(*Retriever)

func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithThreshold sets the minimum similarity a result must exceed.
func WithThreshold(t float64) Option {
	return func(r *Retriever) { r.threshold = t }
}

func New(embedder llm.EmbeddingClient, store vector.Store, model string, opts ...Option) *Retriever {
	r := &Retriever{
		embedder:  embedder,
		store:     store,
		model:     model,
		topK:      DefaultTopK,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// With returns a copy of r with opts applied.
func (r *Retriever) With(opts ...Option) *Retriever {
	c := *r
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

func (r *Retriever) TopK() int { return r.topK }

func (r *Retriever) Threshold() float64 { return r.threshold }

func (r *Retriever) Store() vector.Store { return r.store }

// Retrieve embeds query and returns up to k results above the threshold,
// ranked by the store. A non-positive k uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]vector.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.NewError("retrieve", core.ErrInvalidInput, fmt.Errorf("empty query"))
	}
	if k <= 0 {
		k = r.topK
	}

	resp, err := r.embedder.Embed(ctx, r.model, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.store.SimilaritySearch(ctx, resp.Embedding, k, r.threshold)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

// FormatContext renders results as a numbered context block for a prompt.
// It returns "" when there are no results.
func FormatContext(results []vector.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "--- Document %d (score: %.3f%s) ---\n", i+1, r.Similarity, sourceLabel(r.Metadata))
		sb.WriteString(r.Content)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sourceLabel(md map[string]any) string {
	src, ok := md["source"]
	if !ok {
		return ""
	}
	if page, ok := md["page"]; ok {
		return fmt.Sprintf(", source: %v p.%v", src, page)
	}
	return fmt.Sprintf(", source: %v", src)
}
