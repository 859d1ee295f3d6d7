// Package ingest turns source documents into stored, embedded chunks.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hubenschmidt/go-ragdesk/chunker"
	"github.com/hubenschmidt/go-ragdesk/llm"
	"github.com/hubenschmidt/go-ragdesk/loader"
	"github.com/hubenschmidt/go-ragdesk/vector"
)

// DefaultBatchSize is the number of chunks embedded per request.
const DefaultBatchSize = 100

// Result describes one ingested document.
type Result struct {
	Source  string        `json:"source"`
	IDs     []string      `json:"ids"`
	Chunks  int           `json:"chunks"`
	Tokens  int           `json:"tokens"`
	Elapsed time.Duration `json:"elapsed"`
}

// Pipeline runs load, chunk, embed and insert for one document at a time.
// It holds no per-call state and is safe for concurrent use.
type Pipeline struct {
	embedder  llm.EmbeddingClient
	store     vector.Store
	chunker   *chunker.Chunker
	model     string
	batchSize int
}

type Option func(*Pipeline)

func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) { p.chunker = c }
}

func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func New(embedder llm.EmbeddingClient, store vector.Store, model string, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:  embedder,
		store:     store,
		chunker:   chunker.New(),
		model:     model,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestFile loads path and ingests it.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Result, error) {
	doc, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.IngestDocument(ctx, doc)
}

// IngestDocument chunks doc, embeds every chunk and inserts the records in
// one call. Nothing is stored if any chunk fails to embed.
func (p *Pipeline) IngestDocument(ctx context.Context, doc *loader.Document) (*Result, error) {
	start := time.Now()
	chunks := p.chunker.Chunk(doc)
	result := &Result{Source: doc.Source, Chunks: len(chunks), IDs: []string{}}
	if len(chunks) == 0 {
		return result, nil
	}

	records := make([]vector.Record, 0, len(chunks))
	for from := 0; from < len(chunks); from += p.batchSize {
		to := min(from+p.batchSize, len(chunks))

		texts := make([]string, to-from)
		for i, c := range chunks[from:to] {
			texts[i] = c.Text
		}

		embeddings, err := p.embedder.EmbedBatch(ctx, p.model, texts)
		if err != nil {
			return nil, fmt.Errorf("ingest %s chunks %d-%d: %w", doc.Source, from, to-1, err)
		}
		if len(embeddings) != len(texts) {
			return nil, fmt.Errorf("ingest %s chunks %d-%d: got %d embeddings for %d chunks",
				doc.Source, from, to-1, len(embeddings), len(texts))
		}

		for i, e := range embeddings {
			c := chunks[from+i]
			records = append(records, vector.Record{Content: c.Text, Metadata: c.Metadata, Embedding: e.Embedding})
			result.Tokens += e.TokenCount
		}
	}

	ids, err := p.store.Insert(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("ingest %s chunks 0-%d: %w", doc.Source, len(records)-1, err)
	}

	result.IDs = ids
	result.Elapsed = time.Since(start)
	log.Printf("[ingest] %s: %d pages, %d chunks stored in %s", doc.Source, len(doc.Pages), len(ids), result.Elapsed.Round(time.Millisecond))
	return result, nil
}

// Progress is called after each file of IngestFiles.
type Progress func(path string, result *Result, err error)

// IngestFiles ingests paths one after another and stops at the first
// failure, returning the results collected so far.
func (p *Pipeline) IngestFiles(ctx context.Context, paths []string, progress Progress) ([]*Result, error) {
	results := make([]*Result, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := p.IngestFile(ctx, path)
		if progress != nil {
			progress(path, res, err)
		}
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
