package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/go-ragdesk/chunker"
	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/llm/llmtest"
	"github.com/hubenschmidt/go-ragdesk/loader"
	"github.com/hubenschmidt/go-ragdesk/vector"
)

const faq = `Silk Lounge is open from 9am to 11pm daily.

The dress code is smart casual. Children are welcome until 8pm.

Private rooms can be booked for up to forty guests.`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func count(t *testing.T, s vector.Store) int {
	t.Helper()
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestIngestFile(t *testing.T) {
	embedder := &llmtest.HashEmbedder{}
	store := vector.NewMemoryStore(llmtest.DefaultDimensions)
	p := New(embedder, store, "text-embedding-3-small", WithChunker(chunker.New(chunker.WithMaxChars(70))))

	res, err := p.IngestFile(context.Background(), writeFile(t, "faq.txt", faq))
	require.NoError(t, err)

	assert.Equal(t, "faq.txt", res.Source)
	assert.Equal(t, 3, res.Chunks)
	assert.Len(t, res.IDs, 3)
	assert.Positive(t, res.Tokens)
	assert.Equal(t, 3, count(t, store))

	results, err := store.SimilaritySearch(context.Background(), embedder.Vector("Silk Lounge is open from 9am to 11pm daily."), 1, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Silk Lounge is open from 9am to 11pm daily.", results[0].Content)
	assert.Equal(t, "faq.txt", results[0].Metadata["source"])
	assert.Equal(t, 1, results[0].Metadata["page"])
	assert.Equal(t, 0, results[0].Metadata["chunk"])
}

func TestIngestDocument_Batches(t *testing.T) {
	embedder := &llmtest.HashEmbedder{}
	store := vector.NewMemoryStore(llmtest.DefaultDimensions)
	p := New(embedder, store, "m", WithBatchSize(2), WithChunker(chunker.New(chunker.WithMaxChars(70))))

	doc := &loader.Document{Source: "menu.pdf", Pages: []loader.Page{
		{Number: 1, Text: faq},
		{Number: 2, Text: "Afternoon tea is served from 2pm to 5pm."},
	}}
	res, err := p.IngestDocument(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Chunks)
	assert.Equal(t, 2, embedder.Calls())
	assert.Equal(t, 4, count(t, store))
}

func TestIngestDocument_Empty(t *testing.T) {
	embedder := &llmtest.HashEmbedder{}
	p := New(embedder, vector.NewMemoryStore(0), "m")

	res, err := p.IngestDocument(context.Background(), &loader.Document{Source: "blank.pdf"})
	require.NoError(t, err)
	assert.Zero(t, res.Chunks)
	assert.Empty(t, res.IDs)
	assert.Zero(t, embedder.Calls())
}

func TestIngest_EmbeddingFailureStoresNothing(t *testing.T) {
	store := vector.NewMemoryStore(0)
	p := New(&llmtest.HashEmbedder{Err: errors.New("rate limited")}, store, "m")

	_, err := p.IngestFile(context.Background(), writeFile(t, "faq.txt", faq))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.Contains(t, err.Error(), "faq.txt")
	assert.Contains(t, err.Error(), "chunks 0-0")
	assert.Zero(t, count(t, store))
}

func TestIngest_StorageFailure(t *testing.T) {
	store := vector.NewMemoryStore(1536)
	p := New(&llmtest.HashEmbedder{}, store, "m")

	_, err := p.IngestFile(context.Background(), writeFile(t, "faq.md", faq))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "faq.md")
}

func TestIngest_ParseFailure(t *testing.T) {
	p := New(&llmtest.HashEmbedder{}, vector.NewMemoryStore(0), "m")
	_, err := p.IngestFile(context.Background(), writeFile(t, "broken.pdf", "not a pdf"))
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestIngestFiles_StopsAtFirstFailure(t *testing.T) {
	store := vector.NewMemoryStore(llmtest.DefaultDimensions)
	p := New(&llmtest.HashEmbedder{}, store, "m")

	paths := []string{
		writeFile(t, "a.txt", "Breakfast is served until 11am."),
		writeFile(t, "b.txt", "   "),
		writeFile(t, "c.txt", "Valet parking is available."),
	}

	var seen []string
	results, err := p.IngestFiles(context.Background(), paths, func(path string, res *Result, err error) {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		seen = append(seen, filepath.Base(path)+":"+status)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrParse)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].Source)
	assert.Equal(t, []string{"a.txt:ok", "b.txt:failed"}, seen)
	assert.Equal(t, 1, count(t, store))
}

func TestIngestFiles_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(&llmtest.HashEmbedder{}, vector.NewMemoryStore(0), "m")
	results, err := p.IngestFiles(ctx, []string{writeFile(t, "a.txt", "x")}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestResultIDsAreUnique(t *testing.T) {
	store := vector.NewMemoryStore(0)
	p := New(&llmtest.HashEmbedder{}, store, "m", WithChunker(chunker.New(chunker.WithMaxChars(20))))

	res, err := p.IngestDocument(context.Background(), &loader.Document{Source: "x", Pages: []loader.Page{
		{Number: 1, Text: strings.Repeat("Lounge hours vary. ", 20)},
	}})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, id := range res.IDs {
		assert.False(t, seen[id])
		seen[id] = true
	}
}
