// Package chunker splits document text into bounded-size passages for
// embedding.
package chunker

import (
	"strings"
	"unicode"

	"github.com/hubenschmidt/go-ragdesk/loader"
)

// DefaultMaxChars is the default upper bound of a chunk, in characters.
const DefaultMaxChars = 1000

// Chunk is one passage of a document together with its source metadata.
type Chunk struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Chunker splits text on natural boundaries. Preference order is paragraph
// break, line break, sentence end, any whitespace, and finally a hard cut
// when a single word is longer than the bound.
type Chunker struct {
	maxChars int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxChars sets the chunk size bound. Non-positive values are ignored.
func WithMaxChars(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{maxChars: DefaultMaxChars}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxChars returns the configured bound.
func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// Split returns the trimmed chunks of text in source order. Only whitespace
// is dropped between consecutive chunks.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)

	var chunks []string
	start := 0
	for {
		for start < n && unicode.IsSpace(runes[start]) {
			start++
		}
		if start >= n {
			return chunks
		}
		if n-start <= c.maxChars {
			chunks = append(chunks, strings.TrimRightFunc(string(runes[start:]), unicode.IsSpace))
			return chunks
		}

		end := c.cut(runes, start)
		chunks = append(chunks, strings.TrimRightFunc(string(runes[start:end]), unicode.IsSpace))
		start = end
	}
}

// Chunk splits every page of doc and attaches source, page and a
// document-wide chunk index to each passage.
func (c *Chunker) Chunk(doc *loader.Document) []Chunk {
	var chunks []Chunk
	for _, page := range doc.Pages {
		for _, text := range c.Split(page.Text) {
			chunks = append(chunks, Chunk{
				Text: text,
				Metadata: map[string]any{
					"source": doc.Source,
					"page":   page.Number,
					"chunk":  len(chunks),
				},
			})
		}
	}
	return chunks
}

// cut picks the end of the chunk starting at start. It requires more than
// maxChars runes remaining, so runes[start+maxChars] exists.
func (c *Chunker) cut(runes []rune, start int) int {
	limit := start + c.maxChars
	minCut := start + c.maxChars/3
	if minCut <= start {
		minCut = start + 1
	}

	isBreak := []func(i int) bool{
		func(i int) bool { return isParagraphBreak(runes, i) },
		func(i int) bool { return runes[i] == '\n' },
		func(i int) bool { return unicode.IsSpace(runes[i]) && isSentenceEnd(runes[i-1]) },
	}
	for _, match := range isBreak {
		if i := lastIndex(minCut, limit, match); i > 0 {
			return i
		}
	}
	if i := lastIndex(start+1, limit, func(i int) bool { return unicode.IsSpace(runes[i]) }); i > 0 {
		return i
	}
	return limit
}

// lastIndex scans [from, to] backwards and returns the first index
// satisfying match, or -1.
func lastIndex(from, to int, match func(int) bool) int {
	for i := to; i >= from; i-- {
		if match(i) {
			return i
		}
	}
	return -1
}

func isParagraphBreak(runes []rune, i int) bool {
	if runes[i] != '\n' {
		return false
	}
	return runes[i-1] == '\n' || (i+1 < len(runes) && runes[i+1] == '\n')
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', ';', '。', '！', '？':
		return true
	}
	return false
}
