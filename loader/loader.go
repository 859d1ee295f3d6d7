// Package loader extracts plain text from source documents.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hubenschmidt/go-ragdesk/core"
)

// Page is the extracted text of one page. Plain text sources have a single
// page numbered 1.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is a parsed source document.
type Document struct {
	Source string `json:"source"`
	Pages  []Page `json:"pages"`
}

// Text joins all pages with blank lines.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Load parses path according to its extension.
func Load(ctx context.Context, path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return LoadPDF(ctx, path)
	case ".txt", ".md", ".markdown", "":
		return LoadText(path)
	default:
		return nil, parseErr("loader.load", path, fmt.Errorf("unsupported file type %q", filepath.Ext(path)))
	}
}

// LoadPDF opens a PDF file and extracts its text page by page.
func LoadPDF(ctx context.Context, path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, parseErr("loader.pdf", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, parseErr("loader.pdf", path, err)
	}
	return ReadPDF(ctx, filepath.Base(path), f, info.Size())
}

// ReadPDF extracts text from an in-memory or on-disk PDF. The decoder panics
// on some malformed inputs; those panics are reported as parse errors.
func ReadPDF(ctx context.Context, name string, r io.ReaderAt, size int64) (doc *Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = parseErr("loader.pdf", name, fmt.Errorf("malformed pdf: %v", rec))
		}
	}()

	rdr, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, parseErr("loader.pdf", name, err)
	}

	doc = &Document{Source: name}
	for i := 1; i <= rdr.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, parseErr("loader.pdf", name, err)
		}
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, parseErr("loader.pdf", name, fmt.Errorf("page %d: %w", i, err))
		}
		text = normalize(text)
		if text == "" {
			continue
		}
		doc.Pages = append(doc.Pages, Page{Number: i, Text: text})
	}

	if len(doc.Pages) == 0 {
		return nil, parseErr("loader.pdf", name, fmt.Errorf("no extractable text: %w", core.ErrInvalidInput))
	}
	return doc, nil
}

// LoadText reads a UTF-8 text or markdown file.
func LoadText(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, parseErr("loader.text", path, err)
	}
	return ReadText(filepath.Base(path), bytes.NewReader(data))
}

// ReadText reads a text document from r.
func ReadText(name string, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, parseErr("loader.text", name, err)
	}
	text := normalize(string(data))
	if text == "" {
		return nil, parseErr("loader.text", name, fmt.Errorf("empty document: %w", core.ErrInvalidInput))
	}
	return &Document{Source: name, Pages: []Page{{Number: 1, Text: text}}}, nil
}

// normalize unifies line endings and strips NUL bytes the PDF decoder emits
// for unmapped glyphs.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

func parseErr(op, source string, err error) error {
	return core.WithContext(core.ParseError(op, err), "source", source)
}
