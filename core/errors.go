package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by the pipeline wraps exactly one of
// the first four.
var (
	ErrParse      = errors.New("document parsing failed")
	ErrEmbedding  = errors.New("embedding request failed")
	ErrStorage    = errors.New("vector storage failed")
	ErrGeneration = errors.New("LLM request failed")

	ErrInvalidInput      = errors.New("invalid input")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrNotFound          = errors.New("not found")
)

type Error struct {
	Op      string
	Kind    error
	Err     error
	Context map[string]any
}

func (e *Error) Error() string {
	msg := e.Op
	if src, ok := e.Context["source"]; ok {
		msg = fmt.Sprintf("%s [source=%v]", msg, src)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", msg, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", msg, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func NewError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func ParseError(op string, err error) *Error {
	return NewError(op, ErrParse, err)
}

func EmbeddingError(op string, err error) *Error {
	return NewError(op, ErrEmbedding, err)
}

func StorageError(op string, err error) *Error {
	return NewError(op, ErrStorage, err)
}

func GenerationError(op string, err error) *Error {
	return NewError(op, ErrGeneration, err)
}

func WithContext(err *Error, key string, val any) *Error {
	if err.Context == nil {
		err.Context = make(map[string]any)
	}
	err.Context[key] = val
	return err
}

// KindOf returns the error kind carried by err, or nil when err was not
// produced by this package.
func KindOf(err error) error {
	for _, kind := range []error{ErrParse, ErrEmbedding, ErrStorage, ErrGeneration} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
