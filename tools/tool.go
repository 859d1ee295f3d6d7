// Package tools defines functions the answer agent can offer to the model.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/hubenschmidt/go-ragdesk/core"
)

// Tool is a function the model may call. Parameters is a JSON schema
// object describing the arguments Execute accepts.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// SchemaOf describes t in the form sent to the model.
func SchemaOf(t Tool) core.ToolSchema {
	return core.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}

// decodeArgs parses model supplied arguments into T. Unknown fields are
// rejected so a misspelled argument is reported instead of ignored.
func decodeArgs[T any](tool string, args json.RawMessage) (T, error) {
	var v T
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, core.NewError(tool, core.ErrInvalidInput, fmt.Errorf("parse args: %w", err))
	}
	return v, nil
}
