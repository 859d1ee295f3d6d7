// Package llmtest provides deterministic stand-ins for the llm clients,
// for use in tests of packages that embed text or call a chat model.
package llmtest

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/llm"
)

// DefaultDimensions is the vector length produced by a zero HashEmbedder.
const DefaultDimensions = 64

var (
	_ llm.EmbeddingClient = (*HashEmbedder)(nil)
	_ llm.Client          = ChatFunc(nil)
	_ llm.ToolClient      = (*ScriptedClient)(nil)
)

// HashEmbedder embeds text by hashing character trigrams of each word into
// a fixed number of buckets. Texts sharing word fragments get a positive
// cosine similarity, which is enough to exercise retrieval end to end.
type HashEmbedder struct {
	Dimensions int
	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls int
}

func (e *HashEmbedder) Embed(ctx context.Context, model, input string) (*llm.EmbeddingResponse, error) {
	results, err := e.EmbedBatch(ctx, model, []string{input})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

func (e *HashEmbedder) EmbedBatch(ctx context.Context, model string, inputs []string) ([]llm.EmbeddingResponse, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.Err != nil {
		return nil, core.EmbeddingError("llmtest.embed", e.Err)
	}
	if len(inputs) == 0 {
		return nil, core.EmbeddingError("llmtest.embed", fmt.Errorf("no inputs: %w", core.ErrInvalidInput))
	}

	results := make([]llm.EmbeddingResponse, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in) == "" {
			return nil, core.EmbeddingError("llmtest.embed", fmt.Errorf("input %d is empty: %w", i, core.ErrInvalidInput))
		}
		results[i] = llm.EmbeddingResponse{Embedding: e.Vector(in), TokenCount: core.EstimateTokens(in)}
	}
	return results, nil
}

// Calls reports how many Embed/EmbedBatch calls were made.
func (e *HashEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Vector returns the unit-length embedding of text.
func (e *HashEmbedder) Vector(text string) []float64 {
	dims := e.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}

	v := make([]float64, dims)
	for _, word := range words(text) {
		padded := []rune(" " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			h := fnv.New32a()
			h.Write([]byte(string(padded[i : i+3])))
			v[h.Sum32()%uint32(dims)]++
		}
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		// non-alphanumeric input still needs a usable vector
		v[0] = 1
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ChatFunc adapts a function to llm.Client.
type ChatFunc func(ctx context.Context, model, system string, msgs []core.Message) (*llm.ChatResponse, error)

func (f ChatFunc) ChatWithMessages(ctx context.Context, model, system string, msgs []core.Message) (*llm.ChatResponse, error) {
	return f(ctx, model, system, msgs)
}

// Reply returns a client that always answers with content.
func Reply(content string) ChatFunc {
	return func(context.Context, string, string, []core.Message) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Content: content, FinishReason: "stop"}, nil
	}
}

// Fail returns a client whose every call fails with a generation error.
func Fail(err error) ChatFunc {
	return func(context.Context, string, string, []core.Message) (*llm.ChatResponse, error) {
		return nil, core.GenerationError("llmtest.chat", err)
	}
}

// Call is one request observed by a ScriptedClient.
type Call struct {
	Model    string
	System   string
	Messages []core.Message
	Tools    []core.ToolSchema
}

// ScriptedClient replays Responses in order and records every request.
// Once the script is exhausted it fails with a generation error.
type ScriptedClient struct {
	Responses []*llm.ChatResponse

	mu    sync.Mutex
	calls []Call
}

func (c *ScriptedClient) ChatWithMessages(ctx context.Context, model, system string, msgs []core.Message) (*llm.ChatResponse, error) {
	return c.ChatWithTools(ctx, model, system, msgs, nil)
}

func (c *ScriptedClient) ChatWithTools(ctx context.Context, model, system string, msgs []core.Message, tools []core.ToolSchema) (*llm.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{
		Model:    model,
		System:   system,
		Messages: append([]core.Message(nil), msgs...),
		Tools:    tools,
	})

	n := len(c.calls)
	if n > len(c.Responses) {
		return nil, core.GenerationError("llmtest.chat", fmt.Errorf("unexpected call %d", n))
	}
	return c.Responses[n-1], nil
}

// Calls returns a copy of the recorded requests.
func (c *ScriptedClient) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}
