// Package agent answers questions from retrieved knowledge-base passages
// with a chat model.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/llm"
	"github.com/hubenschmidt/go-ragdesk/retrieval"
	"github.com/hubenschmidt/go-ragdesk/tools"
	"github.com/hubenschmidt/go-ragdesk/vector"
)

type Mode string

const (
	// ModeRetrieve retrieves once and puts the passages in the prompt.
	ModeRetrieve Mode = "retrieve"
	// ModeTools lets the model call similarity_search itself.
	ModeTools Mode = "tools"
)

const DefaultMaxToolIterations = 3

type Config struct {
	Model             string
	SystemPrompt      string
	MemoryTokenLimit  int
	Mode              Mode
	MaxToolIterations int
	Debug             bool
}

// Answer is the model's reply together with what was used to produce it.
type Answer struct {
	Text           string                `json:"answer"`
	Sources        []vector.SearchResult `json:"sources,omitempty"`
	Usage          llm.Usage             `json:"usage"`
	ToolCalls      int                   `json:"tool_calls,omitempty"`
	HistoryDropped int                   `json:"history_dropped,omitempty"`
}

// Agent is immutable after construction and safe for concurrent use.
type Agent struct {
	client    llm.Client
	retriever *retrieval.Retriever
	cfg       Config
}

func New(client llm.Client, retriever *retrieval.Retriever, cfg Config) (*Agent, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeRetrieve
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = DefaultMaxToolIterations
	}

	switch cfg.Mode {
	case ModeRetrieve:
	case ModeTools:
		if _, ok := client.(llm.ToolClient); !ok {
			return nil, core.NewError("agent.new", core.ErrInvalidInput, fmt.Errorf("mode %q needs a tool-calling client", cfg.Mode))
		}
	default:
		return nil, core.NewError("agent.new", core.ErrInvalidInput, fmt.Errorf("unknown mode %q", cfg.Mode))
	}

	return &Agent{client: client, retriever: retriever, cfg: cfg}, nil
}

func (a *Agent) Mode() Mode { return a.cfg.Mode }

type answerOptions struct {
	topK int
}

// AnswerOption adjusts a single Answer call.
type AnswerOption func(*answerOptions)

// WithTopK overrides the number of passages retrieved.
func WithTopK(k int) AnswerOption {
	return func(o *answerOptions) { o.topK = k }
}

// Answer retrieves context for query and asks the model. history holds
// prior turns, oldest first; it is trimmed to the memory token limit before
// every model call. The model's text is returned verbatim.
func (a *Agent) Answer(ctx context.Context, query string, history []core.Message, opts ...AnswerOption) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.NewError("agent.answer", core.ErrInvalidInput, fmt.Errorf("empty query"))
	}

	var o answerOptions
	for _, opt := range opts {
		opt(&o)
	}

	if a.cfg.Mode == ModeTools {
		return a.answerWithTools(ctx, query, history, o)
	}
	return a.answerWithContext(ctx, query, history, o)
}

func (a *Agent) answerWithContext(ctx context.Context, query string, history []core.Message, o answerOptions) (*Answer, error) {
	results, err := a.retriever.Retrieve(ctx, query, o.topK)
	if err != nil {
		return nil, err
	}
	a.debugf("retrieved %d passages above %.2f", len(results), a.retriever.Threshold())

	prompt := BuildPrompt(query, results)
	mem := NewMemory(a.cfg.MemoryTokenLimit, history...)
	dropped := mem.Trim(core.EstimateTokens(a.cfg.SystemPrompt) + core.EstimateTokens(prompt))

	msgs := append(mem.Messages(), core.NewUserMessage(prompt))
	resp, err := a.client.ChatWithMessages(ctx, a.cfg.Model, a.cfg.SystemPrompt, msgs)
	if err != nil {
		return nil, generationError(err)
	}

	return &Answer{
		Text:           resp.Content,
		Sources:        results,
		Usage:          resp.Usage,
		HistoryDropped: dropped,
	}, nil
}

func (a *Agent) answerWithTools(ctx context.Context, query string, history []core.Message, o answerOptions) (*Answer, error) {
	client := a.client.(llm.ToolClient)

	answer := &Answer{}
	retriever := a.retriever
	if o.topK > 0 {
		retriever = retriever.With(retrieval.WithTopK(o.topK))
	}
	search := tools.NewSimilaritySearchTool(retriever)
	search.OnResults = func(r []vector.SearchResult) {
		answer.Sources = append(answer.Sources, r...)
	}
	registry := tools.NewRegistry(search)
	schemas := registry.Schemas()

	mem := NewMemory(a.cfg.MemoryTokenLimit, history...)
	turn := []core.Message{core.NewUserMessage(query)}

	for i := 0; ; i++ {
		answer.HistoryDropped += mem.Trim(core.EstimateTokens(a.cfg.SystemPrompt) + messagesTokens(turn))
		msgs := append(mem.Messages(), turn...)

		var resp *llm.ChatResponse
		var err error
		if i < a.cfg.MaxToolIterations {
			resp, err = client.ChatWithTools(ctx, a.cfg.Model, a.cfg.SystemPrompt, msgs, schemas)
		} else {
			// out of tool budget: the model has to answer with what it has
			resp, err = client.ChatWithMessages(ctx, a.cfg.Model, a.cfg.SystemPrompt, msgs)
		}
		if err != nil {
			return nil, generationError(err)
		}
		addUsage(&answer.Usage, resp.Usage)

		if !resp.HasToolCalls() || i >= a.cfg.MaxToolIterations {
			answer.Text = resp.Content
			return answer, nil
		}

		turn = append(turn, core.Message{Role: core.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			answer.ToolCalls++
			content, err := a.executeToolCall(ctx, registry, call)
			if err != nil {
				return nil, err
			}
			turn = append(turn, core.NewToolMessage(call.ID, content))
		}
	}
}

// executeToolCall runs one tool call. Failures of the embedding or storage
// backends abort the answer; anything else is reported back to the model.
func (a *Agent) executeToolCall(ctx context.Context, registry *tools.Registry, call core.ToolCall) (string, error) {
	tool, ok := registry.Get(call.Name)
	if !ok {
		return fmt.Sprintf("tool not found: %s", call.Name), nil
	}

	a.debugf("tool %s(%s)", call.Name, call.Arguments)
	result, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		if core.KindOf(err) != nil {
			return "", err
		}
		return fmt.Sprintf("error: %v", err), nil
	}
	return result, nil
}

func (a *Agent) debugf(format string, args ...any) {
	if a.cfg.Debug {
		log.Printf("[agent] "+format, args...)
	}
}

func generationError(err error) error {
	if errors.Is(err, core.ErrGeneration) {
		return err
	}
	return core.GenerationError("agent.generate", err)
}

func addUsage(total *llm.Usage, u llm.Usage) {
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
}
