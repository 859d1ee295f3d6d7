package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hubenschmidt/go-ragdesk/core"
)

// maxEmbeddingBatch is the number of inputs sent per embeddings request.
const maxEmbeddingBatch = 100

var (
	_ ToolClient      = (*OpenAIClient)(nil)
	_ EmbeddingClient = (*OpenAIClient)(nil)
)

// OpenAIClient talks to the OpenAI chat completions and embeddings APIs.
// Requests are never retried; failures are returned to the caller.
type OpenAIClient struct {
	client      openai.Client
	temperature float64
	maxTokens   int
	dimensions  int
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	cfg := DefaultClientConfig()
	cfg.APIKey = apiKey
	return NewOpenAIClientWithConfig(cfg)
}

func NewOpenAIClientWithConfig(cfg ClientConfig) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		dimensions:  cfg.Dimensions,
	}
}

func (c *OpenAIClient) ChatWithMessages(ctx context.Context, model string, system string, msgs []core.Message) (*ChatResponse, error) {
	return c.ChatWithTools(ctx, model, system, msgs, nil)
}

func (c *OpenAIClient) ChatWithTools(ctx context.Context, model string, system string, msgs []core.Message, tools []core.ToolSchema) (*ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: c.buildMessages(system, msgs),
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}
	if len(tools) > 0 {
		toolParams, err := buildTools(tools)
		if err != nil {
			return nil, core.GenerationError("openai.chat", err)
		}
		params.Tools = toolParams
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, core.GenerationError("openai.chat", err)
	}
	if len(completion.Choices) == 0 {
		return nil, core.GenerationError("openai.chat", fmt.Errorf("no choices in response"))
	}

	return parseCompletion(completion), nil
}

func (c *OpenAIClient) buildMessages(system string, msgs []core.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)

	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}

	for _, m := range msgs {
		switch m.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			messages = append(messages, assistantMessage(m))
		case core.RoleTool:
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	return messages
}

func assistantMessage(m core.Message) openai.ChatCompletionMessageParamUnion {
	if len(m.ToolCalls) == 0 {
		return openai.AssistantMessage(m.Content)
	}

	assistant := openai.ChatCompletionAssistantMessageParam{}
	if m.Content != "" {
		assistant.Content.OfString = openai.String(m.Content)
	}
	for _, tc := range m.ToolCalls {
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: string(tc.Arguments),
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func buildTools(tools []core.ToolSchema) ([]openai.ChatCompletionToolParam, error) {
	result := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		var params openai.FunctionParameters
		if len(t.Parameters) > 0 {
			if err := json.Unmarshal(t.Parameters, &params); err != nil {
				return nil, fmt.Errorf("tool %s parameters: %w", t.Name, err)
			}
		}
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  params,
			},
		})
	}
	return result, nil
}

func parseCompletion(completion *openai.ChatCompletion) *ChatResponse {
	choice := completion.Choices[0]
	result := &ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, core.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}

	return result
}

// Embed generates an embedding for a single input.
func (c *OpenAIClient) Embed(ctx context.Context, model, input string) (*EmbeddingResponse, error) {
	results, err := c.EmbedBatch(ctx, model, []string{input})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// EmbedBatch generates embeddings for multiple inputs, preserving input order.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, model string, inputs []string) ([]EmbeddingResponse, error) {
	if len(inputs) == 0 {
		return nil, core.EmbeddingError("openai.embed", fmt.Errorf("no inputs: %w", core.ErrInvalidInput))
	}
	for i, in := range inputs {
		if strings.TrimSpace(in) == "" {
			return nil, core.EmbeddingError("openai.embed", fmt.Errorf("input %d is empty: %w", i, core.ErrInvalidInput))
		}
	}

	results := make([]EmbeddingResponse, 0, len(inputs))
	for start := 0; start < len(inputs); start += maxEmbeddingBatch {
		end := min(start+maxEmbeddingBatch, len(inputs))
		batch, err := c.embedBatch(ctx, model, inputs[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	return results, nil
}

func (c *OpenAIClient) embedBatch(ctx context.Context, model string, inputs []string) ([]EmbeddingResponse, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model: openai.EmbeddingModel(model),
	}
	if c.dimensions > 0 && strings.HasPrefix(model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(c.dimensions))
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, core.EmbeddingError("openai.embed", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, core.EmbeddingError("openai.embed",
			fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(resp.Data)))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	perInput := int(resp.Usage.PromptTokens) / len(inputs)
	results := make([]EmbeddingResponse, len(data))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, core.EmbeddingError("openai.embed", fmt.Errorf("empty embedding for input %d", i))
		}
		results[i] = EmbeddingResponse{Embedding: d.Embedding, TokenCount: perInput}
	}
	return results, nil
}
