package llm

import (
	"context"
	"time"

	"github.com/hubenschmidt/go-ragdesk/core"
)

// Client generates chat completions.
type Client interface {
	ChatWithMessages(ctx context.Context, model string, system string, msgs []core.Message) (*ChatResponse, error)
}

// ToolClient is a Client that can offer function tools to the model.
type ToolClient interface {
	Client
	ChatWithTools(ctx context.Context, model string, system string, msgs []core.Message, tools []core.ToolSchema) (*ChatResponse, error)
}

// EmbeddingClient turns text into fixed-length vectors.
type EmbeddingClient interface {
	Embed(ctx context.Context, model, input string) (*EmbeddingResponse, error)
	EmbedBatch(ctx context.Context, model string, inputs []string) ([]EmbeddingResponse, error)
}

type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	// Dimensions requests shortened embeddings from text-embedding-3 models.
	Dimensions int
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:     60 * time.Second,
		Temperature: 0.2,
	}
}
