// Package ragdesk answers questions about a document collection with
// retrieval augmented generation.
//
// Example usage:
//
//	cfg, _ := config.Load("ragdesk.yaml")
//	svc, err := ragdesk.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	svc.Ingest.IngestFile(ctx, "docs/faq.pdf")
//	answer, err := svc.Agent.Answer(ctx, "What are the operating hours?", nil)
package ragdesk

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hubenschmidt/go-ragdesk/agent"
	"github.com/hubenschmidt/go-ragdesk/chunker"
	"github.com/hubenschmidt/go-ragdesk/config"
	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/history"
	"github.com/hubenschmidt/go-ragdesk/ingest"
	"github.com/hubenschmidt/go-ragdesk/llm"
	"github.com/hubenschmidt/go-ragdesk/monitor"
	"github.com/hubenschmidt/go-ragdesk/retrieval"
	"github.com/hubenschmidt/go-ragdesk/server"
	"github.com/hubenschmidt/go-ragdesk/supabase"
	"github.com/hubenschmidt/go-ragdesk/vector"
)

const Version = "0.1.0"

// Core aliases
type (
	Message     = core.Message
	MessageRole = core.MessageRole
	Error       = core.Error
)

// Pipeline aliases
type (
	Answer       = agent.Answer
	SearchResult = vector.SearchResult
	Record       = vector.Record
	IngestResult = ingest.Result
	HistoryEntry = history.Entry
)

// Services holds every component of a running deployment, built once from
// a Config and shared by the CLI and the HTTP server.
type Services struct {
	Config    *config.Config
	Client    *llm.OpenAIClient
	Store     vector.Store
	Retriever *retrieval.Retriever
	Agent     *agent.Agent
	Ingest    *ingest.Pipeline
	History   history.Store
	Metrics   *monitor.InMemoryCollector
}

// Open validates cfg and connects every service.
func Open(ctx context.Context, cfg *config.Config) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	client := llm.NewOpenAIClientWithConfig(llm.ClientConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Timeout:     cfg.Server.RequestTimeout,
		Temperature: cfg.Agent.Temperature,
		Dimensions:  cfg.OpenAI.EmbeddingDimensions,
	})

	store, err := vector.NewStore(ctx, vector.StoreConfig{
		DatabaseURL: cfg.DatabaseURL,
		SupabaseURL: cfg.Supabase.URL,
		SupabaseKey: cfg.Supabase.Key,
		Timeout:     cfg.Server.RequestTimeout,
		TableOptions: vector.TableOptions{
			Table:         cfg.Supabase.DocumentsTable,
			MatchFunction: cfg.Supabase.MatchFunction,
			Dimension:     cfg.OpenAI.EmbeddingDimensions,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	cfg.Debugf("vector store %T, %d dimensions", store, cfg.OpenAI.EmbeddingDimensions)

	retriever := retrieval.New(client, store, cfg.OpenAI.EmbeddingModel,
		retrieval.WithTopK(cfg.Retrieve.TopK),
		retrieval.WithThreshold(cfg.Retrieve.Threshold),
	)

	a, err := agent.New(client, retriever, agent.Config{
		Model:             cfg.OpenAI.LLMModel,
		SystemPrompt:      cfg.Agent.SystemPrompt,
		MemoryTokenLimit:  cfg.Agent.MemoryTokenLimit,
		Mode:              agent.Mode(cfg.Agent.Mode),
		MaxToolIterations: cfg.Agent.MaxToolIterations,
		Debug:             cfg.Debug,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	hist, err := openHistory(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open history: %w", err)
	}

	pipeline := ingest.New(client, store, cfg.OpenAI.EmbeddingModel,
		ingest.WithChunker(chunker.New(chunker.WithMaxChars(cfg.Ingest.ChunkSize))),
	)

	log.Printf("[ragdesk] Ready: model=%s embeddings=%s mode=%s", cfg.OpenAI.LLMModel, cfg.OpenAI.EmbeddingModel, cfg.Agent.Mode)

	return &Services{
		Config:    cfg,
		Client:    client,
		Store:     store,
		Retriever: retriever,
		Agent:     a,
		Ingest:    pipeline,
		History:   hist,
		Metrics:   monitor.NewInMemoryCollector(),
	}, nil
}

func openHistory(cfg *config.Config) (history.Store, error) {
	var client *supabase.Client
	if cfg.Supabase.URL != "" && cfg.Supabase.Key != "" {
		c, err := supabase.New(cfg.Supabase.URL, cfg.Supabase.Key, supabase.WithTimeout(cfg.Server.RequestTimeout))
		if err != nil {
			return nil, err
		}
		client = c
	}
	return history.NewStore(cfg.HistoryDSN, client, cfg.Supabase.HistoryTable)
}

// Server builds the HTTP API over s.
func (s *Services) Server() (*server.Server, error) {
	return server.New(server.Config{
		Agent:          s.Agent,
		Retriever:      s.Retriever,
		Ingest:         s.Ingest,
		History:        s.History,
		Metrics:        s.Metrics,
		RequestTimeout: s.Config.Server.RequestTimeout,
		Version:        Version,
	})
}

// Close releases the vector and history stores.
func (s *Services) Close() error {
	return errors.Join(s.History.Close(), s.Store.Close())
}
