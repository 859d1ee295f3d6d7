package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/hubenschmidt/go-ragdesk/agent"
	"github.com/hubenschmidt/go-ragdesk/history"
	"github.com/hubenschmidt/go-ragdesk/ingest"
	"github.com/hubenschmidt/go-ragdesk/monitor"
	"github.com/hubenschmidt/go-ragdesk/retrieval"
)

const (
	// MaxUploadBytes limits POST /ingest bodies.
	MaxUploadBytes = 10 << 20
	maxJSONBytes   = 1 << 20

	defaultRequestTimeout = 60 * time.Second
)

// Config configures a new Server instance. Agent, Retriever and Ingest are
// required.
type Config struct {
	Agent     *agent.Agent
	Retriever *retrieval.Retriever
	Ingest    *ingest.Pipeline

	History history.Store            // Optional: defaults to a NopStore
	Metrics monitor.MetricsCollector // Optional: defaults to an in-memory collector

	RequestTimeout time.Duration
	Version        string
}

// Server is the HTTP front of the question answering service.
type Server struct {
	agent     *agent.Agent
	retriever *retrieval.Retriever
	ingest    *ingest.Pipeline
	history   history.Store
	metrics   monitor.MetricsCollector
	timeout   time.Duration
	version   string
	started   time.Time
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Agent == nil || cfg.Retriever == nil || cfg.Ingest == nil {
		return nil, errors.New("server: agent, retriever and ingest pipeline are required")
	}

	hist := cfg.History
	if hist == nil {
		hist = history.NopStore{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = monitor.NewInMemoryCollector()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	return &Server{
		agent:     cfg.Agent,
		retriever: cfg.Retriever,
		ingest:    cfg.Ingest,
		history:   hist,
		metrics:   metrics,
		timeout:   timeout,
		version:   version,
		started:   time.Now(),
	}, nil
}

// Close releases the history and vector stores.
func (s *Server) Close() error {
	return errors.Join(s.history.Close(), s.retriever.Store().Close())
}

// Handler returns an http.Handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /ingest", s.handleIngest)

	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /metrics/summary", s.handleMetricsSummary)

	return corsMiddleware(mux)
}
