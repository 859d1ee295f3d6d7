// Package config loads service configuration from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service and the CLI.
type Config struct {
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Retrieve RetrieveConfig `yaml:"retrieve"`
	Agent    AgentConfig    `yaml:"agent"`
	Server   ServerConfig   `yaml:"server"`

	// DatabaseURL selects a direct pgvector connection instead of Supabase REST.
	DatabaseURL string `yaml:"database_url"`
	// HistoryDSN selects the chat history backend: a SQLite path, a
	// postgres:// URL, "supabase", or "off".
	HistoryDSN string `yaml:"history_dsn"`
	Debug      bool   `yaml:"debug"`
}

type OpenAIConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	LLMModel            string `yaml:"llm_model"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
}

type SupabaseConfig struct {
	URL            string `yaml:"url"`
	Key            string `yaml:"key"`
	DocumentsTable string `yaml:"documents_table"`
	MatchFunction  string `yaml:"match_function"`
	HistoryTable   string `yaml:"history_table"`
}

type IngestConfig struct {
	ChunkSize int `yaml:"chunk_size"`
}

type RetrieveConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float64 `yaml:"threshold"`
}

type AgentConfig struct {
	Mode              string  `yaml:"mode"` // "retrieve" or "tools"
	SystemPrompt      string  `yaml:"system_prompt"`
	MemoryTokenLimit  int     `yaml:"memory_token_limit"`
	Temperature       float64 `yaml:"temperature"`
	MaxToolIterations int     `yaml:"max_tool_iterations"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com/v1",
			LLMModel:       "gpt-4o",
			EmbeddingModel: "text-embedding-3-small",
		},
		Supabase: SupabaseConfig{
			DocumentsTable: "documents",
			MatchFunction:  "match_documents",
			HistoryTable:   "chat_history",
		},
		Ingest: IngestConfig{
			ChunkSize: 1000,
		},
		Retrieve: RetrieveConfig{
			TopK:      5,
			Threshold: 0.3,
		},
		Agent: AgentConfig{
			Mode:              "retrieve",
			MemoryTokenLimit:  10000,
			Temperature:       0.2,
			MaxToolIterations: 3,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			RequestTimeout: 60 * time.Second,
		},
		HistoryDSN: "data/history.db",
	}
}

// Load builds the configuration. A missing YAML file or .env file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	str("LLM_MODEL", &c.OpenAI.LLMModel)
	str("EMBEDDING_MODEL", &c.OpenAI.EmbeddingModel)
	num("EMBEDDING_DIMENSIONS", &c.OpenAI.EmbeddingDimensions)

	str("SUPABASE_URL", &c.Supabase.URL)
	str("SUPABASE_KEY", &c.Supabase.Key)
	str("DOCUMENTS_TABLE", &c.Supabase.DocumentsTable)
	str("MATCH_FUNCTION", &c.Supabase.MatchFunction)
	str("HISTORY_TABLE", &c.Supabase.HistoryTable)

	str("DATABASE_URL", &c.DatabaseURL)
	str("HISTORY_DSN", &c.HistoryDSN)

	num("CHUNK_SIZE", &c.Ingest.ChunkSize)
	num("TOP_K", &c.Retrieve.TopK)
	float("MATCH_THRESHOLD", &c.Retrieve.Threshold)

	str("AGENT_MODE", &c.Agent.Mode)
	str("SYSTEM_PROMPT", &c.Agent.SystemPrompt)
	num("MEMORY_TOKEN_LIMIT", &c.Agent.MemoryTokenLimit)

	str("ADDR", &c.Server.Addr)
	if v, ok := lookup("REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT: %w", err))
		} else {
			c.Server.RequestTimeout = d
		}
	}

	if v, ok := lookup("DEBUG"); ok && v != "" {
		c.Debug = parseBool(v)
	}

	// Serverless platforms get a smaller memory budget unless one was set.
	if _, set := lookup("MEMORY_TOKEN_LIMIT"); !set && isServerless(lookup) {
		c.Agent.MemoryTokenLimit = 5000
	}

	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.OpenAI.EmbeddingDimensions == 0 {
		c.OpenAI.EmbeddingDimensions = EmbeddingDimensions(c.OpenAI.EmbeddingModel)
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 1000
	}
	if c.Retrieve.TopK <= 0 {
		c.Retrieve.TopK = 5
	}
	if c.Agent.MemoryTokenLimit <= 0 {
		c.Agent.MemoryTokenLimit = 10000
	}
	if c.Agent.MaxToolIterations <= 0 {
		c.Agent.MaxToolIterations = 3
	}
	if c.Agent.Mode == "" {
		c.Agent.Mode = "retrieve"
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 60 * time.Second
	}
}

// Validate reports missing or inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.DatabaseURL == "" && (c.Supabase.URL == "" || c.Supabase.Key == "") {
		errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_KEY (or DATABASE_URL) are required"))
	}
	if c.Agent.Mode != "retrieve" && c.Agent.Mode != "tools" {
		errs = append(errs, fmt.Errorf("AGENT_MODE must be retrieve or tools, got %q", c.Agent.Mode))
	}
	if c.Retrieve.Threshold < -1 || c.Retrieve.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD must be in [-1, 1), got %g", c.Retrieve.Threshold))
	}
	return errors.Join(errs...)
}

// Debugf logs only when DEBUG is enabled.
func (c *Config) Debugf(format string, args ...any) {
	if c != nil && c.Debug {
		log.Printf("[debug] "+format, args...)
	}
}

// EmbeddingDimensions returns the output dimension of a known embedding
// model, defaulting to 1536.
func EmbeddingDimensions(model string) int {
	if d, ok := modelDimensions[model]; ok {
		return d
	}
	return 1536
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func isServerless(lookup lookupFunc) bool {
	if v, ok := lookup("VERCEL"); ok && v == "1" {
		return true
	}
	_, lambda := lookup("AWS_LAMBDA_FUNCTION_NAME")
	return lambda
}
