package server

import "github.com/hubenschmidt/go-ragdesk/vector"

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AskRequest struct {
	Query   string           `json:"query"`
	History []HistoryMessage `json:"history,omitempty"`
	TopK    int              `json:"top_k,omitempty"`
}

type SearchRequest struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

type SearchResponse struct {
	Results []vector.SearchResult `json:"results"`
}

type IngestResponse struct {
	Source string   `json:"source"`
	IDs    []string `json:"ids"`
	Chunks int      `json:"chunks"`
}

type HealthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Details map[string]any `json:"details"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
