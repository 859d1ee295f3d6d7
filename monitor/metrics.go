package monitor

import "time"

// RequestMetrics describes one served request.
type RequestMetrics struct {
	Operation string        `json:"operation"` // ask, search, ingest
	TokensIn  int           `json:"tokens_in"`
	TokensOut int           `json:"tokens_out"`
	Results   int           `json:"results"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// OperationSummary aggregates the requests of one operation.
type OperationSummary struct {
	Requests     int     `json:"requests"`
	Errors       int     `json:"errors"`
	TokensIn     int     `json:"tokens_in"`
	TokensOut    int     `json:"tokens_out"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	AvgResults   float64 `json:"avg_results"`
}

type Summary struct {
	TotalRequests int                         `json:"total_requests"`
	TotalErrors   int                         `json:"total_errors"`
	TotalTokens   int                         `json:"total_tokens"`
	AvgLatencyMs  float64                     `json:"avg_latency_ms"`
	Operations    map[string]OperationSummary `json:"operations"`
	StartTime     time.Time                   `json:"start_time"`
	EndTime       time.Time                   `json:"end_time"`
}
