package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hubenschmidt/go-ragdesk/agent"
	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/history"
	"github.com/hubenschmidt/go-ragdesk/ingest"
	"github.com/hubenschmidt/go-ragdesk/loader"
	"github.com/hubenschmidt/go-ragdesk/monitor"
	"github.com/hubenschmidt/go-ragdesk/retrieval"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Details: map[string]any{"uptime_seconds": int64(time.Since(s.started).Seconds())},
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	count, err := s.retriever.Store().Count(ctx)
	if err != nil {
		resp.Status = "degraded"
		resp.Details["store_error"] = err.Error()
	} else {
		resp.Details["records"] = count
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, core.NewError("server.ask", core.ErrInvalidInput, errors.New("query is required")))
		return
	}
	msgs, err := historyMessages(req.History)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	answer, err := s.agent.Answer(ctx, query, msgs, agent.WithTopK(req.TopK))
	m := monitor.RequestMetrics{Operation: "ask", Duration: time.Since(start), Success: err == nil}
	if err != nil {
		m.Error = err.Error()
		s.metrics.Record(m)
		writeError(w, err)
		return
	}
	m.TokensIn = answer.Usage.PromptTokens
	m.TokensOut = answer.Usage.CompletionTokens
	m.Results = len(answer.Sources)
	s.metrics.Record(m)

	if _, err := s.history.Add(ctx, history.Entry{Query: query, Reply: answer.Text}); err != nil {
		log.Printf("[history] Failed to record answer: %v", err)
	}

	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	retriever := s.retriever
	if req.Threshold != nil {
		t := *req.Threshold
		if t < -1 || t >= 1 {
			writeError(w, core.NewError("server.search", core.ErrInvalidInput, fmt.Errorf("threshold must be in [-1, 1), got %g", t)))
			return
		}
		retriever = retriever.With(retrieval.WithThreshold(t))
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	results, err := retriever.Retrieve(ctx, strings.TrimSpace(req.Query), req.TopK)
	m := monitor.RequestMetrics{Operation: "search", Duration: time.Since(start), Success: err == nil, Results: len(results)}
	if err != nil {
		m.Error = err.Error()
	}
	s.metrics.Record(m)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, core.NewError("server.ingest", core.ErrInvalidInput, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, core.NewError("server.ingest", core.ErrInvalidInput, fmt.Errorf("form field file: %w", err)))
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	name := filepath.Base(header.Filename)

	var doc *loader.Document
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		doc, err = loader.ReadPDF(ctx, name, file, header.Size)
	} else {
		doc, err = loader.ReadText(name, file)
	}

	var result *ingest.Result
	if err == nil {
		result, err = s.ingest.IngestDocument(ctx, doc)
	}

	m := monitor.RequestMetrics{Operation: "ingest", Duration: time.Since(start), Success: err == nil}
	if err != nil {
		m.Error = err.Error()
		s.metrics.Record(m)
		writeError(w, err)
		return
	}
	m.TokensIn = result.Tokens
	m.Results = result.Chunks
	s.metrics.Record(m)

	writeJSON(w, http.StatusOK, IngestResponse{Source: result.Source, IDs: result.IDs, Chunks: result.Chunks})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, core.NewError("server.history", core.ErrInvalidInput, fmt.Errorf("invalid limit %q", v)))
			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Summary())
}

// historyMessages converts client supplied turns, accepting the role
// aliases of core.ParseRole. Empty turns are skipped.
func historyMessages(in []HistoryMessage) ([]core.Message, error) {
	msgs := make([]core.Message, 0, len(in))
	for i, h := range in {
		if strings.TrimSpace(h.Content) == "" {
			continue
		}
		role, ok := core.ParseRole(strings.ToLower(h.Role))
		if !ok || role == core.RoleSystem || role == core.RoleTool {
			return nil, core.NewError("server.ask", core.ErrInvalidInput, fmt.Errorf("history[%d]: unsupported role %q", i, h.Role))
		}
		msgs = append(msgs, core.Message{Role: role, Content: h.Content})
	}
	return msgs, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, core.NewError("server.decode", core.ErrInvalidInput, err))
		return false
	}
	return true
}

// statusFor maps pipeline error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrEmbedding), errors.Is(err, core.ErrGeneration):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[server] %d: %v", status, err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
