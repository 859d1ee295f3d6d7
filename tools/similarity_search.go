package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hubenschmidt/go-ragdesk/retrieval"
	"github.com/hubenschmidt/go-ragdesk/vector"
)

// SimilaritySearchTool searches the knowledge base for passages related to
// a query.
type SimilaritySearchTool struct {
	retriever *retrieval.Retriever
	// OnResults, when set, observes every successful search.
	OnResults func([]vector.SearchResult)
}

func NewSimilaritySearchTool(retriever *retrieval.Retriever) *SimilaritySearchTool {
	return &SimilaritySearchTool{retriever: retriever}
}

func (t *SimilaritySearchTool) Name() string {
	return "similarity_search"
}

func (t *SimilaritySearchTool) Description() string {
	return "Search the knowledge base for passages relevant to a question using semantic similarity. Returns the most relevant passages."
}

func (t *SimilaritySearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The search query to find relevant passages"
			},
			"top_k": {
				"type": "integer",
				"description": "Maximum number of results to return"
			}
		},
		"required": ["query"]
	}`)
}

type searchArgs struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (t *SimilaritySearchTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	req, err := decodeArgs[searchArgs](t.Name(), args)
	if err != nil {
		return "", err
	}

	results, err := t.retriever.Retrieve(ctx, req.Query, req.TopK)
	if err != nil {
		return "", err
	}
	if t.OnResults != nil {
		t.OnResults(results)
	}

	if len(results) == 0 {
		return "No relevant passages found.", nil
	}
	return fmt.Sprintf("Found %d relevant passages:\n\n%s", len(results), retrieval.FormatContext(results)), nil
}
