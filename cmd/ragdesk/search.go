package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hubenschmidt/go-ragdesk/retrieval"
	"github.com/hubenschmidt/go-ragdesk/vector"
)

var (
	searchTopK      int
	searchThreshold float64
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the passages most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of passages (default from config)")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum cosine similarity (default from config)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	retriever := svc.Retriever
	if cmd.Flags().Changed("threshold") {
		retriever = retriever.With(retrieval.WithThreshold(searchThreshold))
	}

	query := strings.Join(args, " ")
	results, err := retriever.Retrieve(ctx, query, searchTopK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "No passages above %.2f for %q\n", retriever.Threshold(), query)
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%d. [%.3f] %s\n", i+1, r.Similarity, sourceLabel(r))
		fmt.Fprintf(out, "   %s\n\n", preview(r.Content, 200))
	}
	return nil
}

func sourceLabel(r vector.SearchResult) string {
	source, _ := r.Metadata["source"].(string)
	if source == "" {
		source = r.ID
	}
	if page, ok := r.Metadata["page"]; ok {
		return fmt.Sprintf("%s p.%v", source, page)
	}
	return source
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return s
}
