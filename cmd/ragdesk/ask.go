package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hubenschmidt/go-ragdesk/agent"
	"github.com/hubenschmidt/go-ragdesk/history"
)

var (
	askTopK    int
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the ingested documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "list the passages the answer was based on")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	query := strings.Join(args, " ")
	answer, err := svc.Agent.Answer(ctx, query, nil, agent.WithTopK(askTopK))
	if err != nil {
		return err
	}

	if _, err := svc.History.Add(ctx, history.Entry{Query: query, Reply: answer.Text}); err != nil {
		log.Printf("[history] Failed to record answer: %v", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer.Text)
	if askSources && len(answer.Sources) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for _, r := range answer.Sources {
			fmt.Fprintf(out, "  [%.3f] %s\n", r.Similarity, sourceLabel(r))
		}
	}
	svc.Config.Debugf("tokens: %d in, %d out", answer.Usage.PromptTokens, answer.Usage.CompletionTokens)
	return nil
}
