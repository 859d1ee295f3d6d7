package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hubenschmidt/go-ragdesk"
	"github.com/hubenschmidt/go-ragdesk/config"
)

var (
	cfgFile string
	debug   bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ragdesk",
	Short: "Answer questions about your documents",
	Long: `ragdesk ingests PDF and text documents into a vector store and answers
questions about them with an OpenAI model, citing the passages it used.

Example usage:
  ragdesk ingest docs/*.pdf                   # Chunk, embed and store documents
  ragdesk search "parking"                    # Show the closest passages
  ragdesk ask "What are the operating hours?" # Answer from the documents
  ragdesk serve                               # Start the HTTP API`,
	Version:       ragdesk.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if debug {
			cfg.Debug = true
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (environment variables override it)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")
}

func openServices(ctx context.Context) (*ragdesk.Services, error) {
	return ragdesk.Open(ctx, cfg)
}
