package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hubenschmidt/go-ragdesk/vector"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the SQL that creates the documents table and match function",
	Long: `Print the pgvector schema for the configured table, match function and
embedding dimension. Run it once in the Supabase SQL editor before ingesting;
DATABASE_URL deployments create it automatically.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sql, err := vector.Schema(vector.TableOptions{
			Table:         cfg.Supabase.DocumentsTable,
			MatchFunction: cfg.Supabase.MatchFunction,
			Dimension:     cfg.OpenAI.EmbeddingDimensions,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), sql)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
