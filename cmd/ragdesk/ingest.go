package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hubenschmidt/go-ragdesk/ingest"
)

// documentPattern selects the files picked up from a directory argument.
const documentPattern = "**/*.{pdf,PDF,txt,md,markdown}"

var showIDs bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <path|glob>...",
	Short: "Chunk, embed and store documents",
	Long: `Load each PDF or text document, split it into chunks, embed the chunks
and insert them into the vector store.

Arguments may be files, directories (searched recursively) or glob patterns:
  ragdesk ingest handbook.pdf
  ragdesk ingest docs/
  ragdesk ingest 'docs/**/*.pdf'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&showIDs, "ids", false, "print the id of every stored record")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents matched %s", strings.Join(args, " "))
	}

	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	results, err := svc.Ingest.IngestFiles(ctx, paths, func(path string, _ *ingest.Result, err error) {
		if err == nil {
			bar.Describe("[cyan]Ingesting[reset] " + filepath.Base(path))
		}
		bar.Add(1)
	})

	out := cmd.OutOrStdout()
	var chunks, tokens int
	for _, r := range results {
		chunks += r.Chunks
		tokens += r.Tokens
		fmt.Fprintf(out, "%s: %d chunks\n", r.Source, r.Chunks)
		if showIDs {
			for _, id := range r.IDs {
				fmt.Fprintf(out, "  %s\n", id)
			}
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nIngested %d documents, %d chunks, ~%d tokens\n", len(results), chunks, tokens)
	return nil
}

// expandPaths resolves files, directories and glob patterns into a sorted,
// de-duplicated list of files.
func expandPaths(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		pattern := filepath.ToSlash(arg)
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			pattern = strings.TrimSuffix(pattern, "/") + "/" + documentPattern
		case err == nil:
			add(arg)
			continue
		case !containsMeta(arg):
			return nil, fmt.Errorf("%s: %w", arg, err)
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}

func containsMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
