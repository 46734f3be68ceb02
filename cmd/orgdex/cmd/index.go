package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/orgdex/orgdex/internal/indexer"
	"github.com/orgdex/orgdex/internal/store"
	"github.com/spf13/cobra"
)

var indexClear bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Reindex the frontmatter of all registered documents",
	Long: `Scan every document listed in the org-id locations file, extract its
frontmatter block, and rebuild its rows in the index.

Each document is replaced wholesale, so keys removed from a document
disappear from the index. Missing documents are skipped; a document
that fails to index is counted and the run continues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		if err := s.InitSchema(); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}

		if indexClear {
			if err := s.Clear(); err != nil {
				return fmt.Errorf("clear index: %w", err)
			}
		}

		var progress indexer.ProgressFunc
		if isatty.IsTerminal(os.Stderr.Fd()) {
			progress = printProgress
		}

		summary, err := indexer.Run(cmd.Context(), s, registryReader(), logger, progress)
		if progress != nil {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return fmt.Errorf("reindex: %w", err)
		}

		fmt.Printf("Indexed %d documents (%d skipped, %d errors)\n",
			summary.Processed, summary.Skipped, summary.Errors)
		return nil
	},
}

// printProgress renders a live progress bar on stderr.
func printProgress(pct, done, total int) {
	const barWidth = 30
	filled := barWidth * pct / 100
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	fmt.Fprintf(os.Stderr, "\r  [%s] %3d%% (%d/%d)", bar, pct, done, total)
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexClear, "clear", false, "Empty the index before reindexing")
}
