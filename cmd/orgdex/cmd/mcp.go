package cmd

import (
	"context"
	"fmt"

	"github.com/orgdex/orgdex/internal/api"
	"github.com/orgdex/orgdex/internal/indexer"
	"github.com/orgdex/orgdex/internal/mcp"
	"github.com/orgdex/orgdex/internal/query"
	"github.com/orgdex/orgdex/internal/scheduler"
	"github.com/orgdex/orgdex/internal/store"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server over stdio",
	Long: `Run a Model Context Protocol server over stdio, exposing the index to
MCP clients.

Tools: query_files, get_file, get_stats, reindex.

Example client config:
  {
    "mcpServers": {
      "orgdex": {"command": "orgdex", "args": ["mcp"]}
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		if err := s.InitSchema(); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}

		engine := query.NewEngine(s.DB())

		// The reindex tool reuses the scheduler even though no cron schedule
		// is installed, so concurrent triggers are rejected the same way the
		// API rejects them.
		sched := scheduler.New(func(ctx context.Context) error {
			_, err := indexer.Run(ctx, s, registryReader(), logger, nil)
			return err
		}).WithLogger(logger)
		sched.Start()
		defer func() { <-sched.Stop().Done() }()

		var apiSched api.IndexScheduler = sched
		logger.Info("starting MCP server on stdio")
		return mcp.Serve(cmd.Context(), engine, s, apiSched)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
