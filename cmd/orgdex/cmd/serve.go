package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/orgdex/orgdex/internal/api"
	"github.com/orgdex/orgdex/internal/indexer"
	"github.com/orgdex/orgdex/internal/query"
	"github.com/orgdex/orgdex/internal/scheduler"
	"github.com/orgdex/orgdex/internal/store"
	"github.com/spf13/cobra"
)

var serveSchedule string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server for querying the frontmatter index.

Endpoints (under /api/v1, authenticated when [server] api_key is set):
  POST /query             run a column/filter/sort query
  GET  /files/{id}        all indexed entries for one document
  GET  /stats             index statistics
  POST /reindex           trigger a reindex
  GET  /scheduler/status  reindex job status

When [index] schedule is set (or --schedule is given), a cron job
reindexes the documents periodically.`,
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

		schedule := cfg.Index.Schedule
		if serveSchedule != "" {
			schedule = serveSchedule
		}

		var sched *scheduler.Scheduler
		if schedule != "" {
			sched = scheduler.New(func(ctx context.Context) error {
				_, err := indexer.Run(ctx, s, registryReader(), logger, nil)
				return err
			}).WithLogger(logger)
			if err := sched.Schedule(schedule); err != nil {
				return err
			}
			sched.Start()
		}

		// The interface value must stay nil when no scheduler exists so the
		// handlers can report 503 instead of calling through a nil pointer.
		var apiSched api.IndexScheduler
		if sched != nil {
			apiSched = sched
		}
		server := api.NewServer(cfg, engine, s, apiSched, logger)

		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("api server: %w", err)
		case <-cmd.Context().Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}

		if sched != nil {
			select {
			case <-sched.Stop().Done():
			case <-time.After(30 * time.Second):
				logger.Warn("timed out waiting for scheduled reindex to stop")
			}
		}

		return cmd.Context().Err()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveSchedule, "schedule", "", "cron expression for periodic reindexing (overrides [index] schedule)")
}
