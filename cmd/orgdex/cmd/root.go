package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/orgdex/orgdex/internal/config"
	"github.com/orgdex/orgdex/internal/registry"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	homeDir string
	orgRoot string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "orgdex",
	Short: "Frontmatter index for org documents",
	Long: `orgdex indexes the #+KEY: value frontmatter of org documents into a
SQLite database, keyed by org-id, and answers filtered, sorted,
multi-column queries over the index.

Documents are discovered through the org-id locations file; orgdex
never modifies your documents or the locations file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		// Set up logging
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		// Load config (--home is passed through so it influences where
		// config.toml is loaded from, like ORGDEX_HOME).
		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if orgRoot != "" {
			cfg.Org.Root = orgRoot
		}

		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create data directory %s: %w", cfg.HomeDir, err)
		}

		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// registryReader builds the registry reader from the active config.
func registryReader() *registry.Reader {
	return &registry.Reader{
		LocationsPath: cfg.IDLocationsPath(),
		Root:          cfg.Org.Root,
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.orgdex/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides ORGDEX_HOME)")
	rootCmd.PersistentFlags().StringVar(&orgRoot, "root", "", "org document root (overrides [org] root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
