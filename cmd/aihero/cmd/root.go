// Package cmd provides the CLI commands for aihero.
package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnefuIII/aihero/internal/config"
	"github.com/AnefuIII/aihero/internal/logging"
	"github.com/AnefuIII/aihero/internal/search"
	"github.com/AnefuIII/aihero/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the aihero CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aihero",
		Short: "Hybrid keyword and semantic search over project documentation",
		Long: `aihero indexes a documentation tree and serves hybrid retrieval,
combining keyword search with vector similarity. Results can be
queried from the command line or exposed to AI clients over MCP.

Run 'aihero init' once, then 'aihero index' and 'aihero search'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("aihero version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err.Error())
		return err
	}
	return nil
}

func setupLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	cfg.WriteToStderr = false
	if debugMode {
		cfg.Level = "debug"
		cfg.WriteToStderr = true
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// projectRoot resolves the project root from the working directory.
func projectRoot() string {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	return root
}

// engineConfig maps file configuration onto engine settings.
func engineConfig(cfg *config.Config) search.EngineConfig {
	ec := search.DefaultConfig()
	if cfg.Search.MaxResults > 0 {
		ec.MaxLimit = cfg.Search.MaxResults
	}
	if cfg.Search.CandidateFactor > 0 {
		ec.CandidateFactor = cfg.Search.CandidateFactor
	}
	if cfg.Search.EmbedTimeout > 0 {
		ec.EmbedTimeout = cfg.Search.EmbedTimeout
	}
	ec.DefaultWeights = search.Weights{
		Keyword: cfg.Search.KeywordWeight,
		Vector:  cfg.Search.VectorWeight,
	}
	return ec
}

// humanDuration rounds for display.
func humanDuration(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}

// joinRoot resolves a possibly relative path against the project root.
func joinRoot(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
