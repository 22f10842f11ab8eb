// Package cmd wires the CLI. Commands stay thin: load config, pick a
// backend through the registry, delegate.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docent-ai/docent/internal/backend"
	"github.com/docent-ai/docent/internal/config"
	"github.com/docent-ai/docent/internal/log"
)

// backendFlag overrides the configured backend tag for one invocation.
var backendFlag string

var rootCmd = &cobra.Command{
	Use:   "docent",
	Short: "Docent answers questions from seeded documentation",
	Long: `Docent is a documentation Q&A engine. Seed it with documentation
chunks, then ask questions; answers are grounded in retrieved passages
and cite their source URLs.

Backends: "engine" runs retrieval in-process against PostgreSQL,
"assistant" proxies a hosted assistant API, "server" talks to a
separately running engine process.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "",
		`backend override: "engine", "assistant", or "server"`)
}

// loadBackend loads config and resolves the selected backend variant.
func loadBackend(cmd *cobra.Command) (backend.Backend, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	b, loadErr := backend.NewDefaultRegistry().Load(cmd.Context(), cfg.Backend, backend.Deps{
		Config: cfg,
		Logger: logger,
	})
	if loadErr != nil {
		return nil, nil, loadErr
	}
	return b, cfg, nil
}
