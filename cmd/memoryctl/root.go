package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Hidden-History/ai-memory-sub002/internal/app"
	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
)

var (
	verbose    bool
	configPath string

	// logger is for CLI-facing operator output; internal/logging's
	// per-category JSONL files carry the structured subsystem records
	// this same process emits while running a subcommand.
	logger *zap.Logger

	current *app.App
)

var rootCmd = &cobra.Command{
	Use:   "memoryctl",
	Short: "Administrative CLI for the project-scoped associative memory layer",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		a, err := app.New(configPath)
		if err != nil {
			return fmt.Errorf("wire app: %w", err)
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		if current != nil {
			if err := current.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "memoryctl: close failed: %v\n", err)
			}
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".ai-memory/config.yaml", "Path to config.yaml")

	rootCmd.AddCommand(
		purgeCmd,
		freshnessCmd,
		queueCmd,
		killSwitchCmd,
		embeddingCmd,
	)
}
