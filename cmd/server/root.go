package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"appraisal/internal/platform/config"
)

var rootCmd = &cobra.Command{
	Use:   "appraisal",
	Short: "Appraisal review workflow API server",
	Long: `appraisal runs review cycles, goal approval and staged appraisals
for an organisation. Configuration is read from the environment.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func setupLogger(cfg config.Config) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
}
