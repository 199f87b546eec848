package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"appraisal/internal/platform/config"
	"appraisal/internal/platform/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply every pending SQL file from the migrations directory in name
order. Applied files are recorded and skipped on later runs. With --seed the
bootstrap HR account is created afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		setupLogger(cfg)
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}

		pool, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer pool.Close()

		applied, err := db.Migrate(cmd.Context(), pool, cfg.MigrationsDir)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("migrations complete", "applied", len(applied), "files", applied)

		if seed, _ := cmd.Flags().GetBool("seed"); seed {
			hrID, err := db.Seed(cmd.Context(), pool, cfg)
			if err != nil {
				return fmt.Errorf("failed to seed: %w", err)
			}
			slog.Info("seed complete", "hrUserId", hrID)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("seed", false, "create the bootstrap HR account after migrating")
}
