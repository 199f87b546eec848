package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"appraisal/internal/app/server"
	"appraisal/internal/platform/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		setupLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := server.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, overrides APP_ADDR")
}
