package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"file-organizer/backend/go/internal/config"
	"file-organizer/backend/go/internal/organizer_service/app"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := a.Server()
		errCh := make(chan error, 1)
		go func() {
			log.Info(fmt.Sprintf("HTTP server listening at %s", srv.Addr()))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("Server gracefully stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
