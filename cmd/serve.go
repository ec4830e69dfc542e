package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/humandex/internal/app"
	"github.com/lehigh-university-libraries/humandex/internal/handlers"
	"github.com/lehigh-university-libraries/humandex/internal/images"
	"github.com/lehigh-university-libraries/humandex/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the capture API server",
		Long: `Starts the Humandex JSON API on the configured port.

Clients post captured images to /api/capture, manage the session tone,
replay narration and browse the catalog. Prometheus metrics are served
on /metrics.`,
		Example: `  # Start server on the configured port (default 8888)
  humandex serve

  # Start server on custom port
  humandex serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.mustConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			ctx := cmd.Context()
			shutdownTracing, err := initTracing(ctx, cfg.Tracing, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					slog.Error("Failed to flush traces", "err", err)
				}
			}()

			m := metrics.New(prometheus.DefaultRegisterer)
			a, err := app.New(ctx, cfg, m)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					slog.Error("Failed to close app", "err", err)
				}
			}()

			handler := handlers.New(a.Session, a.Store, a.Audio, images.NewFetcher(), m)

			// Set up routes
			mux := handler.Routes()
			mux.Handle("/metrics", promhttp.Handler())

			addr := ":" + cfg.Server.Port
			server := &http.Server{
				Addr:         addr,
				Handler:      mux,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Humandex API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")

	return cmd
}
