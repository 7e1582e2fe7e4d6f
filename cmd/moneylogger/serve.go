package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr-aminul/moneylogger/internal/httpapi"
	"github.com/mr-aminul/moneylogger/pkg/config"
	"github.com/mr-aminul/moneylogger/pkg/voice"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(logger *slog.Logger) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the parser over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if addr == "" {
				addr = cfg.HTTPAddr
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			httpLogger := logger.With("component", "http")
			parser := voice.New(
				voice.WithFallbackCategory(cfg.FallbackCategory),
				voice.WithLogger(logger),
			)
			api := httpapi.New(parser, httpapi.Config{
				Categories:  cfg.Categories,
				Location:    loc,
				CORSOrigins: cfg.CORSOrigins,
			}, httpLogger)

			server := &http.Server{
				Addr:              addr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				httpLogger.Info("http api listening", "addr", addr, "cors_origins", cfg.CORSOrigins)
				serveErr <- server.ListenAndServe()
			}()

			select {
			case err := <-serveErr:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serving http: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			httpLogger.Info("shutting down http api")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutting down http api: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: MONEYLOGGER_HTTP_ADDR)")
	return cmd
}
