package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mr-aminul/moneylogger/internal/daemon"
	"github.com/mr-aminul/moneylogger/pkg/client"
	"github.com/mr-aminul/moneylogger/pkg/config"
)

// newRunCommand starts the reader -> extractor -> writer pipeline.
func newRunCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the configured reader and writer until the input ends or a signal arrives",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			registry, err := newRegistry()
			if err != nil {
				return err
			}

			logger.Info("configuration loaded",
				"reader", cfg.ReaderPlugin,
				"writer", cfg.WriterPlugin,
				"timezone", cfg.Timezone,
			)

			scopes, err := registry.GetAllScopes(cfg.ReaderPlugin, cfg.WriterPlugin)
			if err != nil {
				return err
			}

			var httpClient *http.Client
			if len(scopes) > 0 {
				logger.Info("OAuth scopes required", "scopes", scopes)
				httpClient, err = client.New(ctx, client.Config{
					SecretFile: cfg.SecretsFile,
					Scopes:     scopes,
					Logger:     logger.With("component", "oauth"),
				})
				if err != nil {
					return fmt.Errorf("creating http client: %w", err)
				}
			}

			stats, err := daemon.New(registry, httpClient, logger).Run(ctx, cfg)
			fmt.Fprintf(cmd.OutOrStdout(), "%d transcripts, %d valid, %d need review\n",
				stats.Transcripts, stats.Valid, stats.NeedsConfirmation)
			return err
		},
	}
}
