package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mr-aminul/moneylogger/internal/plugins"
	"github.com/mr-aminul/moneylogger/pkg/client"
	"github.com/mr-aminul/moneylogger/pkg/config"
)

// newSetupCommand handles the OAuth setup flow.
func newSetupCommand(logger *slog.Logger) *cobra.Command {
	var (
		force bool
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Authorize Google access for the gmail reader and sheets writer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			color.New(color.Bold).Fprintln(out, "=== moneylogger setup ===")
			fmt.Fprintln(out)

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			registry, err := newRegistry()
			if err != nil {
				return err
			}

			var scopes []string
			if all {
				scopes = allScopes(registry)
			} else if scopes, err = registry.GetAllScopes(cfg.ReaderPlugin, cfg.WriterPlugin); err != nil {
				return err
			}
			if len(scopes) == 0 {
				fmt.Fprintf(out, "%s -> %s needs no Google access. Use --all to authorize every plugin.\n",
					cfg.ReaderPlugin, cfg.WriterPlugin)
				return nil
			}

			if _, err := os.Stat(cfg.SecretsFile); errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("credentials file not found: %s\n\nTo get your credentials:\n"+
					"1. Go to https://console.cloud.google.com/apis/credentials\n"+
					"2. Create an OAuth 2.0 Client ID (Desktop application)\n"+
					"3. Download the JSON file and save it as '%s'", cfg.SecretsFile, cfg.SecretsFile)
			}

			if !force {
				if _, err := os.Stat(client.TokenFile); err == nil {
					fmt.Fprintf(out, "Already authenticated! Token file exists: %s\n\n", client.TokenFile)
					fmt.Fprintln(out, "To re-authenticate, run: moneylogger setup --force")
					return nil
				}
			} else {
				if err := os.Remove(client.TokenFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
					logger.Warn("failed to remove existing token", "error", err)
				}
				fmt.Fprintln(out, "Forcing re-authentication...")
			}

			fmt.Fprintln(out, "Requested permissions:")
			for _, s := range scopes {
				fmt.Fprintf(out, "  - %s\n", s)
			}
			fmt.Fprintln(out)

			_, err = client.New(cmd.Context(), client.Config{
				SecretFile:  cfg.SecretsFile,
				Scopes:      scopes,
				Interactive: true,
				Logger:      logger.With("component", "oauth"),
			})
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			fmt.Fprintln(out)
			color.New(color.FgGreen, color.Bold).Fprintln(out, "=== Setup complete ===")
			fmt.Fprintf(out, "Token saved to: %s\n", client.TokenFile)
			fmt.Fprintln(out, "Run 'moneylogger status' to check the configuration, then 'moneylogger run'.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Discard the stored token and authenticate again")
	cmd.Flags().BoolVar(&all, "all", false, "Request the scopes of every plugin, not just the configured ones")
	return cmd
}

func allScopes(registry *plugins.Registry) []string {
	seen := make(map[string]bool)
	var scopes []string
	add := func(s []string) {
		for _, scope := range s {
			if !seen[scope] {
				seen[scope] = true
				scopes = append(scopes, scope)
			}
		}
	}
	for _, p := range registry.ListReaders() {
		add(p.RequiredScopes())
	}
	for _, p := range registry.ListWriters() {
		add(p.RequiredScopes())
	}
	return scopes
}
