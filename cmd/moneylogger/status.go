package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/mr-aminul/moneylogger/internal/plugins"
	"github.com/mr-aminul/moneylogger/pkg/client"
	"github.com/mr-aminul/moneylogger/pkg/config"
	"github.com/mr-aminul/moneylogger/pkg/voice"
)

// statusReport prints check results and remembers whether any failed.
type statusReport struct {
	out     io.Writer
	allGood bool
}

func (s *statusReport) ok(label, format string, args ...any) {
	fmt.Fprintf(s.out, "%s: %s %s\n", label, color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func (s *statusReport) warn(label, format string, args ...any) {
	fmt.Fprintf(s.out, "%s: %s %s\n", label, color.YellowString("⚠"), fmt.Sprintf(format, args...))
}

func (s *statusReport) fail(label string, err error) {
	s.allGood = false
	fmt.Fprintf(s.out, "%s: %s %v\n", label, color.RedString("✗"), err)
}

// newStatusCommand checks the configuration and authentication status.
func newStatusCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration, plugin settings and Google authorization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := &statusReport{out: cmd.OutOrStdout(), allGood: true}
			color.New(color.Bold).Fprintln(r.out, "=== moneylogger status ===")
			fmt.Fprintln(r.out)

			registry, err := newRegistry()
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				r.fail("Configuration", err)
				printFinalStatus(r)
				return nil
			}
			r.ok("Configuration", "%s -> %s, %d categories, currency %s", cfg.ReaderPlugin, cfg.WriterPlugin, len(cfg.Categories), cfg.Currency)

			checkPlugins(r, registry, cfg)
			checkParserData(r, cfg)

			scopes, err := registry.GetAllScopes(cfg.ReaderPlugin, cfg.WriterPlugin)
			if err == nil && len(scopes) > 0 {
				if checkCredentials(r, cfg) {
					checkAPIConnectivity(cmd.Context(), r, cfg, scopes, logger)
				}
			}

			printFinalStatus(r)
			return nil
		},
	}
}

func checkPlugins(r *statusReport, registry *plugins.Registry, cfg config.Config) {
	if p, err := registry.GetReader(cfg.ReaderPlugin); err != nil {
		r.fail("Reader plugin", err)
	} else if _, err := plugins.ValidateConfig(p.Name(), p.ConfigSchema(), cfg.ReaderConfig); err != nil {
		r.fail("Reader plugin", err)
	} else {
		r.ok("Reader plugin", "%s %s", p.Name(), cfg.ReaderConfig)
	}

	if p, err := registry.GetWriter(cfg.WriterPlugin); err != nil {
		r.fail("Writer plugin", err)
	} else if _, err := plugins.ValidateConfig(p.Name(), p.ConfigSchema(), cfg.WriterConfig); err != nil {
		r.fail("Writer plugin", err)
	} else {
		r.ok("Writer plugin", "%s", p.Name())
	}
}

func checkParserData(r *statusReport, cfg config.Config) {
	r.ok("Alias table", "%d keywords", voice.DefaultAliasTable().KeywordCount())

	results := voice.New().RunRegression(voice.RegressionCases(), voice.CoreCategories)
	passed := 0
	for _, res := range results {
		if res.Passed() {
			passed++
		}
	}
	if passed == len(results) {
		r.ok("Regression corpus", "%d/%d transcripts", passed, len(results))
	} else {
		r.warn("Regression corpus", "%d/%d transcripts (run voicecheck for details)", passed, len(results))
	}

	if loc, err := cfg.Location(); err == nil {
		r.ok("Timezone", "%s, today is %s", loc, time.Now().In(loc).Format(voice.ISODateLayout))
	}
}

func checkCredentials(r *statusReport, cfg config.Config) bool {
	if _, err := os.Stat(cfg.SecretsFile); err != nil {
		r.fail(fmt.Sprintf("Credentials file (%s)", cfg.SecretsFile), fmt.Errorf("not found"))
		return false
	}
	r.ok(fmt.Sprintf("Credentials file (%s)", cfg.SecretsFile), "found")

	label := fmt.Sprintf("OAuth token (%s)", client.TokenFile)
	token, err := client.TokenFromFile(client.TokenFile)
	if err != nil {
		r.fail(label, fmt.Errorf("not found (run 'moneylogger setup')"))
		return false
	}
	if token.Expiry.Before(time.Now()) {
		r.warn(label, "expired (will refresh on next run)")
	} else {
		r.ok(label, "valid (expires: %s)", token.Expiry.Format(time.RFC3339))
	}
	return true
}

func checkAPIConnectivity(ctx context.Context, r *statusReport, cfg config.Config, scopes []string, logger *slog.Logger) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "API connectivity:")

	httpClient, err := client.New(ctx, client.Config{
		SecretFile: cfg.SecretsFile,
		Scopes:     scopes,
		Logger:     logger.With("component", "oauth"),
	})
	if err != nil {
		r.fail("  OAuth client", err)
		return
	}

	for _, scope := range scopes {
		switch scope {
		case gmail.GmailReadonlyScope:
			if err := testGmailAPI(ctx, httpClient); err != nil {
				r.fail("  Gmail API", err)
			} else {
				r.ok("  Gmail API", "connected")
			}
		case sheets.SpreadsheetsScope:
			if err := testSheetsAPI(ctx, httpClient, cfg.GSheetsID); err != nil {
				r.fail("  Sheets API", err)
			} else {
				r.ok("  Sheets API", "connected")
			}
		}
	}
}

func printFinalStatus(r *statusReport) {
	fmt.Fprintln(r.out)
	if r.allGood {
		fmt.Fprintf(r.out, "Status: %s\n\n", color.GreenString("✓ Ready to run"))
		fmt.Fprintln(r.out, "Run 'moneylogger run' to start logging expenses.")
	} else {
		fmt.Fprintf(r.out, "Status: %s\n\n", color.RedString("✗ Configuration issues detected"))
		fmt.Fprintln(r.out, "Fix the issues above, then run 'moneylogger status' again.")
	}
}

func testGmailAPI(ctx context.Context, httpClient *http.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	// List labels as a simple connectivity test
	if _, err := svc.Users.Labels.List("me").Context(ctx).Do(); err != nil {
		return fmt.Errorf("API call failed: %w", err)
	}
	return nil
}

func testSheetsAPI(ctx context.Context, httpClient *http.Client, spreadsheetID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	// Without a spreadsheet ID the writer creates one on first run.
	if spreadsheetID == "" {
		return nil
	}
	if _, err := svc.Spreadsheets.Get(spreadsheetID).Fields("spreadsheetId").Context(ctx).Do(); err != nil {
		return fmt.Errorf("API call failed: %w", err)
	}
	return nil
}
