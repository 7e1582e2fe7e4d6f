// Command moneylogger turns dictated expense notes into structured records.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mr-aminul/moneylogger/internal/plugins"
	"github.com/mr-aminul/moneylogger/pkg/logging"
	gmailreader "github.com/mr-aminul/moneylogger/pkg/plugins/readers/gmail"
	inboxreader "github.com/mr-aminul/moneylogger/pkg/plugins/readers/inbox"
	linesreader "github.com/mr-aminul/moneylogger/pkg/plugins/readers/lines"
	mboxreader "github.com/mr-aminul/moneylogger/pkg/plugins/readers/mbox"
	csvwriter "github.com/mr-aminul/moneylogger/pkg/plugins/writers/csv"
	jsonwriter "github.com/mr-aminul/moneylogger/pkg/plugins/writers/json"
	postgreswriter "github.com/mr-aminul/moneylogger/pkg/plugins/writers/postgres"
	sheetswriter "github.com/mr-aminul/moneylogger/pkg/plugins/writers/sheets"
	sqlitewriter "github.com/mr-aminul/moneylogger/pkg/plugins/writers/sqlite"
	xlsxwriter "github.com/mr-aminul/moneylogger/pkg/plugins/writers/xlsx"
)

func main() {
	logger := logging.Setup(logging.DefaultConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand(logger).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:          "moneylogger",
		Short:        "Turn dictated expense notes into structured records",
		SilenceUsage: true,
	}

	root.AddCommand(
		newParseCommand(),
		newRunCommand(logger),
		newServeCommand(logger),
		newPluginsCommand(),
		newStatusCommand(logger),
		newSetupCommand(logger),
	)
	return root
}

// newRegistry registers every built-in plugin.
func newRegistry() (*plugins.Registry, error) {
	registry := plugins.NewRegistry()

	readers := []plugins.ReaderPlugin{
		&linesreader.Plugin{},
		&inboxreader.Plugin{},
		&mboxreader.Plugin{},
		&gmailreader.Plugin{},
	}
	for _, p := range readers {
		if err := registry.RegisterReader(p); err != nil {
			return nil, err
		}
	}

	writers := []plugins.WriterPlugin{
		&jsonwriter.Plugin{},
		&csvwriter.Plugin{},
		&xlsxwriter.Plugin{},
		&sqlitewriter.Plugin{},
		&postgreswriter.Plugin{},
		&sheetswriter.Plugin{},
	}
	for _, p := range writers {
		if err := registry.RegisterWriter(p); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
