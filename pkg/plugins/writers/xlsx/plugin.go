// Package xlsx provides a plugin wrapper for the Excel workbook writer.
package xlsx

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/plugins/schema"
	xlsxwriter "github.com/mr-aminul/moneylogger/pkg/writer/xlsx"
)

// Plugin implements the WriterPlugin interface for Excel workbooks.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "xlsx"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Append expenses to an Excel workbook"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return schema.Object(schema.WithBatching(map[string]any{
		"filePath": schema.String("Path to the .xlsx workbook, created when missing"),
		"sheet":    schema.String("Worksheet name (default: " + xlsxwriter.DefaultSheet + ")"),
	}), "filePath")
}

// Config represents the workbook writer configuration.
type Config struct {
	FilePath      string `json:"filePath"`
	Sheet         string `json:"sheet,omitempty"`
	BatchSize     int    `json:"batchSize,omitempty"`
	FlushInterval int    `json:"flushInterval,omitempty"` // in seconds
}

// NewWriter creates a new workbook writer instance.
func (p *Plugin) NewWriter(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling xlsx config: %w", err)
	}

	return xlsxwriter.New(xlsxwriter.Config{
		FilePath:      cfg.FilePath,
		Sheet:         cfg.Sheet,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger)
}
