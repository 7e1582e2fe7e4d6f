// Package sqlite provides a plugin wrapper for the SQLite writer.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/plugins/schema"
	sqlitewriter "github.com/mr-aminul/moneylogger/pkg/writer/sqlite"
)

// Plugin implements the WriterPlugin interface for a local SQLite database.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "sqlite"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Store expenses in a local SQLite database"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return schema.Object(schema.WithBatching(map[string]any{
		"path": schema.String(`Database file, ":memory:" for a throwaway database`),
	}), "path")
}

// Config represents the SQLite writer configuration.
type Config struct {
	Path          string `json:"path"`
	BatchSize     int    `json:"batchSize,omitempty"`
	FlushInterval int    `json:"flushInterval,omitempty"` // in seconds
}

// NewWriter opens the database and applies the schema.
func (p *Plugin) NewWriter(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling sqlite config: %w", err)
	}

	return sqlitewriter.New(context.Background(), sqlitewriter.Config{
		Path:          cfg.Path,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger)
}
