// Package lines provides a plugin wrapper for the line reader.
package lines

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/plugins/schema"
	linesreader "github.com/mr-aminul/moneylogger/pkg/reader/lines"
)

// Plugin implements the ReaderPlugin interface for newline-delimited transcripts.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "lines"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Read one transcript per line from a file or standard input"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return schema.Object(map[string]any{
		"path": schema.String(`File to read, "-" for standard input (default: "-")`),
	})
}

// Config represents the line reader configuration.
type Config struct {
	Path string `json:"path,omitempty"`
}

// NewReader creates a new line reader instance.
func (p *Plugin) NewReader(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Reader, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling lines config: %w", err)
	}
	return linesreader.New(linesreader.Config{Path: cfg.Path}, logger), nil
}
