// Package mbox provides a plugin wrapper for the mailbox export reader.
package mbox

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/plugins/schema"
	mboxreader "github.com/mr-aminul/moneylogger/pkg/reader/mbox"
)

// Plugin implements the ReaderPlugin interface for mbox files.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "mbox"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Backfill transcripts from an exported mbox file"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return schema.Object(map[string]any{
		"path":    schema.String("Path to the mbox file"),
		"subject": schema.String("Only read messages whose subject contains this text"),
	}, "path")
}

// Config represents the mbox reader configuration.
type Config struct {
	Path    string `json:"path"`
	Subject string `json:"subject,omitempty"`
}

// NewReader creates a new mbox reader instance.
func (p *Plugin) NewReader(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Reader, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling mbox config: %w", err)
	}
	return mboxreader.New(mboxreader.Config{Path: cfg.Path, Subject: cfg.Subject}, logger)
}
