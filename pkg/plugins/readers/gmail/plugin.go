// Package gmail provides a plugin wrapper for the Gmail reader.
package gmail

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/plugins/schema"
	gmailreader "github.com/mr-aminul/moneylogger/pkg/reader/gmail"
)

// Plugin implements the ReaderPlugin interface for Gmail.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "gmail"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Read dictated transcripts from unread Gmail messages"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return []string{
		gmailapi.GmailReadonlyScope,
		gmailapi.GmailModifyScope,
	}
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return schema.Object(map[string]any{
		"query":    schema.String("Gmail search query selecting transcript messages (default: " + gmailreader.DefaultQuery + ")"),
		"interval": schema.Integer("Interval in seconds between polls (default: 30)", 30),
	})
}

// Config represents the Gmail reader configuration.
type Config struct {
	Query    string `json:"query,omitempty"`
	Interval int    `json:"interval,omitempty"` // in seconds
}

// NewReader creates a new Gmail reader instance.
func (p *Plugin) NewReader(httpClient *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Reader, error) {
	if httpClient == nil {
		return nil, errors.New("gmail reader requires an authorized http client")
	}

	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling gmail config: %w", err)
	}

	readerCfg := gmailreader.Config{
		Query:    cfg.Query,
		Interval: time.Duration(cfg.Interval) * time.Second,
	}
	return gmailreader.New(httpClient, readerCfg, logger)
}
