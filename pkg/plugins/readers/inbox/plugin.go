// Package inbox provides a plugin wrapper for the directory watching reader.
package inbox

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/plugins/schema"
	inboxreader "github.com/mr-aminul/moneylogger/pkg/reader/inbox"
)

// Plugin implements the ReaderPlugin interface for a watched directory.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "inbox"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Watch a directory for transcript files dropped by a dictation app"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return schema.Object(map[string]any{
		"dir":          schema.String("Directory to watch"),
		"processedDir": schema.String("Where written transcripts are moved, relative to dir (default: processed)"),
		"extensions":   schema.Strings("Accepted file extensions without the dot (default: [txt])"),
		"debounceMs":   schema.Integer("Milliseconds a file must stay unchanged before it is read (default: 250)", 250),
	}, "dir")
}

// Config represents the inbox reader configuration.
type Config struct {
	Dir          string   `json:"dir"`
	ProcessedDir string   `json:"processedDir,omitempty"`
	Extensions   []string `json:"extensions,omitempty"`
	DebounceMs   int      `json:"debounceMs,omitempty"`
}

// NewReader creates a new inbox reader instance.
func (p *Plugin) NewReader(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Reader, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling inbox config: %w", err)
	}

	return inboxreader.New(inboxreader.Config{
		Dir:          cfg.Dir,
		ProcessedDir: cfg.ProcessedDir,
		Extensions:   cfg.Extensions,
		Debounce:     time.Duration(cfg.DebounceMs) * time.Millisecond,
	}, logger)
}
