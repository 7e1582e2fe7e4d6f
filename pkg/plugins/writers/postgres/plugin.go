// Package postgres provides a plugin wrapper for the PostgreSQL writer.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/plugins/schema"
	pgwriter "github.com/mr-aminul/moneylogger/pkg/writer/postgres"
)

// Plugin implements the WriterPlugin interface for PostgreSQL.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "postgres"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Upsert expenses into a PostgreSQL database"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
// PostgreSQL writer doesn't require OAuth scopes.
func (p *Plugin) RequiredScopes() []string {
	return []string{}
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	s := schema.Object(schema.WithBatching(map[string]any{
		"dsn":         schema.String("Connection string, used instead of the individual fields"),
		"host":        schema.String("PostgreSQL host address"),
		"port":        schema.Integer("PostgreSQL port", 5432),
		"database":    schema.String("Database name"),
		"user":        schema.String("Database user"),
		"password":    schema.String("Database password"),
		"sslmode":     schema.Enum("SSL mode", "disable", "disable", "require", "verify-ca", "verify-full"),
		"maxPoolSize": schema.Integer("Maximum number of connections in the pool (default: 10)", 10),
	}))
	s["anyOf"] = []any{
		map[string]any{"required": []string{"dsn"}},
		map[string]any{"required": []string{"host", "database", "user"}},
	}
	return s
}

// Config represents the PostgreSQL writer configuration.
type Config struct {
	DSN           string `json:"dsn,omitempty"`
	Host          string `json:"host,omitempty"`
	Port          int    `json:"port,omitempty"`
	Database      string `json:"database,omitempty"`
	User          string `json:"user,omitempty"`
	Password      string `json:"password,omitempty"`
	SSLMode       string `json:"sslmode,omitempty"`
	BatchSize     int    `json:"batchSize,omitempty"`
	FlushInterval int    `json:"flushInterval,omitempty"` // in seconds
	MaxPoolSize   int    `json:"maxPoolSize,omitempty"`
}

// NewWriter connects to the database and runs migrations.
// Note: httpClient is ignored as PostgreSQL doesn't need OAuth.
func (p *Plugin) NewWriter(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling postgres config: %w", err)
	}

	if cfg.DSN == "" && (cfg.Host == "" || cfg.Database == "" || cfg.User == "") {
		return nil, errors.New("either dsn or host, database and user are required")
	}

	writerCfg := pgwriter.Config{
		DSN:           cfg.DSN,
		Host:          cfg.Host,
		Port:          cfg.Port,
		Database:      cfg.Database,
		User:          cfg.User,
		Password:      cfg.Password,
		SSLMode:       cfg.SSLMode,
		BatchSize:     cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushInterval) * time.Second,
		MaxPoolSize:   cfg.MaxPoolSize,
	}

	return pgwriter.New(context.Background(), writerCfg, logger)
}
