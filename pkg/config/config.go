// Package config loads moneylogger configuration from an optional JSON file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	kJson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mr-aminul/moneylogger/pkg/voice"
)

// ClientSecretFile is the default path to the Google OAuth credentials JSON file.
const ClientSecretFile = "data/client_secret.json"

// FileEnv names the environment variable pointing at an optional JSON config file.
const FileEnv = "MONEYLOGGER_CONFIG_FILE"

// Defaults applied after loading.
const (
	DefaultReader   = "lines"
	DefaultWriter   = "json"
	DefaultCurrency = "BDT"
	DefaultHTTPAddr = ":8080"
)

// listKeys are comma-separated in the environment.
var listKeys = map[string]bool{
	"MONEYLOGGER_CATEGORIES":   true,
	"MONEYLOGGER_CORS_ORIGINS": true,
}

// Config holds the application configuration.
type Config struct {
	// ReaderPlugin is the name of the reader plugin to use.
	// Environment variable: MONEYLOGGER_READER
	ReaderPlugin string `koanf:"MONEYLOGGER_READER"`

	// WriterPlugin is the name of the writer plugin to use.
	// Environment variable: MONEYLOGGER_WRITER
	WriterPlugin string `koanf:"MONEYLOGGER_WRITER"`

	// ReaderConfig is the JSON configuration for the reader plugin.
	// Environment variable: MONEYLOGGER_READER_CONFIG
	ReaderConfig json.RawMessage `koanf:"MONEYLOGGER_READER_CONFIG"`

	// WriterConfig is the JSON configuration for the writer plugin.
	// Environment variable: MONEYLOGGER_WRITER_CONFIG
	WriterConfig json.RawMessage `koanf:"MONEYLOGGER_WRITER_CONFIG"`

	// Categories is the taxonomy transcripts are classified into.
	// Environment variable: MONEYLOGGER_CATEGORIES (comma-separated)
	Categories []string `koanf:"MONEYLOGGER_CATEGORIES"`

	// FallbackCategory is assigned when no category matches.
	// Environment variable: MONEYLOGGER_FALLBACK_CATEGORY
	FallbackCategory string `koanf:"MONEYLOGGER_FALLBACK_CATEGORY"`

	// Currency is stamped on expenses whose transcript names none.
	// Environment variable: MONEYLOGGER_CURRENCY
	Currency string `koanf:"MONEYLOGGER_CURRENCY"`

	// Timezone is the IANA zone relative dates resolve in.
	// Environment variable: MONEYLOGGER_TIMEZONE
	Timezone string `koanf:"MONEYLOGGER_TIMEZONE"`

	// HTTPAddr is the listen address of the serve command.
	// Environment variable: MONEYLOGGER_HTTP_ADDR
	HTTPAddr string `koanf:"MONEYLOGGER_HTTP_ADDR"`

	// CORSOrigins lists origins allowed to call the HTTP API.
	// Environment variable: MONEYLOGGER_CORS_ORIGINS (comma-separated)
	CORSOrigins []string `koanf:"MONEYLOGGER_CORS_ORIGINS"`

	// SecretsFile is the Google OAuth client secret.
	// Environment variable: MONEYLOGGER_CLIENT_SECRET
	SecretsFile string `koanf:"MONEYLOGGER_CLIENT_SECRET"`

	// Google Sheets settings used to build a default sheets writer config.
	GSheetsTitle string `koanf:"GSHEETS_TITLE"`
	GSheetsID    string `koanf:"GSHEETS_ID"`
	GSheetsName  string `koanf:"GSHEETS_NAME"`

	// PostgreSQL settings used to build a default postgres writer config.
	Postgres PostgresConfig `koanf:",squash"`
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string `koanf:"POSTGRES_HOST"`
	Port     int    `koanf:"POSTGRES_PORT"`
	Database string `koanf:"POSTGRES_DB"`
	User     string `koanf:"POSTGRES_USER"`
	Password string `koanf:"POSTGRES_PASSWORD"`
	SSLMode  string `koanf:"POSTGRES_SSLMODE"`
}

// Load reads .env (if present), the file named by MONEYLOGGER_CONFIG_FILE
// (if set) and the environment, then applies defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile is Load without the .env step. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), kJson.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", splitLists), nil); err != nil {
		return Config{}, fmt.Errorf("loading config from environment: %w", err)
	}

	// Plugin configs may be written as objects in the file.
	for _, key := range []string{"MONEYLOGGER_READER_CONFIG", "MONEYLOGGER_WRITER_CONFIG"} {
		if v := k.Get(key); v != nil {
			if _, ok := v.(string); !ok {
				b, err := json.Marshal(v)
				if err != nil {
					return Config{}, fmt.Errorf("encoding %s: %w", key, err)
				}
				if err := k.Set(key, string(b)); err != nil {
					return Config{}, fmt.Errorf("setting %s: %w", key, err)
				}
			}
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitLists(key, value string) (string, any) {
	if !listKeys[key] {
		return key, value
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return key, out
}

func (c *Config) applyDefaults() error {
	if c.ReaderPlugin == "" {
		c.ReaderPlugin = DefaultReader
	}
	if c.WriterPlugin == "" {
		c.WriterPlugin = DefaultWriter
	}

	c.Categories = voice.CanonicalCategories(c.Categories)
	if len(c.Categories) == 0 {
		c.Categories = append([]string(nil), voice.CoreCategories...)
	}
	if c.FallbackCategory == "" {
		c.FallbackCategory = voice.DefaultFallbackCategory
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	c.Currency = strings.ToUpper(c.Currency)
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.SecretsFile == "" {
		c.SecretsFile = ClientSecretFile
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if len(c.ReaderConfig) == 0 {
		c.ReaderConfig = c.defaultReaderConfig()
	}
	if len(c.WriterConfig) == 0 {
		cfg, err := c.defaultWriterConfig()
		if err != nil {
			return err
		}
		c.WriterConfig = cfg
	}
	return nil
}

// Location resolves Timezone. Empty means the local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid MONEYLOGGER_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) defaultReaderConfig() json.RawMessage {
	switch c.ReaderPlugin {
	case "lines":
		return json.RawMessage(`{"path":"-"}`)
	case "inbox":
		return json.RawMessage(`{"dir":"inbox"}`)
	default:
		return json.RawMessage(`{}`)
	}
}

func (c Config) defaultWriterConfig() (json.RawMessage, error) {
	var cfg map[string]any
	switch c.WriterPlugin {
	case "json":
		cfg = map[string]any{"filePath": "expenses.json"}
	case "csv":
		cfg = map[string]any{"filePath": "expenses.csv"}
	case "xlsx":
		cfg = map[string]any{"filePath": "expenses.xlsx"}
	case "sqlite":
		cfg = map[string]any{"path": "moneylogger.db"}
	case "postgres":
		cfg = map[string]any{
			"host":     c.Postgres.Host,
			"database": c.Postgres.Database,
			"user":     c.Postgres.User,
			"password": c.Postgres.Password,
		}
		if c.Postgres.Port != 0 {
			cfg["port"] = c.Postgres.Port
		}
		if c.Postgres.SSLMode != "" {
			cfg["sslmode"] = c.Postgres.SSLMode
		}
	case "sheets":
		if c.GSheetsName == "" {
			return nil, fmt.Errorf("GSHEETS_NAME is required")
		}
		if c.GSheetsID == "" && c.GSheetsTitle == "" {
			return nil, fmt.Errorf("either GSHEETS_ID or GSHEETS_TITLE is required")
		}
		cfg = map[string]any{"sheetName": c.GSheetsName}
		if c.GSheetsTitle != "" {
			cfg["sheetTitle"] = c.GSheetsTitle
		}
		if c.GSheetsID != "" {
			cfg["sheetId"] = c.GSheetsID
		}
	default:
		return json.RawMessage(`{}`), nil
	}
	return json.Marshal(cfg)
}
