package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-aminul/moneylogger/pkg/voice"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.ReaderPlugin != DefaultReader || cfg.WriterPlugin != DefaultWriter {
		t.Errorf("plugins: got %s -> %s", cfg.ReaderPlugin, cfg.WriterPlugin)
	}
	if len(cfg.Categories) != len(voice.CoreCategories) {
		t.Errorf("categories: got %d, want %d", len(cfg.Categories), len(voice.CoreCategories))
	}
	if cfg.FallbackCategory != voice.DefaultFallbackCategory {
		t.Errorf("fallback: got %q", cfg.FallbackCategory)
	}
	if cfg.Currency != DefaultCurrency || cfg.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("currency/addr: got %q %q", cfg.Currency, cfg.HTTPAddr)
	}
	if string(cfg.WriterConfig) != `{"filePath":"expenses.json"}` {
		t.Errorf("writer config: got %s", cfg.WriterConfig)
	}
	if string(cfg.ReaderConfig) != `{"path":"-"}` {
		t.Errorf("reader config: got %s", cfg.ReaderConfig)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("MONEYLOGGER_READER", "inbox")
	t.Setenv("MONEYLOGGER_WRITER", "postgres")
	t.Setenv("MONEYLOGGER_CATEGORIES", "Food, Transport ,, Rent,Food & Dining")
	t.Setenv("MONEYLOGGER_CURRENCY", "usd")
	t.Setenv("MONEYLOGGER_TIMEZONE", "Asia/Dhaka")
	t.Setenv("MONEYLOGGER_CORS_ORIGINS", "http://localhost:5173,https://app.example.com")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_DB", "money")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	// Legacy names are canonicalized and duplicates dropped.
	want := []string{"Food & Dining", "Transport", "Housing"}
	if len(cfg.Categories) != len(want) {
		t.Fatalf("categories: got %v, want %v", cfg.Categories, want)
	}
	for i := range want {
		if cfg.Categories[i] != want[i] {
			t.Errorf("categories[%d]: got %q, want %q", i, cfg.Categories[i], want[i])
		}
	}

	if cfg.Currency != "USD" {
		t.Errorf("currency: got %q, want USD", cfg.Currency)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("cors origins: got %v", cfg.CORSOrigins)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Asia/Dhaka" {
		t.Errorf("location: got %v, %v", loc, err)
	}
	if string(cfg.ReaderConfig) != `{"dir":"inbox"}` {
		t.Errorf("reader config: got %s", cfg.ReaderConfig)
	}

	var pg map[string]any
	if err := json.Unmarshal(cfg.WriterConfig, &pg); err != nil {
		t.Fatalf("writer config: %v", err)
	}
	if pg["host"] != "db" || pg["port"] != float64(6543) || pg["database"] != "money" {
		t.Errorf("postgres writer config: got %v", pg)
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moneylogger.json")
	doc := `{
		"MONEYLOGGER_WRITER": "csv",
		"MONEYLOGGER_WRITER_CONFIG": {"filePath": "/data/out.csv", "batchSize": 5},
		"MONEYLOGGER_CATEGORIES": ["Transport", "Groceries"],
		"MONEYLOGGER_CURRENCY": "EUR"
	}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MONEYLOGGER_CURRENCY", "GBP")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.WriterPlugin != "csv" {
		t.Errorf("writer: got %q, want csv", cfg.WriterPlugin)
	}
	var wc map[string]any
	if err := json.Unmarshal(cfg.WriterConfig, &wc); err != nil {
		t.Fatalf("writer config not json: %s", cfg.WriterConfig)
	}
	if wc["filePath"] != "/data/out.csv" || wc["batchSize"] != float64(5) {
		t.Errorf("writer config: got %v", wc)
	}
	if len(cfg.Categories) != 2 || cfg.Categories[1] != "Groceries" {
		t.Errorf("categories: got %v", cfg.Categories)
	}
	if cfg.Currency != "GBP" {
		t.Errorf("currency: got %q, want GBP (environment wins)", cfg.Currency)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("MONEYLOGGER_TIMEZONE", "Mars/Olympus")
		if _, err := LoadFile(""); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("sheets without name", func(t *testing.T) {
		t.Setenv("MONEYLOGGER_WRITER", "sheets")
		t.Setenv("GSHEETS_TITLE", "Expenses")
		if _, err := LoadFile(""); err == nil {
			t.Error("expected error")
		}
	})
}
