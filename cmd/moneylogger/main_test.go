package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/mr-aminul/moneylogger/internal/httpapi"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()

	root := newRootCommand(slog.New(slog.DiscardHandler))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestParseCommand(t *testing.T) {
	t.Setenv("MONEYLOGGER_TIMEZONE", "UTC")

	out := execute(t, "", "parse", "--compact", "--date", "2025-06-10", "50tk on breakfast yesterday")

	var got httpapi.ParseResponse
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if got.Amount != "50" || got.Category != "Food & Dining" {
		t.Errorf("parsed: got %s %s", got.Amount, got.Category)
	}
	if got.Date == nil || *got.Date != "2025-06-09" {
		t.Errorf("date: got %v", got.Date)
	}
}

func TestParseCommandReadsStdin(t *testing.T) {
	t.Setenv("MONEYLOGGER_TIMEZONE", "UTC")

	out := execute(t, "uber 250\n\nlunch 300\n", "parse", "--compact")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("results: got %d lines, want 2\n%s", len(lines), out)
	}
}

func TestPluginsCommand(t *testing.T) {
	out := execute(t, "", "plugins")
	for _, name := range []string{"lines", "inbox", "mbox", "gmail", "json", "csv", "xlsx", "sqlite", "postgres", "sheets"} {
		if !strings.Contains(out, name) {
			t.Errorf("plugin %q missing from listing", name)
		}
	}

	out = execute(t, "", "plugins", "--schema", "inbox")
	var schema map[string]any
	if err := json.Unmarshal([]byte(out), &schema); err != nil {
		t.Fatalf("schema is not json: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("schema type: got %v", schema["type"])
	}
}
