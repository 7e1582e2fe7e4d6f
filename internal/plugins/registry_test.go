package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/plugins/schema"
	pgplugin "github.com/mr-aminul/moneylogger/pkg/plugins/writers/postgres"
	sheetsplugin "github.com/mr-aminul/moneylogger/pkg/plugins/writers/sheets"
)

type fakeReader struct {
	name   string
	scopes []string
	got    json.RawMessage
}

func (f *fakeReader) Name() string             { return f.name }
func (f *fakeReader) Description() string      { return "fake reader" }
func (f *fakeReader) RequiredScopes() []string { return f.scopes }
func (f *fakeReader) ConfigSchema() map[string]any {
	return schema.Object(map[string]any{"path": schema.String("path")})
}

func (f *fakeReader) NewReader(_ *http.Client, config json.RawMessage, _ *slog.Logger) (api.Reader, error) {
	f.got = config
	return nopReader{}, nil
}

type nopReader struct{}

func (nopReader) Read(_ context.Context, out chan<- *api.Transcript, _ <-chan string) error {
	close(out)
	return nil
}

type fakeWriter struct {
	name   string
	scopes []string
	err    error
}

func (f *fakeWriter) Name() string             { return f.name }
func (f *fakeWriter) Description() string      { return "fake writer" }
func (f *fakeWriter) RequiredScopes() []string { return f.scopes }
func (f *fakeWriter) ConfigSchema() map[string]any {
	return schema.Object(schema.WithBatching(map[string]any{"filePath": schema.String("file")}), "filePath")
}

func (f *fakeWriter) NewWriter(_ *http.Client, _ json.RawMessage, _ *slog.Logger) (api.Writer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nopWriter{}, nil
}

type nopWriter struct{}

func (nopWriter) Write(_ context.Context, in <-chan *api.Expense, _ chan<- string) error {
	for range in {
	}
	return nil
}

func TestRegisterAndList(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"mbox", "gmail", "lines"} {
		if err := r.RegisterReader(&fakeReader{name: name}); err != nil {
			t.Fatalf("RegisterReader(%s): %v", name, err)
		}
	}
	if err := r.RegisterReader(&fakeReader{name: "gmail"}); err == nil {
		t.Error("expected duplicate registration error")
	}
	if err := r.RegisterWriter(&fakeWriter{name: "json"}); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterWriter(&fakeWriter{name: "json"}); err == nil {
		t.Error("expected duplicate registration error")
	}

	readers := r.ListReaders()
	want := []string{"gmail", "lines", "mbox"}
	for i, p := range readers {
		if p.Name() != want[i] {
			t.Errorf("readers[%d]: got %s, want %s", i, p.Name(), want[i])
		}
	}

	if _, err := r.GetReader("pop3"); err == nil {
		t.Error("expected unknown reader error")
	}
	if _, err := r.GetWriter("pdf"); err == nil {
		t.Error("expected unknown writer error")
	}
}

func TestGetAllScopes(t *testing.T) {
	r := NewRegistry()
	_ = r.RegisterReader(&fakeReader{name: "gmail", scopes: []string{"b", "a"}})
	_ = r.RegisterWriter(&fakeWriter{name: "sheets", scopes: []string{"c", "a"}})

	scopes, err := r.GetAllScopes("gmail", "sheets")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	if len(scopes) != len(want) {
		t.Fatalf("scopes: got %v, want %v", scopes, want)
	}
	for i := range want {
		if scopes[i] != want[i] {
			t.Errorf("scopes[%d]: got %s, want %s", i, scopes[i], want[i])
		}
	}

	if _, err := r.GetAllScopes("gmail", "nope"); err == nil {
		t.Error("expected error for unknown writer")
	}
}

func TestCreateValidatesConfig(t *testing.T) {
	reader := &fakeReader{name: "lines"}
	r := NewRegistry()
	_ = r.RegisterReader(reader)
	_ = r.RegisterWriter(&fakeWriter{name: "json"})
	_ = r.RegisterWriter(&fakeWriter{name: "broken", err: errors.New("disk full")})

	if _, err := r.CreateReader("lines", nil, nil, nil); err != nil {
		t.Fatalf("empty reader config: %v", err)
	}
	if string(reader.got) != "{}" {
		t.Errorf("empty config passed as %q, want {}", reader.got)
	}

	tests := []struct {
		name    string
		plugin  string
		config  string
		wantErr bool
	}{
		{"valid", "json", `{"filePath":"out.json","batchSize":5}`, false},
		{"missing required", "json", `{"batchSize":5}`, true},
		{"unknown key", "json", `{"filePath":"out.json","fliePath":"x"}`, true},
		{"wrong type", "json", `{"filePath":"out.json","batchSize":"five"}`, true},
		{"negative", "json", `{"filePath":"out.json","flushInterval":-1}`, true},
		{"not json", "json", `{filePath`, true},
		{"plugin rejects", "broken", `{"filePath":"out.json"}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.CreateWriter(tc.plugin, nil, json.RawMessage(tc.config), nil)
			if !tc.wantErr {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error: got %v, want *ConfigError", err)
			}
			if cfgErr.Plugin != tc.plugin {
				t.Errorf("plugin: got %q, want %q", cfgErr.Plugin, tc.plugin)
			}
		})
	}
}

func TestPluginSchemas(t *testing.T) {
	pg := (&pgplugin.Plugin{}).ConfigSchema()
	sh := (&sheetsplugin.Plugin{}).ConfigSchema()

	tests := []struct {
		name   string
		schema map[string]any
		config string
		valid  bool
	}{
		{"postgres dsn", pg, `{"dsn":"postgres://u@db/money"}`, true},
		{"postgres fields", pg, `{"host":"db","database":"money","user":"u","port":5432}`, true},
		{"postgres incomplete", pg, `{"host":"db"}`, false},
		{"postgres bad sslmode", pg, `{"dsn":"x","sslmode":"sometimes"}`, false},
		{"sheets by id", sh, `{"sheetName":"Expenses","sheetId":"abc"}`, true},
		{"sheets by title", sh, `{"sheetName":"Expenses","sheetTitle":"Money"}`, true},
		{"sheets neither", sh, `{"sheetName":"Expenses"}`, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateConfig("test", tc.schema, json.RawMessage(tc.config))
			if (err == nil) != tc.valid {
				t.Errorf("valid: got %v (%v), want %v", err == nil, err, tc.valid)
			}
		})
	}
}
