package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-aminul/moneylogger/internal/plugins"
	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/config"
	"github.com/mr-aminul/moneylogger/pkg/plugins/schema"
	linesplugin "github.com/mr-aminul/moneylogger/pkg/plugins/readers/lines"
	jsonplugin "github.com/mr-aminul/moneylogger/pkg/plugins/writers/json"
	"github.com/mr-aminul/moneylogger/pkg/voice"
)

func testConfig() config.Config {
	return config.Config{
		Categories:       voice.CoreCategories,
		FallbackCategory: voice.DefaultFallbackCategory,
		Currency:         "USD",
		Timezone:         "UTC",
	}
}

func TestRunLinesToJSON(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "transcripts.txt")
	out := filepath.Join(dir, "expenses.json")
	if err := os.WriteFile(in, []byte("lunch 300 taka\nuber 250\nhello there\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	registry := plugins.NewRegistry()
	if err := registry.RegisterReader(&linesplugin.Plugin{}); err != nil {
		t.Fatal(err)
	}
	if err := registry.RegisterWriter(&jsonplugin.Plugin{}); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.ReaderPlugin = "lines"
	cfg.ReaderConfig = json.RawMessage(`{"path":"` + in + `"}`)
	cfg.WriterPlugin = "json"
	cfg.WriterConfig = json.RawMessage(`{"filePath":"` + out + `","batchSize":2}`)

	stats, err := New(registry, nil, slog.New(slog.DiscardHandler)).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Transcripts != 3 || stats.Valid != 2 {
		t.Errorf("stats: got %+v, want 3 transcripts, 2 valid", stats)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var got []api.Expense
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expenses: got %d, want 3", len(got))
	}
	if got[0].Currency != "BDT" || got[0].Category != "Food & Dining" {
		t.Errorf("first: got %s %s", got[0].Currency, got[0].Category)
	}
	if got[1].Currency != "USD" || got[1].Category != "Transport" {
		t.Errorf("second: got %s %s", got[1].Currency, got[1].Category)
	}
	if got[2].Valid {
		t.Error("greeting stored as a valid expense")
	}
}

// blockingReader emits its transcripts and then waits for cancellation,
// like a polling reader.
type blockingReader struct {
	texts []string
	acks  chan string
}

func (b *blockingReader) Read(ctx context.Context, out chan<- *api.Transcript, ackChan <-chan string) error {
	defer close(out)
	for i, text := range b.texts {
		out <- &api.Transcript{ID: string(rune('a' + i)), Text: text, Source: "test"}
	}
	for {
		select {
		case id := <-ackChan:
			b.acks <- id
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type ackingWriter struct {
	err error
}

func (w *ackingWriter) Write(ctx context.Context, in <-chan *api.Expense, ackChan chan<- string) error {
	if w.err != nil {
		return w.err
	}
	for {
		select {
		case e, ok := <-in:
			if !ok {
				return nil
			}
			ackChan <- e.ID
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type readerPlugin struct{ reader api.Reader }

func (p readerPlugin) Name() string                 { return "test" }
func (p readerPlugin) Description() string          { return "" }
func (p readerPlugin) RequiredScopes() []string     { return nil }
func (p readerPlugin) ConfigSchema() map[string]any { return schema.Object(map[string]any{}) }
func (p readerPlugin) NewReader(*http.Client, json.RawMessage, *slog.Logger) (api.Reader, error) {
	return p.reader, nil
}

type writerPlugin struct{ writer api.Writer }

func (p writerPlugin) Name() string                 { return "test" }
func (p writerPlugin) Description() string          { return "" }
func (p writerPlugin) RequiredScopes() []string     { return nil }
func (p writerPlugin) ConfigSchema() map[string]any { return schema.Object(map[string]any{}) }
func (p writerPlugin) NewWriter(*http.Client, json.RawMessage, *slog.Logger) (api.Writer, error) {
	return p.writer, nil
}

func runner(t *testing.T, r api.Reader, w api.Writer) (*Runner, config.Config) {
	t.Helper()
	registry := plugins.NewRegistry()
	if err := registry.RegisterReader(readerPlugin{r}); err != nil {
		t.Fatal(err)
	}
	if err := registry.RegisterWriter(writerPlugin{w}); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.ReaderPlugin = "test"
	cfg.WriterPlugin = "test"
	return New(registry, nil, slog.New(slog.DiscardHandler)), cfg
}

func TestRunAcksUntilCanceled(t *testing.T) {
	reader := &blockingReader{texts: []string{"lunch 300", "uber 250"}, acks: make(chan string, 2)}
	r, cfg := runner(t, reader, &ackingWriter{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var stats Stats
	go func() {
		var err error
		stats, err = r.Run(ctx, cfg)
		done <- err
	}()

	for range 2 {
		select {
		case <-reader.acks:
		case <-time.After(5 * time.Second):
			t.Fatal("expense was not acknowledged")
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if stats.Transcripts != 2 {
		t.Errorf("transcripts: got %d, want 2", stats.Transcripts)
	}
}

func TestRunStopsReaderWhenWriterFails(t *testing.T) {
	reader := &blockingReader{acks: make(chan string, 1)}
	r, cfg := runner(t, reader, &ackingWriter{err: errors.New("disk full")})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), cfg)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected writer error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after writer failure")
	}
}

func TestRunRejectsUnknownPlugins(t *testing.T) {
	r, cfg := runner(t, &blockingReader{}, &ackingWriter{})

	cfg.ReaderPlugin = "carrier-pigeon"
	if _, err := r.Run(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown reader")
	}

	cfg.ReaderPlugin = ""
	if _, err := r.Run(context.Background(), cfg); err == nil {
		t.Error("expected error for missing reader")
	}
}
