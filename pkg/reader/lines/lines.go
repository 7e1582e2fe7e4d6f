// Package lines implements a Reader that treats each line of a file or of
// standard input as one transcript.
package lines

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mr-aminul/moneylogger/pkg/api"
)

// Stdin selects standard input as the source.
const Stdin = "-"

// Config holds configuration for the lines reader.
type Config struct {
	// Path is the file to read. Empty or Stdin reads standard input.
	Path string
}

// Reader reads transcripts line by line. Blank lines and lines starting
// with '#' are skipped.
type Reader struct {
	path   string
	input  io.Reader
	now    func() time.Time
	logger *slog.Logger
	acked  int
}

// New creates a new lines reader.
func New(cfg Config, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	path := cfg.Path
	if path == "" {
		path = Stdin
	}
	return &Reader{path: path, input: os.Stdin, now: time.Now, logger: logger}
}

// NewFromReader reads transcripts from in. name labels the source in IDs and logs.
func NewFromReader(name string, in io.Reader, logger *slog.Logger) *Reader {
	r := New(Config{Path: name}, logger)
	r.input = in
	return r
}

// ID derives a stable transcript ID from its position and text, so
// re-reading the same input updates expenses instead of duplicating them.
func ID(source string, line int, text string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "%s\n%d\n%s", source, line, text)).String()
}

// Read sends one transcript per line and closes out at end of input.
func (r *Reader) Read(ctx context.Context, out chan<- *api.Transcript, ackChan <-chan string) error {
	defer close(out)

	in := r.input
	if r.path != Stdin && r.input == os.Stdin {
		f, err := os.Open(r.path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", r.path, err)
		}
		defer f.Close()
		in = f
	}

	sent := 0
	lineNo := 0
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		t := &api.Transcript{
			ID:         ID(r.path, lineNo, text),
			Text:       text,
			Source:     "lines",
			ReceivedAt: r.now(),
		}
		if err := r.send(ctx, out, ackChan, t); err != nil {
			return err
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", r.path, err)
	}

	r.logger.Info("lines reader finished", "source", r.path, "transcripts", sent, "acknowledged", r.acked)
	return nil
}

// send delivers t while draining acknowledgments so the writer never
// blocks on a full ack channel.
func (r *Reader) send(ctx context.Context, out chan<- *api.Transcript, ackChan <-chan string, t *api.Transcript) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- t:
			return nil
		case _, ok := <-ackChan:
			if !ok {
				ackChan = nil
				continue
			}
			r.acked++
		}
	}
}
