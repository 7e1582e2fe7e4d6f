// Package inbox implements a Reader that watches a directory for transcript
// files. Each file holds one transcript; once its expense is stored the
// file is moved to a processed directory.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mr-aminul/moneylogger/pkg/api"
)

// Defaults for Config.
const (
	DefaultProcessedDir = "processed"
	DefaultDebounce     = 250 * time.Millisecond
)

var defaultExts = map[string]struct{}{"txt": {}}

// Config holds configuration for the inbox reader.
type Config struct {
	// Dir is the directory to watch.
	Dir string
	// ProcessedDir receives acknowledged files. Relative paths are
	// resolved against Dir. Defaults to DefaultProcessedDir.
	ProcessedDir string
	// Extensions lists accepted file extensions without the dot. Defaults to txt.
	Extensions []string
	// Debounce is how long a file must stay unchanged before it is read.
	Debounce time.Duration
}

// Reader watches a directory and emits one transcript per file.
type Reader struct {
	dir       string
	processed string
	exts      map[string]struct{}
	debounce  time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// New creates a new inbox reader, creating the processed directory if needed.
func New(cfg Config, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("dir is required")
	}

	processed := cfg.ProcessedDir
	if processed == "" {
		processed = DefaultProcessedDir
	}
	if !filepath.IsAbs(processed) {
		processed = filepath.Join(cfg.Dir, processed)
	}
	if err := os.MkdirAll(processed, 0o755); err != nil {
		return nil, fmt.Errorf("creating processed dir: %w", err)
	}

	exts := defaultExts
	if len(cfg.Extensions) > 0 {
		exts = make(map[string]struct{}, len(cfg.Extensions))
		for _, e := range cfg.Extensions {
			exts[strings.TrimPrefix(strings.ToLower(e), ".")] = struct{}{}
		}
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Reader{
		dir:       cfg.Dir,
		processed: processed,
		exts:      exts,
		debounce:  debounce,
		logger:    logger,
		pending:   make(map[string]struct{}),
	}, nil
}

// Read emits files already in the directory, then watches for new ones
// until the context is canceled.
func (r *Reader) Read(ctx context.Context, out chan<- *api.Transcript, ackChan <-chan string) error {
	defer close(out)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(r.dir); err != nil {
		return fmt.Errorf("watching %s: %w", r.dir, err)
	}

	go r.handleAcknowledgments(ctx, ackChan)

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", r.dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			if err := r.emit(ctx, out, filepath.Join(r.dir, e.Name())); err != nil {
				return err
			}
		}
	}

	r.logger.Info("watching inbox", "dir", r.dir)

	// changed maps a path to its last write; files are read once quiet.
	changed := make(map[string]time.Time)
	ticker := time.NewTicker(r.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("inbox reader stopping", "reason", ctx.Err())
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && r.accepts(ev.Name) {
				changed[ev.Name] = time.Now()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("watcher error", "error", err)

		case now := <-ticker.C:
			for path, at := range changed {
				if now.Sub(at) < r.debounce {
					continue
				}
				delete(changed, path)
				if err := r.emit(ctx, out, path); err != nil {
					return err
				}
			}
		}
	}
}

func (r *Reader) accepts(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := r.exts[ext]
	return ok
}

// emit reads path and sends it as a transcript unless it is already in flight.
func (r *Reader) emit(ctx context.Context, out chan<- *api.Transcript, path string) error {
	if !r.accepts(path) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// Moved away or deleted before we got to it.
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("failed to read transcript file", "path", path, "error", err)
		return nil
	}
	text := strings.Join(strings.Fields(string(data)), " ")
	if text == "" {
		return nil
	}

	name := filepath.Base(path)
	r.mu.Lock()
	if _, ok := r.pending[name]; ok {
		r.mu.Unlock()
		return nil
	}
	r.pending[name] = struct{}{}
	r.mu.Unlock()

	t := &api.Transcript{
		ID:         name,
		Text:       text,
		Source:     "inbox",
		ReceivedAt: info.ModTime(),
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- t:
	}
	r.logger.Debug("emitted transcript file", "file", name)
	return nil
}

func (r *Reader) handleAcknowledgments(ctx context.Context, ackChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case name, ok := <-ackChan:
			if !ok {
				return
			}
			r.markProcessed(name)
		}
	}
}

// markProcessed moves an acknowledged file out of the inbox.
func (r *Reader) markProcessed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[name]; !ok {
		r.logger.Warn("acknowledgment for unknown file", "file", name)
		return
	}
	delete(r.pending, name)

	src := filepath.Join(r.dir, name)
	dst := filepath.Join(r.processed, name)
	if err := os.Rename(src, dst); err != nil {
		r.logger.Warn("failed to move processed file", "file", name, "error", err)
		return
	}
	r.logger.Debug("moved processed file", "file", name, "to", r.processed)
}
