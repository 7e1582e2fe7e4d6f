// Package daemon provides the core pipeline runner for moneylogger.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mr-aminul/moneylogger/internal/plugins"
	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/config"
	"github.com/mr-aminul/moneylogger/pkg/voice"
)

const channelSize = 100

// Stats summarizes one run.
type Stats struct {
	Transcripts       int
	Valid             int
	NeedsConfirmation int
}

func (s *Stats) add(e *api.Expense) {
	s.Transcripts++
	if e.Valid {
		s.Valid++
	}
	if e.NeedsConfirmation {
		s.NeedsConfirmation++
	}
}

// Runner wires a reader, the extractor and a writer into a pipeline.
type Runner struct {
	registry   *plugins.Registry
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new daemon runner.
func New(registry *plugins.Registry, httpClient *http.Client, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		registry:   registry,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewExtractor builds the extractor described by cfg.
func NewExtractor(cfg config.Config, logger *slog.Logger) (*api.Extractor, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	parser := voice.New(
		voice.WithFallbackCategory(cfg.FallbackCategory),
		voice.WithLogger(logger),
	)
	return &api.Extractor{
		Parser:     parser,
		Categories: cfg.Categories,
		Currency:   cfg.Currency,
		Location:   loc,
	}, nil
}

// Run reads transcripts until the reader finishes or ctx is canceled,
// and returns once every extracted expense has reached the writer.
// A writer failure stops the reader.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (Stats, error) {
	if cfg.ReaderPlugin == "" {
		return Stats{}, fmt.Errorf("MONEYLOGGER_READER is required")
	}
	if cfg.WriterPlugin == "" {
		return Stats{}, fmt.Errorf("MONEYLOGGER_WRITER is required")
	}

	r.logger.Info("starting moneylogger pipeline",
		"reader", cfg.ReaderPlugin,
		"writer", cfg.WriterPlugin,
		"categories", len(cfg.Categories),
		"currency", cfg.Currency,
	)

	extractor, err := NewExtractor(cfg, r.logger)
	if err != nil {
		return Stats{}, err
	}

	reader, err := r.registry.CreateReader(
		cfg.ReaderPlugin,
		r.httpClient,
		cfg.ReaderConfig,
		r.logger.With("component", "reader", "plugin", cfg.ReaderPlugin),
	)
	if err != nil {
		return Stats{}, fmt.Errorf("creating reader: %w", err)
	}

	writer, err := r.registry.CreateWriter(
		cfg.WriterPlugin,
		r.httpClient,
		cfg.WriterConfig,
		r.logger.With("component", "writer", "plugin", cfg.WriterPlugin),
	)
	if err != nil {
		return Stats{}, fmt.Errorf("creating writer: %w", err)
	}
	defer r.closeWriter(writer)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	transcripts := make(chan *api.Transcript, channelSize)
	expenses := make(chan *api.Expense, channelSize)
	ackChan := make(chan string, channelSize)

	writerDone := make(chan error, 1)
	go func() {
		err := writer.Write(runCtx, expenses, ackChan)
		cancel()
		writerDone <- err
	}()

	var stats Stats
	extracted := make(chan struct{})
	go func() {
		defer close(extracted)
		defer close(expenses)
		for t := range transcripts {
			exp := extractor.Extract(t)
			stats.add(exp)
			r.logExpense(exp)
			select {
			case expenses <- exp:
			case <-runCtx.Done():
			}
		}
	}()

	r.logger.Info("pipeline started")
	readErr := reader.Read(runCtx, transcripts, ackChan)

	// Writers keep acknowledging the tail of the batch after the reader
	// has stopped listening.
	var writeErr error
	for waiting := true; waiting; {
		select {
		case <-ackChan:
		case writeErr = <-writerDone:
			waiting = false
		}
	}
	<-extracted

	var errs []error
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		r.logger.Error("reader error", "error", readErr)
		errs = append(errs, fmt.Errorf("reader: %w", readErr))
	}
	if writeErr != nil && !errors.Is(writeErr, context.Canceled) {
		r.logger.Error("writer error", "error", writeErr)
		errs = append(errs, fmt.Errorf("writer: %w", writeErr))
	}

	r.logger.Info("pipeline stopped",
		"transcripts", stats.Transcripts,
		"valid", stats.Valid,
		"needs_confirmation", stats.NeedsConfirmation,
	)
	return stats, errors.Join(errs...)
}

func (r *Runner) logExpense(e *api.Expense) {
	attrs := []any{
		"id", e.ID,
		"title", e.Title,
		"amount", e.Amount.String(),
		"currency", e.Currency,
		"category", e.Category,
		"date", e.Date,
		"confidence", e.Confidence,
	}
	switch {
	case !e.Valid:
		r.logger.Warn("transcript did not yield a valid expense", append(attrs, "errors", e.Errors)...)
	case e.NeedsConfirmation:
		r.logger.Info("expense needs confirmation", append(attrs, "warnings", e.Warnings)...)
	default:
		r.logger.Debug("expense extracted", attrs...)
	}
}

func (r *Runner) closeWriter(w api.Writer) {
	switch c := w.(type) {
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			r.logger.Warn("closing writer", "error", err)
		}
	case interface{ Close() }:
		c.Close()
	}
}
