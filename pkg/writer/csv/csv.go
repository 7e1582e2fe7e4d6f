// Package csv implements a Writer that writes expenses to a CSV file.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/writer/buffered"
)

// Headers is the first row of a new CSV file.
var Headers = []string{
	"ID", "Date", "Title", "Amount", "Currency", "Category",
	"Confidence", "Needs Confirmation", "Valid", "Problems", "Transcript", "Source", "Created At",
}

// Writer writes expenses to a CSV file with buffered batching.
type Writer struct {
	filePath string
	file     *os.File
	writer   *csv.Writer
	mu       sync.Mutex
	buffered *buffered.Writer
	logger   *slog.Logger
}

// Config holds configuration for the CSV writer.
type Config struct {
	// FilePath is the path to the CSV output file.
	FilePath string
	// BatchSize is the number of expenses to buffer before writing.
	BatchSize int
	// FlushInterval is the interval between automatic flushes.
	FlushInterval int // seconds
}

// New creates a new CSV writer.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening csv file: %w", err)
	}

	w := &Writer{
		filePath: cfg.FilePath,
		file:     file,
		writer:   csv.NewWriter(file),
		logger:   logger,
	}

	stat, err := file.Stat()
	if err != nil {
		if closeErr := file.Close(); closeErr != nil {
			return nil, fmt.Errorf("stat csv file: %w (close error: %w)", err, closeErr)
		}
		return nil, fmt.Errorf("stat csv file: %w", err)
	}

	if stat.Size() == 0 {
		if err := w.writeRecord(Headers); err != nil {
			if closeErr := file.Close(); closeErr != nil {
				return nil, fmt.Errorf("writing headers: %w (close error: %w)", err, closeErr)
			}
			return nil, fmt.Errorf("writing headers: %w", err)
		}
	}

	w.buffered = buffered.New(w.flushBatch, buffered.FromSeconds(cfg.BatchSize, cfg.FlushInterval),
		logger.With("component", "csv_buffer"))

	logger.Info("csv writer initialized", "file", cfg.FilePath)
	return w, nil
}

func (w *Writer) writeRecord(record []string) error {
	if err := w.writer.Write(record); err != nil {
		return err
	}
	w.writer.Flush()
	return w.writer.Error()
}

// Write consumes expenses from the input channel and writes them to CSV.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Expense, ackChan chan<- string) error {
	defer w.Close()
	return w.buffered.Write(ctx, in, ackChan)
}

// Record renders an expense as a CSV row in Headers order.
func Record(e *api.Expense) []string {
	problems := append(append([]string{}, e.Errors...), e.Warnings...)
	return []string{
		e.ID,
		e.Date,
		e.Title,
		e.Amount.StringFixed(2),
		e.Currency,
		e.Category,
		strconv.FormatFloat(e.Confidence, 'f', 2, 64),
		strconv.FormatBool(e.NeedsConfirmation),
		strconv.FormatBool(e.Valid),
		strings.Join(problems, "; "),
		e.Transcript,
		e.Source,
		e.CreatedAt.Format(time.RFC3339),
	}
}

func (w *Writer) flushBatch(_ context.Context, expenses []*api.Expense) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range expenses {
		if err := w.writer.Write(Record(e)); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	w.logger.Debug("wrote expenses to csv", "count", len(expenses))
	return nil
}

// Close closes the CSV file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing csv file: %w", err)
	}

	w.logger.Info("csv writer closed", "file", w.filePath)
	return nil
}
