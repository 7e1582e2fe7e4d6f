// Package xlsx implements a Writer that appends expenses to an Excel workbook.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/writer/buffered"
)

// DefaultSheet is used when Config.Sheet is empty.
const DefaultSheet = "Expenses"

// Headers is the first row of the sheet.
var Headers = []string{"Date", "Expense", "Category", "Amount", "Currency", "Confidence", "Review", "Transcript", "ID"}

var colWidths = map[string]float64{"A": 12, "B": 28, "C": 22, "D": 12, "E": 10, "F": 12, "G": 40, "H": 60, "I": 38}

// Config holds configuration for the XLSX writer.
type Config struct {
	// FilePath is the workbook to create or append to.
	FilePath string
	// Sheet is the worksheet name. Defaults to DefaultSheet.
	Sheet string
	// BatchSize is the number of expenses to buffer before writing.
	BatchSize int
	// FlushInterval is the interval between automatic flushes (seconds).
	FlushInterval int
}

// Writer appends one row per expense. The workbook is reopened on every
// flush so it can be inspected between batches.
type Writer struct {
	filePath string
	sheet    string
	mu       sync.Mutex
	buffered *buffered.Writer
	logger   *slog.Logger
}

// New creates a new XLSX writer.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}
	if cfg.Sheet == "" {
		cfg.Sheet = DefaultSheet
	}

	w := &Writer{
		filePath: cfg.FilePath,
		sheet:    cfg.Sheet,
		logger:   logger,
	}
	w.buffered = buffered.New(w.flushBatch, buffered.FromSeconds(cfg.BatchSize, cfg.FlushInterval),
		logger.With("component", "xlsx_buffer"))

	logger.Info("xlsx writer initialized", "file", cfg.FilePath, "sheet", cfg.Sheet)
	return w, nil
}

// Write consumes expenses from the input channel and appends them to the workbook.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Expense, ackChan chan<- string) error {
	return w.buffered.Write(ctx, in, ackChan)
}

// open returns the workbook with the expense sheet and header row in place.
func (w *Writer) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		f = excelize.NewFile()
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}

	index, err := f.GetSheetIndex(w.sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("looking up sheet: %w", err)
	}
	if index != -1 {
		return f, nil
	}

	if index, err = f.NewSheet(w.sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	// A fresh workbook carries an empty "Sheet1".
	if w.sheet != "Sheet1" && f.SheetCount == 2 {
		_ = f.DeleteSheet("Sheet1")
		index, _ = f.GetSheetIndex(w.sheet)
	}
	f.SetActiveSheet(index)

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(w.sheet, cell, h); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}
	for col, width := range colWidths {
		_ = f.SetColWidth(w.sheet, col, col, width)
	}
	return f, nil
}

func (w *Writer) flushBatch(_ context.Context, expenses []*api.Expense) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return fmt.Errorf("reading rows: %w", err)
	}
	next := len(rows) + 1

	for _, e := range expenses {
		cell, _ := excelize.CoordinatesToCellName(1, next)
		if err := f.SetSheetRow(w.sheet, cell, &[]any{
			e.Date,
			e.Title,
			e.Category,
			e.Amount.InexactFloat64(),
			e.Currency,
			e.Confidence,
			review(e),
			e.Transcript,
			e.ID,
		}); err != nil {
			return fmt.Errorf("writing row %d: %w", next, err)
		}
		next++
	}

	if err := f.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}

	w.logger.Debug("wrote expenses to xlsx", "batch_count", len(expenses), "last_row", next-1)
	return nil
}

func review(e *api.Expense) string {
	problems := append(append([]string{}, e.Errors...), e.Warnings...)
	return strings.Join(problems, "; ")
}
