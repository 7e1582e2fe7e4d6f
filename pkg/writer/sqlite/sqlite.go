// Package sqlite implements a Writer that stores expenses in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/writer/buffered"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS expenses (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	amount             TEXT NOT NULL,
	currency           TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL,
	expense_date       TEXT NOT NULL,
	confidence         REAL NOT NULL DEFAULT 0,
	needs_confirmation INTEGER NOT NULL DEFAULT 0,
	valid              INTEGER NOT NULL DEFAULT 0,
	problems           TEXT NOT NULL DEFAULT '[]',
	transcript         TEXT NOT NULL DEFAULT '',
	source             TEXT NOT NULL DEFAULT '',
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses (expense_date);
`

const upsertSQL = `
INSERT INTO expenses (
	id, title, amount, currency, category, expense_date, confidence,
	needs_confirmation, valid, problems, transcript, source, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	amount = excluded.amount,
	currency = excluded.currency,
	category = excluded.category,
	expense_date = excluded.expense_date,
	confidence = excluded.confidence,
	needs_confirmation = excluded.needs_confirmation,
	valid = excluded.valid,
	problems = excluded.problems,
	transcript = excluded.transcript,
	source = excluded.source,
	updated_at = excluded.updated_at
`

// Config holds configuration for the SQLite writer.
type Config struct {
	// Path is the database file. ":memory:" keeps everything in memory.
	Path string
	// BatchSize is the number of expenses to buffer before writing.
	BatchSize int
	// FlushInterval is the interval between automatic flushes (seconds).
	FlushInterval int
}

// Writer upserts expenses into SQLite keyed by expense ID.
type Writer struct {
	db       *sql.DB
	logger   *slog.Logger
	buffered *buffered.Writer
	now      func() time.Time
}

// New opens (and if needed creates) the database.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// ":memory:" databases live on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	w := &Writer{db: db, logger: logger, now: time.Now}
	w.buffered = buffered.New(w.writeBatch, buffered.FromSeconds(cfg.BatchSize, cfg.FlushInterval),
		logger.With("component", "sqlite_buffer"))

	logger.Info("sqlite writer initialized", "path", cfg.Path)
	return w, nil
}

// Write consumes expenses from the input channel and upserts them.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Expense, ackChan chan<- string) error {
	return w.buffered.Write(ctx, in, ackChan)
}

func (w *Writer) writeBatch(ctx context.Context, expenses []*api.Expense) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	updated := w.now().UTC().Format(time.RFC3339)
	for _, e := range expenses {
		problems, err := json.Marshal(append(append([]string{}, e.Errors...), e.Warnings...))
		if err != nil {
			return fmt.Errorf("encoding problems for %s: %w", e.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			e.ID,
			e.Title,
			e.Amount.StringFixed(2),
			e.Currency,
			e.Category,
			e.Date,
			e.Confidence,
			e.NeedsConfirmation,
			e.Valid,
			string(problems),
			e.Transcript,
			e.Source,
			e.CreatedAt.UTC().Format(time.RFC3339),
			updated,
		)
		if err != nil {
			return fmt.Errorf("upserting expense %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	w.logger.Debug("wrote expense batch", "count", len(expenses))
	return nil
}

// Count returns the number of stored expenses.
func (w *Writer) Count(ctx context.Context) (int, error) {
	var n int
	if err := w.db.QueryRowContext(ctx, `SELECT count(*) FROM expenses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting expenses: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
