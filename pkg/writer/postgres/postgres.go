// Package postgres provides a PostgreSQL writer for expense storage.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mr-aminul/moneylogger/pkg/api"
	"github.com/mr-aminul/moneylogger/pkg/voice"
	"github.com/mr-aminul/moneylogger/pkg/writer/buffered"
)

//go:embed 001_create_expenses.sql
var migrationSQL string

const upsertSQL = `
	INSERT INTO expenses (
		id, title, amount, currency, category, expense_date, confidence,
		needs_confirmation, valid, errors, warnings, transcript, source, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		amount = EXCLUDED.amount,
		currency = EXCLUDED.currency,
		category = EXCLUDED.category,
		expense_date = EXCLUDED.expense_date,
		confidence = EXCLUDED.confidence,
		needs_confirmation = EXCLUDED.needs_confirmation,
		valid = EXCLUDED.valid,
		errors = EXCLUDED.errors,
		warnings = EXCLUDED.warnings,
		transcript = EXCLUDED.transcript,
		source = EXCLUDED.source,
		updated_at = NOW()
`

// Config holds the PostgreSQL writer configuration.
type Config struct {
	// DSN, when set, is used instead of the individual connection fields.
	DSN string

	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// BatchSize is the number of expenses to buffer before writing.
	BatchSize int
	// FlushInterval is the time between automatic flushes.
	FlushInterval time.Duration

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
}

// connString builds a keyword/value connection string, applying defaults.
func (c Config) connString() string {
	if c.DSN != "" {
		return c.DSN
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Database, sslMode,
	)
}

// Writer writes expenses to a PostgreSQL database.
type Writer struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	buffered *buffered.Writer
}

// New connects, runs the migration and returns a ready writer.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.connString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"port", poolConfig.ConnConfig.Port,
		"database", poolConfig.ConnConfig.Database,
	)

	w := &Writer{
		pool:   pool,
		logger: logger,
	}
	w.buffered = buffered.New(w.writeBatch, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger.With("component", "postgres_buffer"))

	if err := w.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return w, nil
}

func (w *Writer) runMigrations(ctx context.Context) error {
	if _, err := w.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	w.logger.Debug("migrations completed")
	return nil
}

// Write consumes expenses from the channel and upserts them in batches.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Expense, ackChan chan<- string) error {
	return w.buffered.Write(ctx, in, ackChan)
}

// writeBatch upserts a batch inside one transaction so a batch is either
// fully stored or not acknowledged at all.
func (w *Writer) writeBatch(ctx context.Context, expenses []*api.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	batch := &pgx.Batch{}
	for _, e := range expenses {
		batch.Queue(upsertSQL,
			e.ID,
			e.Title,
			e.Amount,
			e.Currency,
			e.Category,
			w.expenseDate(e),
			e.Confidence,
			e.NeedsConfirmation,
			e.Valid,
			nonNil(e.Errors),
			nonNil(e.Warnings),
			e.Transcript,
			e.Source,
			e.CreatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range expenses {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("upserting expense %s: %w", expenses[i].ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	w.logger.Info("wrote expense batch", "count", len(expenses))
	return nil
}

func (w *Writer) expenseDate(e *api.Expense) time.Time {
	d, err := time.Parse(voice.ISODateLayout, e.Date)
	if err == nil {
		return d
	}
	w.logger.Warn("invalid expense date, using creation day", "id", e.ID, "date", e.Date)
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Close closes the database connection pool.
func (w *Writer) Close() {
	if w.pool != nil {
		w.pool.Close()
		w.logger.Info("closed PostgreSQL connection pool")
	}
}
