// Package buffered provides a buffered writer base for batch writes.
package buffered

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go"

	"github.com/mr-aminul/moneylogger/pkg/api"
)

// DefaultBatchSize is the default number of expenses to buffer before flushing.
const DefaultBatchSize = 10

// DefaultFlushInterval is the default interval between automatic flushes.
const DefaultFlushInterval = 30 * time.Second

// DefaultAttempts is how many times a failing flush is tried.
const DefaultAttempts = 3

// DefaultRetryDelay is the base delay between flush attempts.
const DefaultRetryDelay = 500 * time.Millisecond

// Flusher is called when the buffer needs to be flushed.
type Flusher func(ctx context.Context, expenses []*api.Expense) error

// Config holds configuration for buffered writing.
type Config struct {
	// BatchSize is the number of expenses to buffer before flushing.
	// Defaults to DefaultBatchSize.
	BatchSize int
	// FlushInterval is the interval between automatic flushes.
	// Defaults to DefaultFlushInterval.
	FlushInterval time.Duration
	// Attempts is the number of tries per flush. Defaults to DefaultAttempts.
	Attempts uint
	// RetryDelay defaults to DefaultRetryDelay.
	RetryDelay time.Duration
}

// FromSeconds builds a Config from the integer knobs plugins expose.
func FromSeconds(batchSize, flushIntervalSeconds int) Config {
	cfg := Config{BatchSize: batchSize}
	if flushIntervalSeconds > 0 {
		cfg.FlushInterval = time.Duration(flushIntervalSeconds) * time.Second
	}
	return cfg
}

// Writer buffers expenses and flushes them in batches. After a successful
// flush the IDs of the flushed expenses are sent on the ack channel.
type Writer struct {
	buffer  []*api.Expense
	mu      sync.Mutex
	flusher Flusher
	config  Config
	logger  *slog.Logger
}

// New creates a new buffered writer with the given flusher function.
func New(flusher Flusher, cfg Config, logger *slog.Logger) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{
		buffer:  make([]*api.Expense, 0, cfg.BatchSize),
		flusher: flusher,
		config:  cfg,
		logger:  logger,
	}
}

// Write consumes expenses from the input channel and buffers them for batch writes.
// ackChan may be nil when nobody waits for acknowledgments. Write stops at the
// first batch that cannot be flushed and returns its error.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Expense, ackChan chan<- string) error {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	w.logger.Info("buffered writer started",
		"batch_size", w.config.BatchSize,
		"flush_interval", w.config.FlushInterval,
	)

	for {
		select {
		case <-ctx.Done():
			return w.handleShutdown(ctx, ackChan)
		case <-ticker.C:
			if err := w.handleTimerFlush(ctx, ackChan); err != nil {
				return err
			}
		case expense, ok := <-in:
			if done, err := w.handleExpense(ctx, expense, ok, ackChan); done {
				return err
			}
		}
	}
}

func (w *Writer) handleShutdown(ctx context.Context, ackChan chan<- string) error {
	w.logger.Info("buffered writer stopping, flushing remaining buffer")
	if err := w.flushWith(context.WithoutCancel(ctx), ctx, ackChan); err != nil {
		w.logger.Error("failed to flush on shutdown", "error", err)
		return fmt.Errorf("flushing on shutdown: %w", err)
	}
	return context.Canceled
}

func (w *Writer) handleTimerFlush(ctx context.Context, ackChan chan<- string) error {
	if err := w.flush(ctx, ackChan); err != nil {
		w.logger.Error("failed to flush on interval", "error", err)
		return fmt.Errorf("flushing on interval: %w", err)
	}
	return nil
}

func (w *Writer) handleExpense(ctx context.Context, expense *api.Expense, ok bool, ackChan chan<- string) (bool, error) {
	if !ok {
		w.logger.Info("input channel closed, flushing remaining buffer")
		if err := w.flush(ctx, ackChan); err != nil {
			w.logger.Error("failed to flush on close", "error", err)
			return true, fmt.Errorf("flushing on close: %w", err)
		}
		return true, nil
	}
	if expense == nil {
		return false, nil
	}

	w.mu.Lock()
	w.buffer = append(w.buffer, expense)
	shouldFlush := len(w.buffer) >= w.config.BatchSize
	w.mu.Unlock()

	if shouldFlush {
		if err := w.flush(ctx, ackChan); err != nil {
			w.logger.Error("failed to flush on batch size", "error", err)
			return true, fmt.Errorf("flushing batch: %w", err)
		}
	}
	return false, nil
}

// flush writes all buffered expenses using the flusher function, retrying
// failures. A batch that still fails is not acknowledged, so its source items
// are picked up again on the next run.
func (w *Writer) flush(ctx context.Context, ackChan chan<- string) error {
	return w.flushWith(ctx, ctx, ackChan)
}

// flushWith writes with writeCtx and acknowledges until ackCtx is done.
func (w *Writer) flushWith(writeCtx, ackCtx context.Context, ackChan chan<- string) error {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return nil
	}

	toFlush := make([]*api.Expense, len(w.buffer))
	copy(toFlush, w.buffer)
	w.buffer = w.buffer[:0]
	w.mu.Unlock()

	w.logger.Debug("flushing buffer", "count", len(toFlush))

	err := retry.Do(
		func() error { return w.flusher(writeCtx, toFlush) },
		retry.Attempts(w.config.Attempts),
		retry.Delay(w.config.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return writeCtx.Err() == nil }),
		retry.OnRetry(func(n uint, err error) {
			w.logger.Warn("flush failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return err
	}

	w.logger.Info("flushed expenses", "count", len(toFlush))
	w.acknowledge(ackCtx, toFlush, ackChan)
	return nil
}

func (w *Writer) acknowledge(ctx context.Context, expenses []*api.Expense, ackChan chan<- string) {
	if ackChan == nil {
		return
	}
	for i, e := range expenses {
		select {
		case ackChan <- e.ID:
			continue
		default:
		}
		select {
		case ackChan <- e.ID:
		case <-ctx.Done():
			w.logger.Warn("dropping acknowledgments", "count", len(expenses)-i)
			return
		}
	}
}

// BufferLen returns the current number of buffered expenses.
func (w *Writer) BufferLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}
