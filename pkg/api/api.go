// Package api defines the core interfaces and data structures for moneylogger.
package api

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Transcript is one transcribed utterance picked up by a reader.
type Transcript struct {
	// ID identifies the source item (file name, message ID, line number).
	// Writers acknowledge it once the expense is stored.
	ID     string `json:"id"`
	Text   string `json:"text"`
	Source string `json:"source"`
	// ReceivedAt anchors relative dates such as "yesterday".
	ReceivedAt time.Time `json:"received_at"`
}

// Expense is the stored shape of a parsed transcript.
type Expense struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Category string          `json:"category"`
	// Date is YYYY-MM-DD: the spoken date, or the day the transcript was received.
	Date              string    `json:"date"`
	Confidence        float64   `json:"confidence"`
	NeedsConfirmation bool      `json:"needs_confirmation"`
	Valid             bool      `json:"valid"`
	Errors            []string  `json:"errors,omitempty"`
	Warnings          []string  `json:"warnings,omitempty"`
	Transcript        string    `json:"transcript"`
	Source            string    `json:"source"`
	CreatedAt         time.Time `json:"created_at"`
}

// Reader reads transcripts from a source and sends them to the provided channel.
// Implementations should close the channel when done or on error.
// The ackChan is used to receive acknowledgments of successfully written expenses.
type Reader interface {
	Read(ctx context.Context, out chan<- *Transcript, ackChan <-chan string) error
}

// Writer consumes expenses from a channel and writes them to a destination.
// Successfully written expense IDs are sent to the ackChan.
type Writer interface {
	Write(ctx context.Context, in <-chan *Expense, ackChan chan<- string) error
}
