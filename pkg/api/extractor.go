package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mr-aminul/moneylogger/pkg/voice"
)

// Extractor turns transcripts into expenses with a shared parser.
type Extractor struct {
	Parser     *voice.Parser
	Categories []string
	// Currency is stamped on expenses whose transcript names none.
	Currency string
	// Location is the zone relative dates resolve in. Defaults to time.Local.
	Location *time.Location
	// Now defaults to time.Now and sets CreatedAt.
	Now func() time.Time
}

// Extract parses t. Transcripts without an ID get a random one so the
// expense can still be acknowledged and upserted.
func (e *Extractor) Extract(t *Transcript) *Expense {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	loc := e.Location
	if loc == nil {
		loc = time.Local
	}
	parser := e.Parser
	if parser == nil {
		parser = voice.New()
	}

	received := t.ReceivedAt
	if received.IsZero() {
		received = now()
	}
	received = received.In(loc)

	parsed := parser.ParseAt(t.Text, e.Categories, received)
	result := parser.Validate(parsed)

	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}

	exp := &Expense{
		ID:                id,
		Title:             parsed.Title,
		Currency:          parsed.Currency,
		Category:          parsed.Category,
		Date:              received.Format(voice.ISODateLayout),
		Confidence:        parsed.Confidence.Overall,
		NeedsConfirmation: parsed.NeedsConfirmation,
		Valid:             result.IsValid,
		Errors:            result.Errors,
		Warnings:          result.Warnings,
		Transcript:        t.Text,
		Source:            t.Source,
		CreatedAt:         now().UTC(),
	}
	if parsed.Amount != "" {
		if amt, err := decimal.NewFromString(parsed.Amount); err == nil {
			exp.Amount = amt
		}
	}
	if exp.Currency == "" {
		exp.Currency = e.Currency
	}
	if parsed.Date != nil {
		exp.Date = *parsed.Date
	}
	return exp
}
