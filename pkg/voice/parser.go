// Package voice turns transcribed speech such as "50 taka orange juice
// yesterday" into a structured expense with per-field confidence.
//
// Parsing never fails. Missing signals degrade to defaults: an empty amount,
// the fallback category, a nil date and a placeholder title. Callers decide
// what to do with low confidence through ParsedExpense.NeedsConfirmation and
// Validate.
package voice

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Confidence holds the per-field scores and their weighted mean.
type Confidence struct {
	Overall  float64 `json:"overall"`
	Title    float64 `json:"title"`
	Amount   float64 `json:"amount"`
	Category float64 `json:"category"`
}

// Evidence is the raw transcript text behind each selected field.
type Evidence struct {
	Amount   string `json:"amount,omitempty"`
	Category string `json:"category,omitempty"`
	Date     string `json:"date,omitempty"`
}

// ParsedExpense is the result of parsing one transcript.
type ParsedExpense struct {
	Title             string     `json:"title"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency,omitempty"`
	Category          string     `json:"category"`
	Date              *string    `json:"date"`
	Confidence        Confidence `json:"confidence"`
	NeedsConfirmation bool       `json:"needsConfirmation"`
	RawTranscript     string     `json:"rawTranscript"`
	Evidence          *Evidence  `json:"evidence,omitempty"`
}

// ValidationResult lists semantic problems with a parsed expense.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

const (
	amountWeight   = 0.5
	categoryWeight = 0.3
	titleWeight    = 0.2

	confirmBelow       = 0.7
	amountConfirmBelow = 0.65
	defaultedCategory  = 0.5
	emptyTitle         = 0.3
)

// Validation messages.
const (
	ErrMissingAmount   = "Invalid or missing amount"
	ErrMissingTitle    = "Missing descriptive title"
	ErrMissingCategory = "Missing category"
	WarnLowConfidence  = "Low confidence - please review"
)

// Parser runs the extraction pipeline. It holds no per-call state and is
// safe for concurrent use.
type Parser struct {
	lex      *lexicon
	aliases  *AliasTable
	fallback string
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithAliases replaces the built-in alias table.
func WithAliases(t *AliasTable) Option {
	return func(p *Parser) {
		if t != nil {
			p.aliases = t
		}
	}
}

// WithFallbackCategory sets the category used when nothing matches.
func WithFallbackCategory(name string) Option {
	return func(p *Parser) {
		if name != "" {
			p.fallback = name
		}
	}
}

// WithClock sets the source of the default reference date.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithReferenceDate pins the default reference date.
func WithReferenceDate(ref time.Time) Option {
	return WithClock(func() time.Time { return ref })
}

// WithLogger enables debug logging of the selected candidates.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger.With("component", "voice")
		}
	}
}

// New returns a Parser using the built-in tables.
func New(opts ...Option) *Parser {
	p := &Parser{
		lex:      defaultLexicon,
		aliases:  defaultAliases,
		fallback: DefaultFallbackCategory,
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FallbackCategory returns the category assigned to unmatched transcripts.
func (p *Parser) FallbackCategory() string {
	return p.fallback
}

// Parse parses transcript against categories using the clock's current date.
func (p *Parser) Parse(transcript string, categories []string) ParsedExpense {
	return p.ParseAt(transcript, categories, p.now())
}

// ParseAt parses transcript with relative dates anchored to ref.
func (p *Parser) ParseAt(transcript string, categories []string, ref time.Time) ParsedExpense {
	result := ParsedExpense{RawTranscript: transcript}

	text := p.lex.normalize(transcript)
	if text == "" {
		result.Title = DefaultTitle
		result.Category = p.fallback
		result.Confidence.Title = emptyTitle
		result.NeedsConfirmation = true
		return result
	}

	amount := p.lex.extractAmount(text)
	category := extractCategory(text, categories, p.aliases)
	date := ExtractDate(text, ref)
	title := ExtractTitle(text, amount, category, date)

	result.Amount = amount.String()
	result.Currency = amount.Currency
	result.Confidence.Amount = amount.Confidence

	if category.Found() {
		result.Category = category.Category
		result.Confidence.Category = category.Confidence
	} else {
		result.Category = p.fallback
		result.Confidence.Category = defaultedCategory
	}

	if date.Found() {
		iso := date.ISODate
		result.Date = &iso
	}

	result.Title = title.Text
	result.Confidence.Title = title.Confidence

	result.Confidence.Overall = amountWeight*result.Confidence.Amount +
		categoryWeight*result.Confidence.Category +
		titleWeight*result.Confidence.Title

	result.NeedsConfirmation = result.Confidence.Overall < confirmBelow ||
		result.Confidence.Amount < amountConfirmBelow ||
		(amount.Found() && !category.Found())

	if amount.Raw != "" || category.Raw != "" || date.Raw != "" {
		result.Evidence = &Evidence{Amount: amount.Raw, Category: category.Raw, Date: date.Raw}
	}

	p.logger.Debug("parsed transcript",
		"normalized", text,
		"amount", amount.Raw, "amount_span", amount.Span, "amount_confidence", amount.Confidence,
		"category", category.Category, "category_raw", category.Raw, "category_priority", category.Priority,
		"date", date.ISODate, "date_raw", date.Raw,
		"title", title.Text, "title_fallback", title.Fallback,
		"overall", result.Confidence.Overall,
		"needs_confirmation", result.NeedsConfirmation,
	)

	return result
}

// ParseBatch parses each transcript independently against one reference date.
// The output order matches the input order.
func (p *Parser) ParseBatch(transcripts []string, categories []string) []ParsedExpense {
	ref := p.now()
	out := make([]ParsedExpense, len(transcripts))
	for i, t := range transcripts {
		out[i] = p.ParseAt(t, categories, ref)
	}
	return out
}

// Validate reports semantic problems with e. It does not modify e.
func (p *Parser) Validate(e ParsedExpense) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if amt, err := decimal.NewFromString(e.Amount); err != nil || !amt.IsPositive() {
		res.Errors = append(res.Errors, ErrMissingAmount)
	}
	if e.Title == "" || e.Title == DefaultTitle {
		res.Errors = append(res.Errors, ErrMissingTitle)
	}
	if e.Category == "" || e.Category == p.fallback {
		res.Errors = append(res.Errors, ErrMissingCategory)
	}
	if e.NeedsConfirmation {
		res.Warnings = append(res.Warnings, WarnLowConfidence)
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

var defaultParser = New()

// Parse parses transcript with the default parser, anchored to today.
func Parse(transcript string, categories []string) ParsedExpense {
	return defaultParser.Parse(transcript, categories)
}

// ParseBatch parses transcripts with the default parser.
func ParseBatch(transcripts []string, categories []string) []ParsedExpense {
	return defaultParser.ParseBatch(transcripts, categories)
}

// Validate checks e against the default fallback category.
func Validate(e ParsedExpense) ValidationResult {
	return defaultParser.Validate(e)
}
