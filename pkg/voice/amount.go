package voice

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountResult is the selected amount. Value is invalid when nothing was found.
type AmountResult struct {
	Value      decimal.NullDecimal `json:"value"`
	Currency   string              `json:"currency,omitempty"`
	Raw        string              `json:"raw,omitempty"`
	Span       *Span               `json:"span"`
	Confidence float64             `json:"confidence"`
}

// Found reports whether an amount was extracted.
func (r AmountResult) Found() bool {
	return r.Value.Valid
}

// String returns the amount without trailing zeros, or "" when absent.
func (r AmountResult) String() string {
	if !r.Value.Valid {
		return ""
	}
	return r.Value.Decimal.String()
}

const maxBareAmount = 1_000_000

type amountValue struct {
	amount   decimal.Decimal
	currency string
}

// amountRule is one pattern family. parse turns the submatch indices of a
// match into a value; returning false drops the match.
type amountRule struct {
	name        string
	re          *regexp.Regexp
	confidence  float64
	skipCovered bool
	parse       func(l *lexicon, text string, m []int) (amountValue, bool)
}

// digits matches a plain or comma-grouped integer part ("1500", "1,500").
const digits = `(?:\d{1,3}(?:,\d{3})+|\d+)`

var (
	symbolAmount   = regexp.MustCompile(`([$£€₹¥])\s*(` + digits + `(?:\.\d{1,2})?)`)
	currencyAmount = regexp.MustCompile(`(` + digits + `(?:\.\d{1,2})?)\s*(tk|taka|dollars?|euros?|pounds?|bucks?|rupees?|rs\.?|ringgit|rm|pesos?|yen|yuan|won|gbp|usd|eur|inr)\b`)
	kAmount        = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*k\b`)
	decimalAmount  = regexp.MustCompile(`\b(` + digits + `\.\d{1,2})\b`)
	integerAmount  = regexp.MustCompile(`\b(` + digits + `)\b`)

	trailingCurrency = regexp.MustCompile(`\s(dollars?|euros?|pounds?|taka|tk|rupees?|rs|bucks?)$`)
)

func (l *lexicon) amountRules() []amountRule {
	return []amountRule{
		{name: "symbol", re: symbolAmount, confidence: 0.95, parse: parseCurrencyGroups(2, 1)},
		{name: "currency_word", re: currencyAmount, confidence: 0.95, parse: parseCurrencyGroups(1, 2)},
		{name: "spoken", re: l.spoken, confidence: 0.85, parse: parseSpokenMatch},
		{name: "k_shorthand", re: kAmount, confidence: 0.90, parse: parseKShorthand},
		{name: "decimal", re: decimalAmount, confidence: 0.75, skipCovered: true, parse: parseNumberGroup(false)},
		{name: "integer", re: integerAmount, confidence: 0.60, skipCovered: true, parse: parseNumberGroup(true)},
	}
}

// submatch returns group g of match m, or "" when the group did not take part.
func submatch(text string, m []int, g int) string {
	if 2*g+1 >= len(m) || m[2*g] < 0 {
		return ""
	}
	return text[m[2*g]:m[2*g+1]]
}

func parseCurrencyGroups(numGroup, curGroup int) func(*lexicon, string, []int) (amountValue, bool) {
	return func(l *lexicon, text string, m []int) (amountValue, bool) {
		d, err := parseDigits(submatch(text, m, numGroup))
		if err != nil {
			return amountValue{}, false
		}
		return amountValue{amount: d, currency: l.currencies[submatch(text, m, curGroup)]}, true
	}
}

func parseSpokenMatch(l *lexicon, text string, m []int) (amountValue, bool) {
	phrase := submatch(text, m, 1)
	d, ok := l.parseSpoken(phrase)
	if !ok {
		return amountValue{}, false
	}
	var currency string
	if cm := trailingCurrency.FindStringSubmatch(phrase); cm != nil {
		currency = l.currencies[cm[1]]
	}
	return amountValue{amount: d, currency: currency}, true
}

func parseKShorthand(_ *lexicon, text string, m []int) (amountValue, bool) {
	d, err := decimal.NewFromString(submatch(text, m, 1))
	if err != nil {
		return amountValue{}, false
	}
	return amountValue{amount: d.Mul(decimal.NewFromInt(1000))}, true
}

func parseNumberGroup(bounded bool) func(*lexicon, string, []int) (amountValue, bool) {
	ceiling := decimal.NewFromInt(maxBareAmount)
	return func(_ *lexicon, text string, m []int) (amountValue, bool) {
		d, err := parseDigits(submatch(text, m, 1))
		if err != nil {
			return amountValue{}, false
		}
		if bounded && (d.LessThan(decimal.NewFromInt(1)) || d.GreaterThan(ceiling)) {
			return amountValue{}, false
		}
		return amountValue{amount: d}, true
	}
}

func parseDigits(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

// ExtractAmount finds the most reliable amount in normalized text.
func ExtractAmount(text string) AmountResult {
	return defaultLexicon.extractAmount(text)
}

func (l *lexicon) amountCandidates(text string) []Candidate[amountValue] {
	lower := foldCase(text)

	var cands []Candidate[amountValue]
	covered := func(s Span) bool {
		for _, c := range cands {
			if c.Span.Contains(s) {
				return true
			}
		}
		return false
	}

	for _, rule := range l.amountRules() {
		for _, m := range rule.re.FindAllStringSubmatchIndex(lower, -1) {
			span := Span{Start: m[0], End: m[1]}
			if rule.skipCovered && covered(span) {
				continue
			}
			v, ok := rule.parse(l, lower, m)
			if !ok || !v.amount.IsPositive() {
				continue
			}
			cands = append(cands, Candidate[amountValue]{
				Value:      v,
				Raw:        text[span.Start:span.End],
				Span:       span,
				Confidence: rule.confidence,
			})
		}
	}
	return cands
}

func (l *lexicon) extractAmount(text string) AmountResult {
	best, ok := selectBest(l.amountCandidates(text), sameAmount, byConfidence[amountValue], byPosition[amountValue])
	if !ok {
		return AmountResult{}
	}
	span := best.Span
	return AmountResult{
		Value:      decimal.NewNullDecimal(best.Value.amount),
		Currency:   best.Value.currency,
		Raw:        best.Raw,
		Span:       &span,
		Confidence: best.Confidence,
	}
}

// sameAmount reports whether c repeats the value of kept over an overlapping span.
func sameAmount(kept, c Candidate[amountValue]) bool {
	return kept.Value.amount.Equal(c.Value.amount) && kept.Span.Overlaps(c.Span)
}
