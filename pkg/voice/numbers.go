package voice

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// spokenCurrency ends a spoken number phrase.
var spokenCurrency = regexp.MustCompile(`^(?:dollars?|euros?|pounds?|bucks?|taka|tk|rupees?|rs|ringgit|pesos?|yen|yuan|won)$`)

// spokenPattern builds the expression that finds runs of number words,
// optionally followed by a currency word. Longer words are tried first so
// "seventy" is not read as "seven".
func spokenPattern(numbers map[string]int64) string {
	words := make([]string, 0, len(numbers))
	for w := range numbers {
		words = append(words, regexp.QuoteMeta(w))
	}
	slices.SortFunc(words, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	w := strings.Join(words, "|")

	return `\b((?:` + w + `)(?:\s+(?:and|aur|point|dot|` + w + `))*` +
		`(?:\s+(?:dollars?|euros?|pounds?|taka|tk|rupees?|rs|bucks?))?)\b`
}

// parseSpoken converts a phrase such as "two thousand five hundred" or
// "four point five" into a value rounded to two decimals. It reports false
// when the phrase yields nothing positive.
func (l *lexicon) parseSpoken(phrase string) (decimal.Decimal, bool) {
	tokens := strings.Fields(strings.ToLower(phrase))

	total := decimal.Zero
	current := decimal.Zero
	fraction := decimal.Zero
	hundred := decimal.NewFromInt(100)
	thousand := decimal.NewFromInt(1000)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "and" || tok == "aur" {
			continue
		}
		if tok == "point" || tok == "dot" {
			total = total.Add(current)
			current = decimal.Zero
			scale := decimal.NewFromFloat(0.1)
			for i+1 < len(tokens) {
				v, ok := l.numbers[tokens[i+1]]
				if !ok || v >= 10 {
					break
				}
				fraction = fraction.Add(decimal.NewFromInt(v).Mul(scale))
				scale = scale.Div(decimal.NewFromInt(10))
				i++
			}
			continue
		}
		if spokenCurrency.MatchString(tok) {
			break
		}

		v, ok := l.numbers[tok]
		if !ok {
			continue
		}
		switch v {
		case 100:
			current = orOne(current).Mul(hundred)
		case 1000:
			current = orOne(current).Mul(thousand)
			total = total.Add(current)
			current = decimal.Zero
		default:
			current = current.Add(decimal.NewFromInt(v))
		}
	}

	result := total.Add(current).Add(fraction).Round(2)
	if !result.IsPositive() {
		return decimal.Decimal{}, false
	}
	return result, true
}

func orOne(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.NewFromInt(1)
	}
	return d
}
