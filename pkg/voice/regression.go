package voice

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed data/regression.json
var regressionInput []byte

// RegressionCase is a transcript with the fields it is expected to produce.
// Empty expectations are not checked.
type RegressionCase struct {
	Input         string `json:"input"`
	Amount        string `json:"amount,omitempty"`
	Category      string `json:"category,omitempty"`
	TitleContains string `json:"titleContains,omitempty"`
}

// RegressionResult is the outcome of one case.
type RegressionResult struct {
	Case     RegressionCase
	Got      ParsedExpense
	Failures []string
}

// Passed reports whether every expectation held.
func (r RegressionResult) Passed() bool {
	return len(r.Failures) == 0
}

// RegressionCases returns the built-in transcript corpus.
func RegressionCases() []RegressionCase {
	var doc struct {
		Version int              `json:"version"`
		Cases   []RegressionCase `json:"cases"`
	}
	if err := json.Unmarshal(regressionInput, &doc); err != nil {
		panic(fmt.Sprintf("voice: decoding regression corpus: %v", err))
	}
	return doc.Cases
}

// Check parses c.Input and compares the result with the expectations.
// Amounts are compared numerically.
func (p *Parser) Check(c RegressionCase, categories []string) RegressionResult {
	got := p.Parse(c.Input, categories)
	res := RegressionResult{Case: c, Got: got}

	if c.Amount != "" && !sameDecimal(c.Amount, got.Amount) {
		res.Failures = append(res.Failures, fmt.Sprintf("amount: expected %s, got %q", c.Amount, got.Amount))
	}
	if c.Category != "" && got.Category != c.Category {
		res.Failures = append(res.Failures, fmt.Sprintf("category: expected %s, got %q", c.Category, got.Category))
	}
	if c.TitleContains != "" && !strings.Contains(strings.ToLower(got.Title), strings.ToLower(c.TitleContains)) {
		res.Failures = append(res.Failures, fmt.Sprintf("title: expected to contain %q, got %q", c.TitleContains, got.Title))
	}
	return res
}

// RunRegression checks every case in order.
func (p *Parser) RunRegression(cases []RegressionCase, categories []string) []RegressionResult {
	out := make([]RegressionResult, 0, len(cases))
	for _, c := range cases {
		out = append(out, p.Check(c, categories))
	}
	return out
}

func sameDecimal(want, got string) bool {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return want == got
	}
	g, err := decimal.NewFromString(got)
	if err != nil {
		return false
	}
	return w.Equal(g)
}
