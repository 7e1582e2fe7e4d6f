package voice

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultTitle is used when nothing descriptive is left in the transcript.
const DefaultTitle = "Expense"

// TitleResult is the extracted title.
type TitleResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Fallback   bool    `json:"fallback"`
}

// fillerPatterns are applied once each, in order.
var fillerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:i\s+)?(?:spent|added?|recorded?|logged?|expense\s+(?:of|for)?|pay(?:ment)?\s+(?:of|for)?|bought|paid\s+for?|cost\s+of?|gave|transferred|sent)\s+`),
	regexp.MustCompile(`(?i)^\s*(?:on|for|at|to|in|from|with|via|through)\s+`),
	regexp.MustCompile(`(?i)\s*\b(?:like|just|maybe|perhaps|probably|around|about|approximately|roughly|something|kind\s+of|sort\s+of|more\s+or\s+less)\s*$`),
	regexp.MustCompile(`(?i)\s*\b(?:today|yesterday|tonight|this\s+morning|this\s+evening|just\s+now|earlier)\s*$`),
}

var leftoverPreposition = regexp.MustCompile(`(?i)^(?:on|for|at|to|in|from)$`)

// ExtractTitle removes the amount and date spans from normalized text, strips
// filler and title-cases what remains. The category phrase is kept in the
// title and only used as a fallback when nothing else is left.
func ExtractTitle(text string, amount AmountResult, category CategoryResult, date DateResult) TitleResult {
	var spans []Span
	if amount.Span != nil {
		spans = append(spans, *amount.Span)
	}
	if date.Span != nil {
		spans = append(spans, *date.Span)
	}

	title := cutSpans(text, spans)
	for _, re := range fillerPatterns {
		title = re.ReplaceAllLiteralString(title, "")
	}
	title = strings.TrimSpace(title)

	if title != "" && !leftoverPreposition.MatchString(title) {
		return TitleResult{Text: titleCase(title), Confidence: 0.9}
	}
	if category.Raw != "" {
		return TitleResult{Text: titleCase(category.Raw), Confidence: 0.5, Fallback: true}
	}
	return TitleResult{Text: DefaultTitle, Confidence: 0.5, Fallback: true}
}

// titleCase upper-cases the first letter of each word and lower-cases the rest.
// A Caser keeps state, so one is made per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
