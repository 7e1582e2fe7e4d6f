package voice

import (
	"regexp"
	"slices"
	"strconv"
	"time"
)

// ISODateLayout is the format of DateResult.ISODate and ParsedExpense.Date.
const ISODateLayout = "2006-01-02"

// DateResult is the selected date. ISODate is empty when nothing matched and
// the caller should assume the reference day.
type DateResult struct {
	ISODate string `json:"isoDate,omitempty"`
	Raw     string `json:"raw,omitempty"`
	Span    *Span  `json:"span"`
}

// Found reports whether a date was matched.
func (r DateResult) Found() bool {
	return r.ISODate != ""
}

// dateRule resolves the first match of re against the day being anchored to.
type dateRule struct {
	re      *regexp.Regexp
	resolve func(today time.Time, groups []string) (time.Time, bool)
}

var (
	monthNames = []string{"january", "february", "march", "april", "may", "june", "july", "august", "september", "october", "november", "december"}
	monthShort = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	dayNames   = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

	dateRules = buildDateRules()
)

func offset(days int) func(time.Time, []string) (time.Time, bool) {
	return func(today time.Time, _ []string) (time.Time, bool) {
		return today.AddDate(0, 0, days), true
	}
}

// previousWeekday walks back 1 to 7 days to the last occurrence of day.
func previousWeekday(day time.Weekday) func(time.Time, []string) (time.Time, bool) {
	return func(today time.Time, _ []string) (time.Time, bool) {
		diff := int(today.Weekday()) - int(day)
		if diff <= 0 {
			diff += 7
		}
		return today.AddDate(0, 0, -diff), true
	}
}

// calendarDate builds year-month-day in loc and rejects combinations that do
// not exist, such as 31 February.
func calendarDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

func plausibleYear(y int) bool {
	return y >= 2000 && y <= 2100
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// monthDay resolves a day and optional year group for a fixed month.
func monthDay(month, dayGroup, yearGroup int) func(time.Time, []string) (time.Time, bool) {
	return func(today time.Time, g []string) (time.Time, bool) {
		year := today.Year()
		if yearGroup > 0 {
			year = atoi(g[yearGroup])
			if !plausibleYear(year) {
				return time.Time{}, false
			}
		}
		return calendarDate(year, month, atoi(g[dayGroup]), today.Location())
	}
}

func buildDateRules() []dateRule {
	ord := `(?:st|nd|rd|th)?`
	rules := []dateRule{
		{regexp.MustCompile(`\b(yesterday)\b`), offset(-1)},
		{regexp.MustCompile(`\b(today)\b`), offset(0)},
		{regexp.MustCompile(`\b(tomorrow)\b`), offset(1)},
		{regexp.MustCompile(`\b(day\s+before\s+yesterday)\b`), offset(-2)},
		{regexp.MustCompile(`\b(day\s+after\s+tomorrow)\b`), offset(2)},
		{regexp.MustCompile(`\b(this\s+morning|this\s+evening|tonight|just\s+now|earlier\s+today)\b`), offset(0)},
		{regexp.MustCompile(`\b(last\s+night)\b`), offset(-1)},
		{regexp.MustCompile(`\b(\d+)\s+days?\s+ago\b`), func(today time.Time, g []string) (time.Time, bool) {
			n := atoi(g[1])
			if n < 1 || n > 365 {
				return time.Time{}, false
			}
			return today.AddDate(0, 0, -n), true
		}},
		{regexp.MustCompile(`\b(a\s+week\s+ago|one\s+week\s+ago)\b`), offset(-7)},
		{regexp.MustCompile(`\b(last\s+week)\b`), offset(-7)},
	}

	for i, day := range dayNames {
		rules = append(rules, dateRule{regexp.MustCompile(`\b(last\s+` + day + `)\b`), previousWeekday(time.Weekday(i))})
	}
	for i, day := range dayNames {
		rules = append(rules, dateRule{regexp.MustCompile(`\b(on\s+)?` + day + `\b`), previousWeekday(time.Weekday(i))})
	}

	for i := range monthNames {
		name, short, month := monthNames[i], monthShort[i], i+1
		rules = append(rules,
			dateRule{regexp.MustCompile(`\b(\d{1,2})` + ord + `\s+` + name + `\s+(\d{4})\b`), monthDay(month, 1, 2)},
			dateRule{regexp.MustCompile(`\b` + name + `\s+(\d{1,2})` + ord + `\s+(\d{4})\b`), monthDay(month, 1, 2)},
			dateRule{regexp.MustCompile(`\b(\d{1,2})` + ord + `\s+` + short + `\s+(\d{4})\b`), monthDay(month, 1, 2)},
			dateRule{regexp.MustCompile(`\b(\d{1,2})` + ord + `\s+` + name + `\b`), monthDay(month, 1, 0)},
			dateRule{regexp.MustCompile(`\b` + name + `\s+(\d{1,2})` + ord + `\b`), monthDay(month, 1, 0)},
			dateRule{regexp.MustCompile(`\b(\d{1,2})` + ord + `\s+` + short + `\b`), monthDay(month, 1, 0)},
		)
	}

	rules = append(rules,
		// 6/1/2025 reads month first, then day first when that is not a date.
		dateRule{regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`), func(today time.Time, g []string) (time.Time, bool) {
			a, b, y := atoi(g[1]), atoi(g[2]), atoi(g[3])
			if !plausibleYear(y) {
				return time.Time{}, false
			}
			if t, ok := calendarDate(y, a, b, today.Location()); ok {
				return t, true
			}
			return calendarDate(y, b, a, today.Location())
		}},
		dateRule{regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`), func(today time.Time, g []string) (time.Time, bool) {
			y := atoi(g[1])
			if !plausibleYear(y) {
				return time.Time{}, false
			}
			return calendarDate(y, atoi(g[2]), atoi(g[3]), today.Location())
		}},
	)
	return rules
}

// ExtractDate resolves relative and absolute date expressions in normalized
// text against ref. The leftmost valid expression wins.
func ExtractDate(text string, ref time.Time) DateResult {
	lower := foldCase(text)
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	var cands []Candidate[time.Time]
	for _, rule := range dateRules {
		m := rule.re.FindStringSubmatchIndex(lower)
		if m == nil {
			continue
		}
		groups := make([]string, len(m)/2)
		for g := range groups {
			groups[g] = submatch(lower, m, g)
		}
		t, ok := rule.resolve(today, groups)
		if !ok {
			continue
		}
		span := Span{Start: m[0], End: m[1]}
		cands = append(cands, Candidate[time.Time]{Value: t, Raw: text[span.Start:span.End], Span: span})
	}
	if len(cands) == 0 {
		return DateResult{}
	}

	slices.SortStableFunc(cands, byPosition[time.Time])
	best := cands[0]
	return DateResult{
		ISODate: best.Value.Format(ISODateLayout),
		Raw:     best.Raw,
		Span:    &best.Span,
	}
}
