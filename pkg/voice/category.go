package voice

import (
	"slices"
	"strings"
)

// CategoryResult is the selected category. Category is empty when nothing matched.
type CategoryResult struct {
	Category   string  `json:"category,omitempty"`
	Raw        string  `json:"raw,omitempty"`
	Span       *Span   `json:"span"`
	Confidence float64 `json:"confidence"`
	Priority   int     `json:"priority"`
}

// Found reports whether a category was matched.
func (r CategoryResult) Found() bool {
	return r.Category != ""
}

const (
	exactPriority   = 10
	exactConfidence = 1.0
	aliasConfidence = 0.85
)

// ExtractCategory matches normalized text against the caller's categories and
// the built-in alias table.
func ExtractCategory(text string, categories []string) CategoryResult {
	return extractCategory(text, categories, defaultAliases)
}

func extractCategory(text string, categories []string, aliases *AliasTable) CategoryResult {
	cands := categoryCandidates(text, categories, aliases)
	best, ok := selectBest(dedupeCategories(cands), nil,
		byPriority[string],
		byConfidence[string],
		byPosition[string],
		byLength[string],
		byCategoryName,
	)
	if !ok {
		return CategoryResult{}
	}
	span := best.Span
	return CategoryResult{
		Category:   best.Value,
		Raw:        best.Raw,
		Span:       &span,
		Confidence: best.Confidence,
		Priority:   best.Priority,
	}
}

func byCategoryName(a, b Candidate[string]) int {
	return strings.Compare(a.Value, b.Value)
}

// categoryCandidates returns exact-name matches followed by alias matches.
func categoryCandidates(text string, categories []string, aliases *AliasTable) []Candidate[string] {
	lower := foldCase(text)

	valid := make(map[string]struct{}, len(categories))
	var cands []Candidate[string]
	for _, category := range categories {
		if category == "" {
			continue
		}
		if _, dup := valid[category]; dup {
			continue
		}
		valid[category] = struct{}{}

		span, ok := findWord(lower, foldCase(category), 0)
		if !ok {
			continue
		}
		cands = append(cands, Candidate[string]{
			Value:      category,
			Raw:        text[span.Start:span.End],
			Span:       span,
			Confidence: exactConfidence,
			Priority:   exactPriority,
		})
	}

	if aliases == nil {
		return cands
	}
	for _, group := range aliases.Groups {
		idx := slices.IndexFunc(group.Categories, func(c string) bool {
			_, ok := valid[c]
			return ok
		})
		if idx < 0 {
			continue
		}
		for _, kw := range group.Keywords {
			span, ok := findAlias(lower, kw)
			if !ok {
				continue
			}
			cands = append(cands, Candidate[string]{
				Value:      group.Categories[idx],
				Raw:        text[span.Start:span.End],
				Span:       span,
				Confidence: aliasConfidence,
				Priority:   group.Priority,
			})
		}
	}
	return cands
}

// findAlias returns the first occurrence of keyword flanked on both sides by
// a separator or the edge of the text.
func findAlias(text, keyword string) (Span, bool) {
	if keyword == "" {
		return Span{}, false
	}
	for from := 0; from <= len(text)-len(keyword); {
		idx := strings.Index(text[from:], keyword)
		if idx < 0 {
			break
		}
		start := from + idx
		end := start + len(keyword)
		before := start == 0 || isSeparator(text[start-1])
		after := end == len(text) || isSeparator(text[end])
		if before && after {
			return Span{Start: start, End: end}, true
		}
		from = start + 1
	}
	return Span{}, false
}

// dedupeCategories keeps one candidate per (category, start), preferring
// higher priority and then higher confidence. First-seen order is kept.
func dedupeCategories(cands []Candidate[string]) []Candidate[string] {
	type key struct {
		category string
		start    int
	}
	index := make(map[key]int, len(cands))
	out := make([]Candidate[string], 0, len(cands))
	for _, c := range cands {
		k := key{c.Value, c.Span.Start}
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, c)
			continue
		}
		prev := out[i]
		if c.Priority > prev.Priority || (c.Priority == prev.Priority && c.Confidence > prev.Confidence) {
			out[i] = c
		}
	}
	return out
}
