package voice

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is a half-open byte range [Start, End) into the normalized transcript.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by s.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Contains reports whether o lies entirely inside s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && s.End >= o.End
}

// MergeSpans returns the union of spans as a sorted list of disjoint spans.
// Touching spans are merged. The input is not modified.
func MergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}

	sorted := slices.Clone(spans)
	slices.SortStableFunc(sorted, func(a, b Span) int { return a.Start - b.Start })

	merged := []Span{sorted[0]}
	for _, cur := range sorted[1:] {
		last := merged[len(merged)-1]
		if cur.Start <= last.End {
			merged[len(merged)-1] = Span{Start: last.Start, End: max(last.End, cur.End)}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// cutSpans removes spans from text, joins the remaining pieces with a space
// and collapses whitespace.
func cutSpans(text string, spans []Span) string {
	var parts []string
	last := 0
	for _, s := range MergeSpans(spans) {
		start := min(max(s.Start, 0), len(text))
		end := min(max(s.End, 0), len(text))
		if start > last {
			parts = append(parts, text[last:start])
		}
		last = max(last, end)
	}
	if last < len(text) {
		parts = append(parts, text[last:])
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// foldCase lowercases text rune by rune without changing its byte length,
// so spans found in the folded text index the original text too.
func foldCase(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size <= 1 {
			b.WriteByte(text[i])
			i++
			continue
		}
		if lr := unicode.ToLower(r); lr != r && utf8.RuneLen(lr) == size {
			b.WriteRune(lr)
		} else {
			b.WriteString(text[i : i+size])
		}
		i += size
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// atWordBoundary mirrors the regexp \b assertion at byte offset i.
func atWordBoundary(text string, i int) bool {
	before := i > 0 && isWordByte(text[i-1])
	after := i < len(text) && isWordByte(text[i])
	return before != after
}

// isSeparator reports whether c may flank an alias keyword.
func isSeparator(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v', ',', ';', '.', '!', '?':
		return true
	}
	return false
}

// findWord returns the span of the first occurrence of word in text, at or
// after from, that sits on word boundaries on both sides.
func findWord(text, word string, from int) (Span, bool) {
	if word == "" {
		return Span{}, false
	}
	for from <= len(text)-len(word) {
		idx := strings.Index(text[from:], word)
		if idx < 0 {
			return Span{}, false
		}
		start := from + idx
		end := start + len(word)
		if atWordBoundary(text, start) && atWordBoundary(text, end) {
			return Span{Start: start, End: end}, true
		}
		from = start + 1
	}
	return Span{}, false
}
