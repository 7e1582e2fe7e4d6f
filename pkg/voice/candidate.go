package voice

import (
	"cmp"
	"math"
	"slices"
)

// confidenceEpsilon is the smallest confidence difference that orders two candidates.
const confidenceEpsilon = 0.01

// Candidate is a provisional match for one field. Extractors produce them in
// bulk; only the selection step turns one into a result.
type Candidate[T any] struct {
	Value      T
	Raw        string
	Span       Span
	Confidence float64
	Priority   int
}

// byConfidence orders higher confidence first. Differences within
// confidenceEpsilon compare equal.
func byConfidence[T any](a, b Candidate[T]) int {
	if math.Abs(a.Confidence-b.Confidence) > confidenceEpsilon {
		return cmp.Compare(b.Confidence, a.Confidence)
	}
	return 0
}

func byPriority[T any](a, b Candidate[T]) int {
	return cmp.Compare(b.Priority, a.Priority)
}

func byPosition[T any](a, b Candidate[T]) int {
	return cmp.Compare(a.Span.Start, b.Span.Start)
}

func byLength[T any](a, b Candidate[T]) int {
	return cmp.Compare(b.Span.Len(), a.Span.Len())
}

// selectBest drops candidates for which dup reports a match with an earlier
// survivor, stably sorts the rest by the comparators in order and returns the
// winner.
func selectBest[T any](cands []Candidate[T], dup func(kept, c Candidate[T]) bool, order ...func(a, b Candidate[T]) int) (Candidate[T], bool) {
	unique := make([]Candidate[T], 0, len(cands))
	for _, c := range cands {
		if dup != nil && slices.ContainsFunc(unique, func(k Candidate[T]) bool { return dup(k, c) }) {
			continue
		}
		unique = append(unique, c)
	}
	if len(unique) == 0 {
		var zero Candidate[T]
		return zero, false
	}

	slices.SortStableFunc(unique, func(a, b Candidate[T]) int {
		for _, o := range order {
			if c := o(a, b); c != 0 {
				return c
			}
		}
		return 0
	})
	return unique[0], true
}
