package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		categories []string
		want       string
		confidence float64
		raw        string
	}{
		{
			name:       "alias",
			text:       "50tk on breakfast",
			categories: []string{"Food & Dining", "Transport", "Others"},
			want:       "Food & Dining",
			confidence: 0.85,
			raw:        "breakfast",
		},
		{
			name:       "exact name beats alias",
			text:       "shopping for groceries",
			categories: []string{"Shopping", "Groceries"},
			want:       "Shopping",
			confidence: 1.0,
			raw:        "shopping",
		},
		{
			name:       "exact name is case insensitive",
			text:       "Monthly RENT paid",
			categories: []string{"Rent"},
			want:       "Rent",
			confidence: 1.0,
			raw:        "RENT",
		},
		{
			name:       "higher priority group wins",
			text:       "gym membership renewal",
			categories: CoreCategories,
			want:       "Subscriptions",
			confidence: 0.85,
		},
		{
			name:       "tie broken by category name",
			text:       "coffee",
			categories: []string{"Groceries", "Food & Dining"},
			want:       "Food & Dining",
			confidence: 0.85,
		},
		{
			name:       "punctuation is a boundary",
			text:       "netflix, again",
			categories: CoreCategories,
			want:       "Subscriptions",
			confidence: 0.85,
			raw:        "netflix",
		},
		{
			name:       "keyword with symbols",
			text:       "h&m shirt",
			categories: CoreCategories,
			want:       "Shopping",
			confidence: 0.85,
			raw:        "h&m",
		},
		{
			name:       "substring of a longer word does not match",
			text:       "automobile expense",
			categories: []string{"Transport", "Others"},
			want:       "Others",
			confidence: 0.85,
			raw:        "expense",
		},
		{
			name:       "second occurrence satisfies the boundary",
			text:       "uber-like uber",
			categories: []string{"Transport"},
			want:       "Transport",
			confidence: 0.85,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCategory(tt.text, tt.categories)
			require.True(t, got.Found())
			assert.Equal(t, tt.want, got.Category)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
			require.NotNil(t, got.Span)
			assert.Equal(t, got.Raw, tt.text[got.Span.Start:got.Span.End])
			if tt.raw != "" {
				assert.Equal(t, tt.raw, got.Raw)
			}
		})
	}
}

func TestExtractCategoryNoMatch(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		categories []string
	}{
		{name: "alias target not in taxonomy", text: "uber ride", categories: []string{"Food & Dining"}},
		{name: "empty taxonomy", text: "uber ride", categories: nil},
		{name: "empty text", text: "", categories: CoreCategories},
		{name: "compound word", text: "automobile", categories: []string{"Transport"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCategory(tt.text, tt.categories)
			assert.False(t, got.Found())
			assert.Nil(t, got.Span)
			assert.Zero(t, got.Confidence)
		})
	}
}

func TestDedupeCategoriesKeepsStrongest(t *testing.T) {
	in := []Candidate[string]{
		{Value: "Food & Dining", Span: Span{0, 6}, Confidence: 0.85, Priority: 2},
		{Value: "Groceries", Span: Span{0, 6}, Confidence: 0.85, Priority: 3},
		{Value: "Food & Dining", Span: Span{0, 6}, Confidence: 0.85, Priority: 3},
	}

	out := dedupeCategories(in)
	require.Len(t, out, 2)
	assert.Equal(t, "Food & Dining", out[0].Value)
	assert.Equal(t, 3, out[0].Priority)
	assert.Equal(t, "Groceries", out[1].Value)
}
