package voice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// refDate is a Tuesday afternoon.
var refDate = time.Date(2025, time.June, 10, 15, 30, 0, 0, time.UTC)

func TestExtractDate(t *testing.T) {
	tests := []struct {
		text string
		want string
		raw  string
	}{
		{text: "coffee 50 yesterday", want: "2025-06-09", raw: "yesterday"},
		{text: "lunch today", want: "2025-06-10"},
		{text: "tickets for tomorrow", want: "2025-06-11"},
		{text: "day before yesterday taxi", want: "2025-06-08", raw: "day before yesterday"},
		{text: "day after tomorrow hotel", want: "2025-06-12"},
		{text: "dinner last night", want: "2025-06-09"},
		{text: "groceries this morning", want: "2025-06-10"},
		{text: "3 days ago pharmacy", want: "2025-06-07"},
		{text: "a week ago", want: "2025-06-03"},
		{text: "last week gym", want: "2025-06-03"},
		{text: "last monday fuel", want: "2025-06-09", raw: "last monday"},
		{text: "on tuesday rent", want: "2025-06-03", raw: "on tuesday"},
		{text: "sunday brunch", want: "2025-06-08"},
		{text: "6 january 2025 books", want: "2025-01-06"},
		{text: "january 6th 2025 books", want: "2025-01-06", raw: "january 6th 2025"},
		{text: "12 mar 2024", want: "2024-03-12"},
		{text: "2nd february", want: "2025-02-02"},
		{text: "march 15", want: "2025-03-15"},
		{text: "15/03/2025 internet", want: "2025-03-15"},
		{text: "06/01/2025", want: "2025-06-01"},
		{text: "2024-02-29 leap day", want: "2024-02-29"},
		{text: "Yesterday 200 taka", want: "2025-06-09", raw: "Yesterday"},
		{text: "paid rent yesterday, not today", want: "2025-06-09"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ExtractDate(tt.text, refDate)
			require.True(t, got.Found())
			assert.Equal(t, tt.want, got.ISODate)
			require.NotNil(t, got.Span)
			assert.Equal(t, got.Raw, tt.text[got.Span.Start:got.Span.End])
			if tt.raw != "" {
				assert.Equal(t, tt.raw, got.Raw)
			}
		})
	}
}

func TestExtractDateRejectsInvalidCalendarDays(t *testing.T) {
	for _, text := range []string{
		"expense on 31 february 2025",
		"2025-02-29",
		"31 april 2025",
		"400 days ago",
		"0 days ago",
		"coffee 50",
		"",
	} {
		t.Run(text, func(t *testing.T) {
			got := ExtractDate(text, refDate)
			assert.False(t, got.Found())
			assert.Nil(t, got.Span)
		})
	}
}

func TestExtractDateUsesReferenceLocation(t *testing.T) {
	dhaka := time.FixedZone("BST", 6*60*60)
	// 2025-06-10 01:00 in Dhaka is still the 9th in UTC.
	ref := time.Date(2025, time.June, 10, 1, 0, 0, 0, dhaka)

	got := ExtractDate("yesterday", ref)
	assert.Equal(t, "2025-06-09", got.ISODate)
	got = ExtractDate("yesterday", ref.UTC())
	assert.Equal(t, "2025-06-08", got.ISODate)
}
