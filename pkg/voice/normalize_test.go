package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   \t ", ""},
		{"  I paid  fifty   take a  for coffey ", "I paid fifty taka for coffee"},
		{"50 takka on resturant", "50 taka on restaurant"},
		{"petrol 500", "fuel 500"},
		{"break fast 40", "breakfast 40"},
		{"automobile repair", "automobile repair"},
		{"20 Dollor", "20 dollars"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestParseSpoken(t *testing.T) {
	tests := []struct {
		phrase string
		want   string
		ok     bool
	}{
		{"twenty five", "25", true},
		{"twenty five dollars", "25", true},
		{"two thousand five hundred", "2500", true},
		{"one hundred and twenty", "120", true},
		{"four point five", "4.5", true},
		{"nine point nine nine", "9.99", true},
		{"ek sau", "100", true},
		{"paanch hundred", "500", true},
		{"hundred", "100", true},
		{"zero", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, ok := defaultLexicon.parseSpoken(tt.phrase)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestSpokenPatternPrefersLongerWords(t *testing.T) {
	m := defaultLexicon.spoken.FindStringSubmatch("seventy seven taka")
	require.NotNil(t, m)
	assert.Equal(t, "seventy seven taka", m[1])
}
