package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegressionCorpus(t *testing.T) {
	cases := RegressionCases()
	require.NotEmpty(t, cases)

	p := newTestParser()
	results := p.RunRegression(cases, CoreCategories)
	require.Len(t, results, len(cases))

	byInput := make(map[string]RegressionResult, len(results))
	passed := 0
	for _, r := range results {
		byInput[r.Case.Input] = r
		if r.Passed() {
			passed++
		}
	}

	for _, in := range []string{
		"50tk on breakfast",
		"breakfast 50 taka",
		"uber ride 250",
		"spent twenty five dollars on lunch",
		"fifty rupees rickshaw fare",
		"coffee 4.50 dollars",
		"laptop 50k",
		"paid 2.5k rent",
		"netflix subscription 199",
		"electricity bill 2300",
	} {
		r, ok := byInput[in]
		require.True(t, ok, "corpus is missing %q", in)
		assert.True(t, r.Passed(), "%q: %v", in, r.Failures)
	}
	assert.GreaterOrEqual(t, passed, len(cases)/2)
}

func TestCheckReportsEachField(t *testing.T) {
	p := newTestParser()

	r := p.Check(RegressionCase{
		Input:         "uber ride 250",
		Amount:        "300",
		Category:      "Shopping",
		TitleContains: "bus",
	}, CoreCategories)

	assert.False(t, r.Passed())
	assert.Len(t, r.Failures, 3)
}

func TestSameDecimal(t *testing.T) {
	assert.True(t, sameDecimal("4.50", "4.5"))
	assert.True(t, sameDecimal("50000", "50000"))
	assert.False(t, sameDecimal("50", ""))
	assert.False(t, sameDecimal("50", "5"))
}
