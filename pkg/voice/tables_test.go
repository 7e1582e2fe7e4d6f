package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAliasTable(t *testing.T) {
	table := DefaultAliasTable()

	assert.Equal(t, 1, table.Version)
	assert.NotEmpty(t, table.Groups)
	assert.Greater(t, table.KeywordCount(), 500)

	for _, g := range table.Groups {
		assert.NotEmpty(t, g.Categories, g.Name)
		assert.GreaterOrEqual(t, g.Priority, 0, g.Name)
		assert.LessOrEqual(t, g.Priority, 4, g.Name)
		seen := map[string]bool{}
		for _, kw := range g.Keywords {
			assert.Equal(t, foldCase(kw), kw, "keyword %q in %s is not lowercase", kw, g.Name)
			assert.False(t, seen[kw], "duplicate keyword %q in %s", kw, g.Name)
			seen[kw] = true
		}
	}
}

func TestLoadAliasTable(t *testing.T) {
	table, err := LoadAliasTable([]byte(`{
		"version": 2,
		"groups": [
			{"name": "tea", "categories": ["Tea"], "priority": 4, "keywords": ["  Chai ", "chai", "CUTTING"]}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, table.Groups, 1)
	assert.Equal(t, []string{"chai", "cutting"}, table.Groups[0].Keywords)

	p := New(WithAliases(table), WithReferenceDate(refDate))
	got := p.Parse("chai 20", []string{"Tea", "Food & Dining"})
	assert.Equal(t, "Tea", got.Category)
	assert.Equal(t, "20", got.Amount)
}

func TestLoadAliasTableRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: `{`},
		{name: "missing groups", doc: `{"version": 1}`},
		{name: "priority out of range", doc: `{"version": 1, "groups": [{"name": "x", "categories": ["X"], "priority": 12, "keywords": ["x"]}]}`},
		{name: "empty keyword", doc: `{"version": 1, "groups": [{"name": "x", "categories": ["X"], "priority": 1, "keywords": [""]}]}`},
		{name: "unknown field", doc: `{"version": 1, "groups": [{"name": "x", "categories": ["X"], "priority": 1, "keywords": ["x"], "weight": 3}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAliasTable([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadLexiconRejectsBadPattern(t *testing.T) {
	_, err := loadLexicon([]byte(`{
		"version": 1,
		"normalize": [{"pattern": "(", "replacement": "x"}],
		"numbers": {"one": 1},
		"currencies": {}
	}`))
	assert.ErrorContains(t, err, "compiling normalize pattern")
}

func TestCanonicalCategory(t *testing.T) {
	tests := map[string]string{
		"Food":           "Food & Dining",
		" rent ":         "Housing",
		"Insurance":      "Bills & Utilities",
		"Family support": "Family Support",
		"Income":         "Others",
		"Groceries":      "Groceries",
		"Coffee Shops":   "Coffee Shops",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalCategory(in), in)
	}

	assert.Equal(t,
		[]string{"Food & Dining", "Housing", "Travel"},
		CanonicalCategories([]string{"Food", "Food & Dining", "", "Rent", "Travel", "Housing"}),
	)
}
