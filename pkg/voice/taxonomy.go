package voice

import "strings"

// DefaultFallbackCategory is the bucket for transcripts with no matching category.
const DefaultFallbackCategory = "Uncategorized"

// CoreCategories is the default taxonomy.
var CoreCategories = []string{
	"Food & Dining",
	"Groceries",
	"Transport",
	"Shopping",
	"Bills & Utilities",
	"Health & Medical",
	"Entertainment",
	"Education",
	"Personal Care",
	"Housing",
	"Family Support",
	"Debt & Loans",
	"Gifts & Events",
	"Subscriptions",
	"Others",
}

// OptionalCategories can be enabled on top of CoreCategories.
var OptionalCategories = []string{
	"Investments & Savings",
	"Travel & Vacation",
	"Kids & Baby",
	"Pets",
	"Business & Work",
	"Vehicle",
}

// legacyCategories maps older category names onto the current taxonomy.
var legacyCategories = map[string]string{
	"food":           "Food & Dining",
	"rent":           "Housing",
	"utilities":      "Bills & Utilities",
	"health":         "Health & Medical",
	"insurance":      "Bills & Utilities",
	"investment":     "Investments & Savings",
	"gifts":          "Gifts & Events",
	"kids":           "Kids & Baby",
	"services":       "Others",
	"business":       "Business & Work",
	"events":         "Gifts & Events",
	"family support": "Family Support",
	"donations":      "Gifts & Events",
	"income":         "Others",
}

// CanonicalCategory returns the current name for a legacy category, or the
// trimmed name unchanged.
func CanonicalCategory(name string) string {
	name = strings.TrimSpace(name)
	if c, ok := legacyCategories[strings.ToLower(name)]; ok {
		return c
	}
	return name
}

// CanonicalCategories canonicalizes names and drops empty and duplicate entries,
// keeping the first occurrence.
func CanonicalCategories(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		c := CanonicalCategory(n)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
