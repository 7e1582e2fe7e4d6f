package voice

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	//go:embed data/aliases.json
	aliasesInput []byte
	//go:embed data/aliases.schema.json
	aliasesSchema []byte
	//go:embed data/lexicon.json
	lexiconInput []byte
	//go:embed data/lexicon.schema.json
	lexiconSchema []byte
)

// AliasGroup maps a set of keywords to a category. The first entry of
// Categories present in the caller's taxonomy receives the match.
type AliasGroup struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Priority   int      `json:"priority"`
	Keywords   []string `json:"keywords"`
}

// AliasTable is the versioned keyword to category table.
type AliasTable struct {
	Version int          `json:"version"`
	Groups  []AliasGroup `json:"groups"`
}

// LoadAliasTable validates data against the alias table schema and decodes it.
// Keywords are lowercased and trimmed; duplicates inside a group are dropped.
func LoadAliasTable(data []byte) (*AliasTable, error) {
	if err := validateDocument("aliases.schema.json", aliasesSchema, data); err != nil {
		return nil, errors.Wrap(err, "alias table")
	}

	var table AliasTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrap(err, "decoding alias table")
	}

	for i := range table.Groups {
		g := &table.Groups[i]
		seen := make(map[string]struct{}, len(g.Keywords))
		keywords := g.Keywords[:0]
		for _, kw := range g.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			keywords = append(keywords, kw)
		}
		g.Keywords = keywords
	}

	return &table, nil
}

// DefaultAliasTable returns the built-in alias table. It must not be modified.
func DefaultAliasTable() *AliasTable {
	return defaultAliases
}

// KeywordCount returns the number of keywords across all groups.
func (t *AliasTable) KeywordCount() int {
	n := 0
	for _, g := range t.Groups {
		n += len(g.Keywords)
	}
	return n
}

type normalizeRule struct {
	re          *regexp.Regexp
	replacement string
}

// lexicon holds the transcription fixes, number words and currency codes.
type lexicon struct {
	rules      []normalizeRule
	numbers    map[string]int64
	currencies map[string]string
	spoken     *regexp.Regexp
}

type lexiconDoc struct {
	Version   int `json:"version"`
	Normalize []struct {
		Pattern     string `json:"pattern"`
		Replacement string `json:"replacement"`
	} `json:"normalize"`
	Numbers    map[string]int64  `json:"numbers"`
	Currencies map[string]string `json:"currencies"`
}

func loadLexicon(data []byte) (*lexicon, error) {
	if err := validateDocument("lexicon.schema.json", lexiconSchema, data); err != nil {
		return nil, errors.Wrap(err, "lexicon")
	}

	var doc lexiconDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding lexicon")
	}

	lex := &lexicon{
		rules:      make([]normalizeRule, 0, len(doc.Normalize)),
		numbers:    doc.Numbers,
		currencies: doc.Currencies,
	}
	for _, r := range doc.Normalize {
		re, err := regexp.Compile(`(?i)\b(?:` + r.Pattern + `)\b`)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling normalize pattern %q", r.Pattern)
		}
		lex.rules = append(lex.rules, normalizeRule{re: re, replacement: r.Replacement})
	}

	spoken, err := regexp.Compile(spokenPattern(doc.Numbers))
	if err != nil {
		return nil, errors.Wrap(err, "compiling spoken number pattern")
	}
	lex.spoken = spoken

	return lex, nil
}

// validateDocument checks a JSON document against an embedded schema.
func validateDocument(name string, schema, data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return errors.Wrap(err, "adding schema")
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		return errors.Wrap(err, "compiling schema")
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "decoding document")
	}
	if err := sch.Validate(v); err != nil {
		return errors.Wrap(err, "document does not match schema")
	}
	return nil
}

var (
	defaultLexicon = mustLoadLexicon()
	defaultAliases = mustLoadAliases()
)

func mustLoadLexicon() *lexicon {
	lex, err := loadLexicon(lexiconInput)
	if err != nil {
		panic(err)
	}
	return lex
}

func mustLoadAliases() *AliasTable {
	t, err := LoadAliasTable(aliasesInput)
	if err != nil {
		panic(err)
	}
	return t
}
