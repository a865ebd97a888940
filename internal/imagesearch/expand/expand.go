// Package expand generates query variants for recall. Expansion is pure:
// the same input always yields the same variants, and the original query is
// always the first element.
package expand

import "strings"

// Expander produces query variants. Implementations must be pure and must
// return at least the original query.
type Expander interface {
	Expand(query string) []string
}

// Passthrough performs no expansion.
type Passthrough struct{}

func (Passthrough) Expand(query string) []string {
	return []string{query}
}

// Dictionary expands queries from two static tables: subject synonyms and
// style suffixes. Style suffixes are skipped when the query already names a
// style, so "japanese koi" is not re-styled.
type Dictionary struct {
	Synonyms map[string][]string
	Styles   []string
	// MaxVariants caps the output, original query included.
	MaxVariants int
}

// NewDictionary returns the built-in expansion tables.
func NewDictionary() *Dictionary {
	return &Dictionary{
		Synonyms: map[string][]string{
			"dragon":    {"dragon art", "mythical dragon"},
			"skull":     {"skull art", "human skull"},
			"rose":      {"rose flower"},
			"koi":       {"koi fish", "japanese carp"},
			"wolf":      {"wolf portrait"},
			"snake":     {"serpent"},
			"butterfly": {"butterfly wings"},
			"flower":    {"floral"},
			"bird":      {"bird in flight"},
			"mountain":  {"mountain landscape"},
			"moon":      {"crescent moon"},
		},
		Styles: []string{
			"line art", "blackwork", "sketch",
		},
		MaxVariants: 6,
	}
}

// Expand returns the original query followed by synonym substitutions and,
// when the query carries no style term of its own, style-suffixed variants.
func (d *Dictionary) Expand(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []string{query}
	}

	variants := []string{q}
	seen := map[string]bool{q: true}
	add := func(v string) {
		if !seen[v] && (d.MaxVariants <= 0 || len(variants) < d.MaxVariants) {
			seen[v] = true
			variants = append(variants, v)
		}
	}

	for _, tok := range strings.Fields(q) {
		for _, syn := range d.Synonyms[tok] {
			add(strings.Replace(q, tok, syn, 1))
		}
	}

	if !d.hasStyle(q) {
		for _, style := range d.Styles {
			add(q + " " + style)
		}
	}
	return variants
}

func (d *Dictionary) hasStyle(q string) bool {
	for _, style := range d.Styles {
		if strings.Contains(q, style) {
			return true
		}
	}
	// Multi-word style names the suffix table doesn't carry.
	for _, style := range []string{"japanese", "irezumi", "traditional", "watercolor", "geometric", "realism", "dotwork"} {
		if strings.Contains(q, style) {
			return true
		}
	}
	return false
}
