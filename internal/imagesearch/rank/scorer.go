// Package rank scores candidate images against a query and produces a
// ranked, deduplicated list. The heuristic is additive: whole-query matches
// against description and tags layer on top of per-token signals, and each
// token contributes through exactly one rule.
package rank

import (
	"sort"
	"strings"

	"github.com/needleref/needleref/internal/imagesearch/types"
)

// Weights holds the tunable scoring constants. The absolute values are
// empirically tuned; what matters is their relative ordering
// (ExactDescription > ExactTag > TagToken > DescriptionToken).
type Weights struct {
	ExactDescription    float64 `mapstructure:"exact_description"`
	ExactTag            float64 `mapstructure:"exact_tag"`
	SelectedTag         float64 `mapstructure:"selected_tag"`
	SubjectMultiplier   float64 `mapstructure:"subject_multiplier"`
	StyleMultiplier     float64 `mapstructure:"style_multiplier"`
	TechniqueMultiplier float64 `mapstructure:"technique_multiplier"`
	TagToken            float64 `mapstructure:"tag_token"`
	DescriptionToken    float64 `mapstructure:"description_token"`
	MaxResults          int     `mapstructure:"max_results"`
}

// DefaultWeights returns the reference tuning.
func DefaultWeights() Weights {
	return Weights{
		ExactDescription:    3.0,
		ExactTag:            2.5,
		SelectedTag:         1.0,
		SubjectMultiplier:   3,
		StyleMultiplier:     2,
		TechniqueMultiplier: 1.5,
		TagToken:            1.0,
		DescriptionToken:    0.2,
		MaxResults:          50,
	}
}

// ScoredCandidate is a derived, read-only view over one image. The scorer
// never mutates the underlying NormalizedImage.
type ScoredCandidate struct {
	Image types.NormalizedImage `json:"image"`
	Score float64               `json:"score"`
	Rank  int                   `json:"rank"`
}

// Ranker scores and orders candidates.
type Ranker struct {
	vocab   *Vocabulary
	weights Weights
}

// NewRanker creates a ranker. A nil vocabulary falls back to the built-in
// tables; a zero MaxResults falls back to the default cap.
func NewRanker(vocab *Vocabulary, weights Weights) *Ranker {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if weights.MaxResults <= 0 {
		weights.MaxResults = DefaultWeights().MaxResults
	}
	return &Ranker{vocab: vocab, weights: weights}
}

// Rank scores every candidate and returns the positive-scoring ones in
// non-increasing score order. Ties keep input order, so repeated calls with
// identical inputs produce identical output. Zero-score candidates are
// excluded, not ranked last.
func (r *Ranker) Rank(query string, expandedTerms []string, selectedTags []string, candidates []types.NormalizedImage) []ScoredCandidate {
	q := strings.ToLower(strings.TrimSpace(query))
	tokens := tokenize(expandedTerms)
	selected := lowerSet(selectedTags)

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, img := range candidates {
		score := r.score(q, tokens, selected, img)
		if score <= 0 {
			continue
		}
		scored = append(scored, ScoredCandidate{Image: img, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > r.weights.MaxResults {
		scored = scored[:r.weights.MaxResults]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

func (r *Ranker) score(q string, tokens []string, selected map[string]bool, img types.NormalizedImage) float64 {
	w := r.weights
	desc := strings.ToLower(img.Description)
	tags := make([]string, len(img.Tags))
	for i, t := range img.Tags {
		tags[i] = strings.ToLower(t)
	}

	var score float64

	if len(selected) > 0 {
		for _, t := range tags {
			if selected[t] {
				score += w.SelectedTag
				break
			}
		}
	}

	// Whole-query signals. The tag bonus rides on the description match:
	// a tag hit alone is already credited through the per-token rules.
	if q != "" && strings.Contains(desc, q) {
		score += w.ExactDescription
		if anyContains(tags, q) {
			score += w.ExactTag
		}
	}

	// Per-token signals, first applicable rule wins per token.
	for _, tok := range tokens {
		matched := false
		if r.vocab.Subjects[tok] {
			if fw, ok := img.Weights[ClassSubject.FeatureKey(tok)]; ok {
				score += fw * w.SubjectMultiplier
				matched = true
			}
		}
		if r.vocab.Styles[tok] {
			if fw, ok := img.Weights[ClassStyle.FeatureKey(tok)]; ok {
				score += fw * w.StyleMultiplier
				matched = true
			}
		}
		if r.vocab.Techniques[tok] {
			if fw, ok := img.Weights[ClassTechnique.FeatureKey(tok)]; ok {
				score += fw * w.TechniqueMultiplier
				matched = true
			}
		}
		if !matched && anyContains(tags, tok) {
			score += w.TagToken
			matched = true
		}
		if !matched && strings.Contains(desc, tok) {
			score += w.DescriptionToken
		}
	}
	return score
}

// Merge concatenates ranked lists in priority order, dedupes by image ID
// keeping the first occurrence, re-assigns ranks and caps the result at max.
func Merge(max int, lists ...[]ScoredCandidate) []ScoredCandidate {
	seen := make(map[string]bool)
	merged := make([]ScoredCandidate, 0)
	for _, list := range lists {
		for _, c := range list {
			if c.Image.ID == "" || seen[c.Image.ID] {
				continue
			}
			seen[c.Image.ID] = true
			merged = append(merged, c)
		}
	}
	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}
	for i := range merged {
		merged[i].Rank = i + 1
	}
	return merged
}

// tokenize splits every expanded term into lowercase word tokens and dedupes
// them preserving first-seen order.
func tokenize(terms []string) []string {
	seen := make(map[string]bool)
	tokens := make([]string, 0, len(terms))
	for _, term := range terms {
		for _, tok := range strings.Fields(strings.ToLower(term)) {
			if !seen[tok] {
				seen[tok] = true
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}

func anyContains(haystacks []string, needle string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

func lowerSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[strings.ToLower(s)] = true
	}
	return m
}
