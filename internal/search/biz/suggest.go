package biz

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	librarybiz "github.com/needleref/needleref/internal/library/biz"
)

const (
	suggestMinLength = 2
	suggestTagLimit  = 10
	suggestWordLimit = 5
	suggestMax       = 10
)

// Suggester produces fast search term completions from stored tags and
// description words.
type Suggester struct {
	images librarybiz.ImageRepo
	logger *zap.Logger
}

func NewSuggester(images librarybiz.ImageRepo, logger *zap.Logger) *Suggester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suggester{images: images, logger: logger}
}

// Suggest returns up to ten completions for a partial query. Terms that
// start with the partial sort before terms that merely contain it, shorter
// first. Store errors yield an empty list.
func (s *Suggester) Suggest(ctx context.Context, partial string) []string {
	partial = strings.ToLower(strings.TrimSpace(partial))
	if len(partial) < suggestMinLength {
		return []string{}
	}

	tags, err := s.images.SuggestTags(ctx, partial, suggestTagLimit)
	if err != nil {
		s.logger.Error("tag suggestion lookup failed", zap.Error(err))
		tags = nil
	}
	words, err := s.images.SuggestDescriptionWords(ctx, partial, suggestWordLimit)
	if err != nil {
		s.logger.Error("description suggestion lookup failed", zap.Error(err))
		words = nil
	}

	seen := make(map[string]bool)
	suggestions := make([]string, 0, len(tags)+len(words))
	for _, s := range append(tags, words...) {
		if s != "" && !seen[s] {
			seen[s] = true
			suggestions = append(suggestions, s)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		pi := strings.HasPrefix(suggestions[i], partial)
		pj := strings.HasPrefix(suggestions[j], partial)
		if pi != pj {
			return pi
		}
		return len(suggestions[i]) < len(suggestions[j])
	})

	if len(suggestions) > suggestMax {
		suggestions = suggestions[:suggestMax]
	}
	return suggestions
}
