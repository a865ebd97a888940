package biz

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/imagesearch/expand"
	"github.com/needleref/needleref/internal/imagesearch/rank"
	librarybiz "github.com/needleref/needleref/internal/library/biz"
	"github.com/needleref/needleref/internal/pkg/cache"
	"github.com/needleref/needleref/internal/pkg/errors"
)

// SmartResult is the outcome of one smart search.
type SmartResult struct {
	Results       []rank.ScoredCandidate `json:"results"`
	FromCache     bool                   `json:"from_cache"`
	Expanded      bool                   `json:"expanded"`
	ExpandedTerms []string               `json:"expanded_terms"`
}

// SmartSearchOptions toggles caching and query expansion per call.
type SmartSearchOptions struct {
	UseCache     bool
	UseExpansion bool
}

// SmartSearchUseCase answers queries from the persistent store: full-text
// search first, heuristic scoring over the whole library as a fallback, with
// a result cache in front. Store failures are absorbed; the worst case is an
// empty result list.
type SmartSearchUseCase struct {
	images     librarybiz.ImageRepo
	expander   expand.Expander
	ranker     *rank.Ranker
	cache      ResultCache
	maxResults int
	logger     *zap.Logger
}

func NewSmartSearchUseCase(images librarybiz.ImageRepo, expander expand.Expander, ranker *rank.Ranker, resultCache ResultCache, maxResults int, logger *zap.Logger) *SmartSearchUseCase {
	if expander == nil {
		expander = expand.Passthrough{}
	}
	if maxResults <= 0 {
		maxResults = rank.DefaultWeights().MaxResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SmartSearchUseCase{
		images:     images,
		expander:   expander,
		ranker:     ranker,
		cache:      resultCache,
		maxResults: maxResults,
		logger:     logger,
	}
}

// SmartSearch runs one smart search. The cache key includes the expansion
// flag, so expanded and unexpanded results never alias each other.
func (uc *SmartSearchUseCase) SmartSearch(ctx context.Context, query string, opts SmartSearchOptions) (*SmartResult, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, errors.New(errors.ErrSearchEmptyQuery)
	}

	key := cache.Key("smart", query, strconv.FormatBool(opts.UseExpansion))
	if opts.UseCache && uc.cache != nil {
		if results, ok := uc.cache.Get(ctx, key); ok {
			uc.logger.Debug("smart search cache hit", zap.String("query", query))
			return &SmartResult{
				Results:       results,
				FromCache:     true,
				Expanded:      opts.UseExpansion,
				ExpandedTerms: uc.terms(query, opts.UseExpansion),
			}, nil
		}
	}

	terms := uc.terms(query, opts.UseExpansion)

	storeHits := uc.storeSearch(ctx, query, terms)
	var fallback []rank.ScoredCandidate
	if len(storeHits) == 0 {
		fallback = uc.fallbackSearch(ctx, query, terms)
	}
	results := rank.Merge(uc.maxResults, storeHits, fallback)

	if opts.UseCache && uc.cache != nil {
		uc.cache.Put(ctx, key, results)
	}
	return &SmartResult{
		Results:       results,
		Expanded:      opts.UseExpansion,
		ExpandedTerms: terms,
	}, nil
}

func (uc *SmartSearchUseCase) terms(query string, useExpansion bool) []string {
	if !useExpansion {
		return []string{query}
	}
	return uc.expander.Expand(query)
}

// storeSearch asks the store's full-text index. Errors degrade to an empty
// list so the caller falls through to the heuristic.
func (uc *SmartSearchUseCase) storeSearch(ctx context.Context, query string, terms []string) []rank.ScoredCandidate {
	images, err := uc.images.FullTextSearch(ctx, uniqueTokens(terms), uc.maxResults)
	if err != nil {
		uc.logger.Error("full-text search failed, falling back to heuristic",
			zap.String("query", query),
			zap.Error(err))
		return nil
	}
	hits := make([]rank.ScoredCandidate, len(images))
	for i, img := range images {
		hits[i] = rank.ScoredCandidate{Image: img, Rank: i + 1}
	}
	return hits
}

// fallbackSearch scores the whole stored library with the heuristic ranker.
func (uc *SmartSearchUseCase) fallbackSearch(ctx context.Context, query string, terms []string) []rank.ScoredCandidate {
	uc.logger.Info("falling back to heuristic library search", zap.String("query", query))
	images, err := uc.images.AllImages(ctx)
	if err != nil {
		uc.logger.Error("library scan failed", zap.Error(err))
		return nil
	}
	return uc.ranker.Rank(query, terms, nil, images)
}

// uniqueTokens flattens term phrases into deduplicated word tokens,
// preserving first-seen order.
func uniqueTokens(terms []string) []string {
	seen := make(map[string]bool)
	tokens := make([]string, 0, len(terms))
	for _, term := range terms {
		for _, tok := range strings.Fields(term) {
			if !seen[tok] {
				seen[tok] = true
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}
