package biz

import (
	"context"

	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/imagesearch/aggregator"
	"github.com/needleref/needleref/internal/imagesearch/rank"
	"github.com/needleref/needleref/internal/imagesearch/types"
	librarybiz "github.com/needleref/needleref/internal/library/biz"
	"github.com/needleref/needleref/internal/pkg/errors"
	"github.com/needleref/needleref/internal/pkg/workerpool"
)

// ImageSearcher is the aggregator surface the search use case needs. A nil
// or empty provider subset means all configured providers.
type ImageSearcher interface {
	Search(ctx context.Context, queries []types.SearchQuery, only []types.ProviderID) aggregator.Result
}

// SearchInput carries one provider search request.
type SearchInput struct {
	Query        string
	SelectedTags []string
	Page         int
	PerPage      int
	// Source restricts the search to one provider; empty means all.
	Source types.ProviderID
}

// ImageResult is one search hit enriched with persistence-side state.
type ImageResult struct {
	types.NormalizedImage
	IsFavorite bool    `json:"is_favorite"`
	Score      float64 `json:"relevance_score,omitempty"`
}

// SearchOutput is the response of one provider search.
type SearchOutput struct {
	Images  []ImageResult `json:"images"`
	Sources []string      `json:"sources"`
	Page    int           `json:"page"`
	Query   string        `json:"query"`
}

// SearchUseCase runs provider searches: fan out, persist the normalized
// results, flag favorites and optionally filter by selected tags.
type SearchUseCase struct {
	searcher ImageSearcher
	images   librarybiz.ImageRepo
	ranker   *rank.Ranker
	weights  *WeightsGenerator
	pool     *workerpool.Pool
	logger   *zap.Logger
}

func NewSearchUseCase(searcher ImageSearcher, images librarybiz.ImageRepo, ranker *rank.Ranker, weights *WeightsGenerator, pool *workerpool.Pool, logger *zap.Logger) *SearchUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchUseCase{
		searcher: searcher,
		images:   images,
		ranker:   ranker,
		weights:  weights,
		pool:     pool,
		logger:   logger,
	}
}

// Search fans the query out, persists what came back and returns the hits.
// Store failures degrade the response (no favorite flags, nothing persisted)
// but never fail the search itself.
func (uc *SearchUseCase) Search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	if in.Query == "" {
		return nil, errors.New(errors.ErrSearchEmptyQuery)
	}

	var only []types.ProviderID
	if in.Source != "" {
		only = []types.ProviderID{in.Source}
	}
	res := uc.searcher.Search(ctx, []types.SearchQuery{{
		Text:    in.Query,
		Tags:    in.SelectedTags,
		Page:    in.Page,
		PerPage: in.PerPage,
	}}, only)

	out := &SearchOutput{
		Images:  []ImageResult{},
		Sources: usedSources(res.Units),
		Page:    in.Page,
		Query:   in.Query,
	}
	if out.Page < 1 {
		out.Page = 1
	}
	if len(res.Images) == 0 {
		return out, nil
	}

	uc.persist(ctx, res.Images)

	favorites := uc.favoriteFlags(ctx, res.Images)
	images := res.Images
	if len(in.SelectedTags) > 0 {
		out.Images = uc.filterBySelectedTags(in, images, favorites)
		return out, nil
	}

	for _, img := range images {
		out.Images = append(out.Images, ImageResult{
			NormalizedImage: img,
			IsFavorite:      favorites[img.ID],
		})
	}
	return out, nil
}

// filterBySelectedTags keeps only hits relevant to the selected tags, scored
// and ordered by the heuristic ranker.
func (uc *SearchUseCase) filterBySelectedTags(in SearchInput, images []types.NormalizedImage, favorites map[string]bool) []ImageResult {
	scored := uc.ranker.Rank(in.Query, []string{in.Query}, in.SelectedTags, images)
	results := make([]ImageResult, 0, len(scored))
	for _, c := range scored {
		results = append(results, ImageResult{
			NormalizedImage: c.Image,
			IsFavorite:      favorites[c.Image.ID],
			Score:           c.Score,
		})
	}
	return results
}

// persist upserts the batch and schedules weight generation for the new
// rows. Both run on the worker pool so a slow store never delays the
// response; failures are logged and swallowed.
func (uc *SearchUseCase) persist(ctx context.Context, images []types.NormalizedImage) {
	store := func() {
		n, err := uc.images.UpsertBatch(context.WithoutCancel(ctx), images)
		if err != nil {
			uc.logger.Error("failed to persist search results", zap.Error(err))
			return
		}
		if n > 0 {
			uc.logger.Debug("persisted search results", zap.Int("inserted", n))
			if uc.weights != nil {
				if _, err := uc.weights.GenerateMissing(context.WithoutCancel(ctx)); err != nil {
					uc.logger.Warn("weight generation failed", zap.Error(err))
				}
			}
		}
	}
	if uc.pool == nil {
		store()
		return
	}
	if err := uc.pool.Submit(store); err != nil {
		uc.logger.Warn("worker pool rejected persistence task, running inline", zap.Error(err))
		store()
	}
}

func (uc *SearchUseCase) favoriteFlags(ctx context.Context, images []types.NormalizedImage) map[string]bool {
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	flags, err := uc.images.FavoriteIDs(ctx, ids)
	if err != nil {
		uc.logger.Warn("favorite lookup failed", zap.Error(err))
		return map[string]bool{}
	}
	return flags
}

func usedSources(units []aggregator.UnitReport) []string {
	seen := make(map[types.ProviderID]bool)
	sources := make([]string, 0, len(units))
	for _, u := range units {
		if u.Status == types.StatusOK && u.Count > 0 && !seen[u.Provider] {
			seen[u.Provider] = true
			sources = append(sources, string(u.Provider))
		}
	}
	return sources
}
