package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/needleref/needleref/internal/imagesearch/rank"
	"github.com/needleref/needleref/internal/imagesearch/types"
	pkgerrors "github.com/needleref/needleref/internal/pkg/errors"
)

// fakeImageRepo implements librarybiz.ImageRepo in memory.
type fakeImageRepo struct {
	ftsResults []types.NormalizedImage
	ftsErr     error
	ftsCalls   int

	allResults []types.NormalizedImage
	allErr     error
	allCalls   int

	upserted  [][]types.NormalizedImage
	upsertErr error

	favorites map[string]bool

	noWeights  []types.NormalizedImage
	setWeights map[string]map[string]float64

	tagSuggestions  []string
	wordSuggestions []string
	suggestErr      error
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{
		favorites:  map[string]bool{},
		setWeights: map[string]map[string]float64{},
	}
}

func (f *fakeImageRepo) UpsertBatch(_ context.Context, images []types.NormalizedImage) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserted = append(f.upserted, images)
	return len(images), nil
}

func (f *fakeImageRepo) FullTextSearch(_ context.Context, _ []string, _ int) ([]types.NormalizedImage, error) {
	f.ftsCalls++
	return f.ftsResults, f.ftsErr
}

func (f *fakeImageRepo) AllImages(_ context.Context) ([]types.NormalizedImage, error) {
	f.allCalls++
	return f.allResults, f.allErr
}

func (f *fakeImageRepo) SuggestTags(_ context.Context, _ string, _ int) ([]string, error) {
	return f.tagSuggestions, f.suggestErr
}

func (f *fakeImageRepo) SuggestDescriptionWords(_ context.Context, _ string, _ int) ([]string, error) {
	return f.wordSuggestions, f.suggestErr
}

func (f *fakeImageRepo) ImagesWithoutWeights(_ context.Context) ([]types.NormalizedImage, error) {
	return f.noWeights, nil
}

func (f *fakeImageRepo) SetWeights(_ context.Context, sourceID string, weights map[string]float64) error {
	f.setWeights[sourceID] = weights
	return nil
}

func (f *fakeImageRepo) AddFavorite(_ context.Context, sourceID string) error {
	f.favorites[sourceID] = true
	return nil
}

func (f *fakeImageRepo) RemoveFavorite(_ context.Context, sourceID string) error {
	delete(f.favorites, sourceID)
	return nil
}

func (f *fakeImageRepo) Favorites(_ context.Context) ([]types.NormalizedImage, error) {
	return nil, nil
}

func (f *fakeImageRepo) FavoriteIDs(_ context.Context, sourceIDs []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range sourceIDs {
		if f.favorites[id] {
			out[id] = true
		}
	}
	return out, nil
}

// fixedExpander returns a canned expansion.
type fixedExpander struct {
	out []string
}

func (e fixedExpander) Expand(string) []string {
	return e.out
}

func newSmartUseCase(repo *fakeImageRepo) *SmartSearchUseCase {
	return NewSmartSearchUseCase(
		repo,
		fixedExpander{out: []string{"dragon", "dragon art"}},
		rank.NewRanker(nil, rank.DefaultWeights()),
		NewLRUResultCache(10, time.Minute),
		50,
		nil,
	)
}

func TestSmartSearchEmptyQuery(t *testing.T) {
	uc := newSmartUseCase(newFakeImageRepo())
	_, err := uc.SmartSearch(context.Background(), "   ", SmartSearchOptions{})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrSearchEmptyQuery))
}

func TestSmartSearchUsesStoreHitsDirectly(t *testing.T) {
	repo := newFakeImageRepo()
	repo.ftsResults = []types.NormalizedImage{
		{ID: "pexels_1", Description: "dragon"},
		{ID: "pixabay_2", Description: "dragon art"},
	}
	uc := newSmartUseCase(repo)

	res, err := uc.SmartSearch(context.Background(), "dragon", SmartSearchOptions{UseExpansion: true})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "pexels_1", res.Results[0].Image.ID)
	assert.Equal(t, 0, repo.allCalls, "no fallback when the store answers")
	assert.False(t, res.FromCache)
	assert.Equal(t, []string{"dragon", "dragon art"}, res.ExpandedTerms)
}

func TestSmartSearchFallsBackOnStoreError(t *testing.T) {
	repo := newFakeImageRepo()
	repo.ftsErr = errors.New("connection refused")
	repo.allResults = []types.NormalizedImage{
		{ID: "pexels_9", Description: "a dragon sketch", Tags: []string{"dragon"}},
		{ID: "pixabay_3", Description: "city street"},
	}
	uc := newSmartUseCase(repo)

	res, err := uc.SmartSearch(context.Background(), "dragon", SmartSearchOptions{})
	require.NoError(t, err, "store failures are absorbed")
	require.Len(t, res.Results, 1, "unrelated images score zero and drop out")
	assert.Equal(t, "pexels_9", res.Results[0].Image.ID)
	assert.Equal(t, 1, repo.allCalls)
}

func TestSmartSearchFallsBackOnEmptyStore(t *testing.T) {
	repo := newFakeImageRepo()
	repo.allResults = []types.NormalizedImage{
		{ID: "unsplash_5", Tags: []string{"dragon"}},
	}
	uc := newSmartUseCase(repo)

	res, err := uc.SmartSearch(context.Background(), "dragon", SmartSearchOptions{})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "unsplash_5", res.Results[0].Image.ID)
}

func TestSmartSearchCachesResults(t *testing.T) {
	repo := newFakeImageRepo()
	repo.ftsResults = []types.NormalizedImage{{ID: "pexels_1", Description: "dragon"}}
	uc := newSmartUseCase(repo)
	opts := SmartSearchOptions{UseCache: true}

	first, err := uc.SmartSearch(context.Background(), "dragon", opts)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := uc.SmartSearch(context.Background(), "Dragon ", opts)
	require.NoError(t, err)
	assert.True(t, second.FromCache, "normalized query hits the same entry")
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 1, repo.ftsCalls)
}

func TestSmartSearchCacheKeyIncludesExpansionFlag(t *testing.T) {
	repo := newFakeImageRepo()
	repo.ftsResults = []types.NormalizedImage{{ID: "pexels_1", Description: "dragon"}}
	uc := newSmartUseCase(repo)

	_, err := uc.SmartSearch(context.Background(), "dragon", SmartSearchOptions{UseCache: true})
	require.NoError(t, err)

	res, err := uc.SmartSearch(context.Background(), "dragon", SmartSearchOptions{UseCache: true, UseExpansion: true})
	require.NoError(t, err)
	assert.False(t, res.FromCache, "expanded search must not reuse the unexpanded entry")
	assert.Equal(t, 2, repo.ftsCalls)
}

func TestSmartSearchSkipsCacheWhenDisabled(t *testing.T) {
	repo := newFakeImageRepo()
	repo.ftsResults = []types.NormalizedImage{{ID: "pexels_1", Description: "dragon"}}
	uc := newSmartUseCase(repo)

	for i := 0; i < 2; i++ {
		res, err := uc.SmartSearch(context.Background(), "dragon", SmartSearchOptions{})
		require.NoError(t, err)
		assert.False(t, res.FromCache)
	}
	assert.Equal(t, 2, repo.ftsCalls)
}

func TestSmartSearchDedupesAcrossSources(t *testing.T) {
	// Store answers and the heuristic both produce pexels_99; only the
	// store-ranked instance survives.
	repo := newFakeImageRepo()
	repo.ftsResults = nil
	repo.allResults = []types.NormalizedImage{
		{ID: "pexels_99", Tags: []string{"dragon"}},
		{ID: "pexels_99", Tags: []string{"dragon"}},
	}
	uc := newSmartUseCase(repo)

	res, err := uc.SmartSearch(context.Background(), "dragon", SmartSearchOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
	assert.Equal(t, 1, res.Results[0].Rank)
}
