package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/needleref/needleref/internal/imagesearch/types"
	pkgerrors "github.com/needleref/needleref/internal/pkg/errors"
)

// fakeLibraryRepo keeps library entries in memory keyed by ID.
type fakeLibraryRepo struct {
	nextID  int64
	entries map[int64]*LibraryImage
	counts  map[string]map[string]int
}

func newFakeLibraryRepo() *fakeLibraryRepo {
	return &fakeLibraryRepo{
		nextID:  1,
		entries: map[int64]*LibraryImage{},
		counts:  map[string]map[string]int{},
	}
}

func (f *fakeLibraryRepo) Add(_ context.Context, image *LibraryImage) error {
	image.ID = f.nextID
	f.nextID++
	f.entries[image.ID] = image
	return nil
}

func (f *fakeLibraryRepo) Get(_ context.Context, id int64) (*LibraryImage, error) {
	img, ok := f.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return img, nil
}

func (f *fakeLibraryRepo) GetBySourceID(_ context.Context, sourceID string) (*LibraryImage, error) {
	for _, img := range f.entries {
		if img.SourceID == sourceID {
			return img, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLibraryRepo) List(_ context.Context, filter CategoryFilter) ([]*LibraryImage, error) {
	out := []*LibraryImage{}
	for _, img := range f.entries {
		if filter.MainCategory != "" && img.MainCategory != filter.MainCategory {
			continue
		}
		if filter.Subcategory != "" && img.Subcategory != filter.Subcategory {
			continue
		}
		out = append(out, img)
	}
	return out, nil
}

func (f *fakeLibraryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.entries[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeLibraryRepo) AddTags(_ context.Context, id int64, tags []LibraryTag) error {
	img, ok := f.entries[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	img.Tags = append(img.Tags, tags...)
	return nil
}

func (f *fakeLibraryRepo) Tags(_ context.Context, id int64) ([]LibraryTag, error) {
	img, ok := f.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return img.Tags, nil
}

func (f *fakeLibraryRepo) UpdateCategory(_ context.Context, id int64, mainCategory, subcategory string) error {
	img, ok := f.entries[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	img.MainCategory = mainCategory
	img.Subcategory = subcategory
	return nil
}

func (f *fakeLibraryRepo) CategoryStats(_ context.Context) (map[string]map[string]int, error) {
	return f.counts, nil
}

// fakeFavorites implements the ImageRepo methods the library use case touches.
type fakeFavorites struct {
	ImageRepo
	favorites map[string]bool
}

func (f *fakeFavorites) AddFavorite(_ context.Context, sourceID string) error {
	f.favorites[sourceID] = true
	return nil
}

func (f *fakeFavorites) RemoveFavorite(_ context.Context, sourceID string) error {
	delete(f.favorites, sourceID)
	return nil
}

func (f *fakeFavorites) Favorites(_ context.Context) ([]types.NormalizedImage, error) {
	return nil, nil
}

func newLibraryUseCase() (*LibraryUseCase, *fakeLibraryRepo, *fakeFavorites) {
	repo := newFakeLibraryRepo()
	favs := &fakeFavorites{favorites: map[string]bool{}}
	return NewLibraryUseCase(repo, favs, nil), repo, favs
}

func sampleImage() types.NormalizedImage {
	return types.NormalizedImage{
		ID:          "pexels_42",
		Description: "coiled snake study",
		URL:         "https://images.example/42.jpg",
		Tags:        []string{"snake", "blackwork"},
		Source:      types.ProviderPexels,
	}
}

func TestAddToLibraryAutoCategorizes(t *testing.T) {
	uc, _, _ := newLibraryUseCase()

	entry, added, err := uc.AddToLibrary(context.Background(), sampleImage(), "", "")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "Nature", entry.MainCategory)
	assert.Equal(t, "Snakes", entry.Subcategory)
	require.Len(t, entry.Tags, 2)
	assert.False(t, entry.Tags[0].Custom, "imported tags are not custom")
}

func TestAddToLibraryExplicitCategoryWins(t *testing.T) {
	uc, _, _ := newLibraryUseCase()

	entry, _, err := uc.AddToLibrary(context.Background(), sampleImage(), "Style-Based", "Blackwork")
	require.NoError(t, err)
	assert.Equal(t, "Style-Based", entry.MainCategory)
	assert.Equal(t, "Blackwork", entry.Subcategory)
}

func TestAddToLibraryRejectsUnknownCategory(t *testing.T) {
	uc, _, _ := newLibraryUseCase()

	_, _, err := uc.AddToLibrary(context.Background(), sampleImage(), "Made Up", "")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrLibraryBadCategory))
}

func TestAddToLibraryDuplicateReturnsExisting(t *testing.T) {
	uc, _, _ := newLibraryUseCase()

	first, added, err := uc.AddToLibrary(context.Background(), sampleImage(), "", "")
	require.NoError(t, err)
	require.True(t, added)

	second, added, err := uc.AddToLibrary(context.Background(), sampleImage(), "", "")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, first.ID, second.ID)
}

func TestAddToLibraryRequiresIDAndURL(t *testing.T) {
	uc, _, _ := newLibraryUseCase()

	_, _, err := uc.AddToLibrary(context.Background(), types.NormalizedImage{ID: "pexels_1"}, "", "")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrInvalidParams))
}

func TestRemoveFromLibraryMissing(t *testing.T) {
	uc, _, _ := newLibraryUseCase()

	err := uc.RemoveFromLibrary(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrLibraryImageNotFound))
}

func TestAddCustomTagsSkipsEmptyNames(t *testing.T) {
	uc, _, _ := newLibraryUseCase()
	entry, _, err := uc.AddToLibrary(context.Background(), sampleImage(), "", "")
	require.NoError(t, err)

	tags, err := uc.AddCustomTags(context.Background(), entry.ID, []string{"sleeve idea", ""})
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "sleeve idea", tags[2].Name)
	assert.True(t, tags[2].Custom)
}

func TestRecategorizeValidatesTaxonomy(t *testing.T) {
	uc, _, _ := newLibraryUseCase()
	entry, _, err := uc.AddToLibrary(context.Background(), sampleImage(), "", "")
	require.NoError(t, err)

	err = uc.Recategorize(context.Background(), entry.ID, "Nature", "Nope")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrLibraryBadCategory))

	require.NoError(t, uc.Recategorize(context.Background(), entry.ID, "Style-Based", "Dotwork"))
	got, err := uc.GetImage(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dotwork", got.Subcategory)
}

func TestCategoryStatsZeroFills(t *testing.T) {
	uc, repo, _ := newLibraryUseCase()
	repo.counts = map[string]map[string]int{
		"Nature": {"Snakes": 2},
	}

	stats, err := uc.CategoryStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats["Nature"]["Snakes"])
	assert.Equal(t, 0, stats["Myth & Fantasy"]["Dragons"])
	assert.Equal(t, 0, stats["Style-Based"]["Blackwork"])
	assert.Len(t, stats, len(DefaultCategories))
}

func TestFavoriteRequiresSourceID(t *testing.T) {
	uc, _, favs := newLibraryUseCase()

	err := uc.Favorite(context.Background(), "")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrInvalidParams))

	require.NoError(t, uc.Favorite(context.Background(), "pixabay_7"))
	assert.True(t, favs.favorites["pixabay_7"])

	require.NoError(t, uc.Unfavorite(context.Background(), "pixabay_7"))
	assert.False(t, favs.favorites["pixabay_7"])
}
