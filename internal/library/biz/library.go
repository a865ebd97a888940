package biz

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/imagesearch/types"
	"github.com/needleref/needleref/internal/pkg/errors"
)

// LibraryImage is a curated reference image saved into the personal library.
// SourceID is the provider-prefixed identifier of the original search hit.
type LibraryImage struct {
	ID             int64
	SourceID       string
	Description    string
	URL            string
	ThumbnailURL   string
	Width          int
	Height         int
	Author         string
	AuthorUsername string
	MainCategory   string
	Subcategory    string
	Tags           []LibraryTag
	DateAdded      time.Time
}

// LibraryTag is one tag attached to a library image. Custom marks tags the
// user typed in, as opposed to tags imported from the provider record.
type LibraryTag struct {
	Name   string
	Custom bool
}

// CategoryFilter narrows library listings. Empty fields match everything.
type CategoryFilter struct {
	MainCategory string
	Subcategory  string
}

// LibraryRepo defines the interface for library data operations.
type LibraryRepo interface {
	Add(ctx context.Context, image *LibraryImage) error
	Get(ctx context.Context, id int64) (*LibraryImage, error)
	GetBySourceID(ctx context.Context, sourceID string) (*LibraryImage, error)
	List(ctx context.Context, filter CategoryFilter) ([]*LibraryImage, error)
	Delete(ctx context.Context, id int64) error
	AddTags(ctx context.Context, id int64, tags []LibraryTag) error
	Tags(ctx context.Context, id int64) ([]LibraryTag, error)
	UpdateCategory(ctx context.Context, id int64, mainCategory, subcategory string) error
	CategoryStats(ctx context.Context) (map[string]map[string]int, error)
}

// ImageRepo defines the interface for the persistent store of normalized
// search results: upserts, favorites, weights and the two query shapes the
// smart search needs (full-text search and a full scan for the heuristic
// fallback).
type ImageRepo interface {
	UpsertBatch(ctx context.Context, images []types.NormalizedImage) (int, error)
	FullTextSearch(ctx context.Context, terms []string, limit int) ([]types.NormalizedImage, error)
	AllImages(ctx context.Context) ([]types.NormalizedImage, error)

	SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error)
	SuggestDescriptionWords(ctx context.Context, prefix string, limit int) ([]string, error)

	ImagesWithoutWeights(ctx context.Context) ([]types.NormalizedImage, error)
	SetWeights(ctx context.Context, sourceID string, weights map[string]float64) error

	AddFavorite(ctx context.Context, sourceID string) error
	RemoveFavorite(ctx context.Context, sourceID string) error
	Favorites(ctx context.Context) ([]types.NormalizedImage, error)
	FavoriteIDs(ctx context.Context, sourceIDs []string) (map[string]bool, error)
}

// LibraryUseCase contains business logic for the personal reference library.
type LibraryUseCase struct {
	repo   LibraryRepo
	images ImageRepo
	logger *zap.Logger
}

func NewLibraryUseCase(repo LibraryRepo, images ImageRepo, logger *zap.Logger) *LibraryUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibraryUseCase{repo: repo, images: images, logger: logger}
}

// AddToLibrary saves an image into the library. When no category is given it
// is auto-suggested from the tags. Saving an already-saved image returns the
// existing record with added=false instead of failing.
func (uc *LibraryUseCase) AddToLibrary(ctx context.Context, img types.NormalizedImage, mainCategory, subcategory string) (*LibraryImage, bool, error) {
	if img.ID == "" || img.URL == "" {
		return nil, false, errors.New(errors.ErrInvalidParams)
	}

	if existing, err := uc.repo.GetBySourceID(ctx, img.ID); err == nil && existing != nil {
		uc.logger.Debug("image already in library",
			zap.String("source_id", img.ID),
			zap.Int64("library_id", existing.ID))
		return existing, false, nil
	}

	if mainCategory == "" && subcategory == "" {
		mainCategory, subcategory = AutoCategorize(img.Tags)
	}
	if mainCategory != "" && !ValidCategory(mainCategory, subcategory) {
		return nil, false, errors.New(errors.ErrLibraryBadCategory)
	}

	tags := make([]LibraryTag, 0, len(img.Tags))
	for _, t := range img.Tags {
		tags = append(tags, LibraryTag{Name: t})
	}

	entry := &LibraryImage{
		SourceID:       img.ID,
		Description:    img.Description,
		URL:            img.URL,
		ThumbnailURL:   img.ThumbnailURL,
		Width:          img.Width,
		Height:         img.Height,
		Author:         img.Author,
		AuthorUsername: img.AuthorUsername,
		MainCategory:   mainCategory,
		Subcategory:    subcategory,
		Tags:           tags,
		DateAdded:      time.Now(),
	}
	if err := uc.repo.Add(ctx, entry); err != nil {
		return nil, false, errors.Wrap(err, errors.ErrDatabase)
	}
	return entry, true, nil
}

// GetImage returns one library entry with its tags.
func (uc *LibraryUseCase) GetImage(ctx context.Context, id int64) (*LibraryImage, error) {
	img, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLibraryImageNotFound)
	}
	return img, nil
}

// ListLibrary returns library entries filtered by category.
func (uc *LibraryUseCase) ListLibrary(ctx context.Context, filter CategoryFilter) ([]*LibraryImage, error) {
	if filter.MainCategory != "" && !ValidCategory(filter.MainCategory, filter.Subcategory) {
		return nil, errors.New(errors.ErrLibraryBadCategory)
	}
	images, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase)
	}
	return images, nil
}

// RemoveFromLibrary deletes a library entry and its tags.
func (uc *LibraryUseCase) RemoveFromLibrary(ctx context.Context, id int64) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, errors.ErrLibraryImageNotFound)
	}
	return nil
}

// AddCustomTags attaches user-entered tags to a library entry.
func (uc *LibraryUseCase) AddCustomTags(ctx context.Context, id int64, names []string) ([]LibraryTag, error) {
	tags := make([]LibraryTag, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		tags = append(tags, LibraryTag{Name: n, Custom: true})
	}
	if len(tags) > 0 {
		if err := uc.repo.AddTags(ctx, id, tags); err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabase)
		}
	}
	all, err := uc.repo.Tags(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLibraryImageNotFound)
	}
	return all, nil
}

// Recategorize moves a library entry to a new category pair after validating
// it against the taxonomy.
func (uc *LibraryUseCase) Recategorize(ctx context.Context, id int64, mainCategory, subcategory string) error {
	if !ValidCategory(mainCategory, subcategory) {
		return errors.New(errors.ErrLibraryBadCategory)
	}
	if err := uc.repo.UpdateCategory(ctx, id, mainCategory, subcategory); err != nil {
		return errors.Wrap(err, errors.ErrDatabase)
	}
	return nil
}

// CategoryStats returns per-subcategory entry counts grouped by main
// category, with every taxonomy entry present even at zero.
func (uc *LibraryUseCase) CategoryStats(ctx context.Context) (map[string]map[string]int, error) {
	counts, err := uc.repo.CategoryStats(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase)
	}
	stats := make(map[string]map[string]int, len(DefaultCategories))
	for main, subs := range DefaultCategories {
		stats[main] = make(map[string]int, len(subs))
		for _, sub := range subs {
			stats[main][sub] = counts[main][sub]
		}
	}
	return stats, nil
}

// AvailableCategories returns the taxonomy.
func (uc *LibraryUseCase) AvailableCategories() map[string][]string {
	return DefaultCategories
}

// Favorite marks a stored search result as a favorite.
func (uc *LibraryUseCase) Favorite(ctx context.Context, sourceID string) error {
	if sourceID == "" {
		return errors.New(errors.ErrInvalidParams)
	}
	if err := uc.images.AddFavorite(ctx, sourceID); err != nil {
		return errors.Wrap(err, errors.ErrDatabase)
	}
	return nil
}

// Unfavorite removes the favorite mark.
func (uc *LibraryUseCase) Unfavorite(ctx context.Context, sourceID string) error {
	if err := uc.images.RemoveFavorite(ctx, sourceID); err != nil {
		return errors.Wrap(err, errors.ErrDatabase)
	}
	return nil
}

// ListFavorites returns every favorited image.
func (uc *LibraryUseCase) ListFavorites(ctx context.Context) ([]types.NormalizedImage, error) {
	images, err := uc.images.Favorites(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase)
	}
	return images, nil
}
