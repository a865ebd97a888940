package data

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/needleref/needleref/internal/imagesearch/types"
	"github.com/needleref/needleref/internal/library/biz"
)

// WeightsJSON stores the weighted-feature map as native JSONB.
type WeightsJSON map[string]float64

func (j *WeightsJSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j WeightsJSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// ImagePO represents a persisted normalized search result.
type ImagePO struct {
	ID             int64       `gorm:"primarykey"`
	SourceID       string      `gorm:"size:80;not null;uniqueIndex"`
	Description    string      `gorm:"type:text"`
	URL            string      `gorm:"size:512;not null"`
	ThumbnailURL   string      `gorm:"size:512;not null"`
	Width          int         `gorm:"not null;default:0"`
	Height         int         `gorm:"not null;default:0"`
	Author         string      `gorm:"size:100"`
	AuthorUsername string      `gorm:"size:100"`
	Source         string      `gorm:"size:20;index"`
	Weights        WeightsJSON `gorm:"type:jsonb"`
	DateAdded      time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Tags      []TagPO      `gorm:"many2many:image_tags"`
	Favorites []FavoritePO `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE"`
}

func (ImagePO) TableName() string {
	return "images"
}

// TagPO is a shared tag row; images reference tags many-to-many.
type TagPO struct {
	ID       int64  `gorm:"primarykey"`
	Name     string `gorm:"size:50;not null;uniqueIndex"`
	Category string `gorm:"size:50"`
}

func (TagPO) TableName() string {
	return "tags"
}

// FavoritePO marks one image as a favorite.
type FavoritePO struct {
	ID        int64     `gorm:"primarykey"`
	ImageID   int64     `gorm:"not null;uniqueIndex"`
	DateAdded time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FavoritePO) TableName() string {
	return "favorites"
}

// ImageRepo implements biz.ImageRepo on PostgreSQL.
type ImageRepo struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewImageRepo(db *gorm.DB, logger *zap.Logger) biz.ImageRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageRepo{db: db, logger: logger}
}

// UpsertBatch stores normalized images, skipping source IDs that already
// exist. An existing row with a different URL is left untouched and logged:
// provider IDs are stable, so a payload mismatch means upstream changed the
// asset and the stored copy stays authoritative.
func (r *ImageRepo) UpsertBatch(ctx context.Context, images []types.NormalizedImage) (int, error) {
	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, img := range images {
			if img.ID == "" {
				continue
			}
			var existing ImagePO
			err := tx.Where("source_id = ?", img.ID).First(&existing).Error
			if err == nil {
				if existing.URL != img.URL {
					r.logger.Warn("source ID collision with different payload, keeping stored copy",
						zap.String("source_id", img.ID))
				}
				continue
			}
			if err != gorm.ErrRecordNotFound {
				return err
			}

			po := ImagePO{
				SourceID:       img.ID,
				Description:    img.Description,
				URL:            img.URL,
				ThumbnailURL:   img.ThumbnailURL,
				Width:          img.Width,
				Height:         img.Height,
				Author:         img.Author,
				AuthorUsername: img.AuthorUsername,
				Source:         string(img.Source),
				Weights:        WeightsJSON(img.Weights),
				DateAdded:      time.Now(),
			}
			for _, name := range img.Tags {
				tag := TagPO{Name: strings.ToLower(name)}
				if err := tx.Where("name = ?", tag.Name).FirstOrCreate(&tag).Error; err != nil {
					return err
				}
				po.Tags = append(po.Tags, tag)
			}
			if err := tx.Create(&po).Error; err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	return inserted, err
}

var tsTokenRe = regexp.MustCompile(`[^a-z0-9]+`)

// tsQueryTerms sanitizes keywords into a to_tsquery OR expression. Tokens are
// stripped to alphanumerics so user input cannot carry tsquery syntax.
func tsQueryTerms(terms []string) string {
	clean := make([]string, 0, len(terms))
	for _, t := range terms {
		tok := tsTokenRe.ReplaceAllString(strings.ToLower(t), " ")
		for _, f := range strings.Fields(tok) {
			clean = append(clean, f)
		}
	}
	return strings.Join(clean, " | ")
}

// FullTextSearch ranks stored images against the keywords with ts_rank_cd,
// also admitting rows whose tags contain any keyword.
func (r *ImageRepo) FullTextSearch(ctx context.Context, terms []string, limit int) ([]types.NormalizedImage, error) {
	tsq := tsQueryTerms(terms)
	if tsq == "" {
		return []types.NormalizedImage{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	likeClauses := make([]string, 0, len(terms))
	args := []interface{}{tsq, tsq}
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		likeClauses = append(likeClauses, "LOWER(t.name) LIKE ?")
		args = append(args, "%"+t+"%")
	}
	tagFilter := ""
	if len(likeClauses) > 0 {
		tagFilter = " OR " + strings.Join(likeClauses, " OR ")
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT i.id,
		       ts_rank_cd(to_tsvector('english', COALESCE(i.description, '')),
		                  to_tsquery('english', ?)) AS rank
		FROM images i
		LEFT JOIN image_tags it ON i.id = it.image_po_id
		LEFT JOIN tags t ON it.tag_po_id = t.id
		WHERE to_tsvector('english', COALESCE(i.description, '')) @@ to_tsquery('english', ?)%s
		GROUP BY i.id
		ORDER BY rank DESC
		LIMIT ?`, tagFilter)

	var rows []struct {
		ID   int64
		Rank float64
	}
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []types.NormalizedImage{}, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	var pos []ImagePO
	if err := r.db.WithContext(ctx).Preload("Tags").Preload("Favorites").
		Where("id IN ?", ids).Find(&pos).Error; err != nil {
		return nil, err
	}

	byID := make(map[int64]*ImagePO, len(pos))
	for i := range pos {
		byID[pos[i].ID] = &pos[i]
	}
	images := make([]types.NormalizedImage, 0, len(rows))
	for _, row := range rows {
		if po, ok := byID[row.ID]; ok {
			images = append(images, toNormalized(po))
		}
	}
	return images, nil
}

// AllImages returns every stored image with tags and weights, used by the
// heuristic fallback scorer.
func (r *ImageRepo) AllImages(ctx context.Context) ([]types.NormalizedImage, error) {
	var pos []ImagePO
	if err := r.db.WithContext(ctx).Preload("Tags").Preload("Favorites").
		Find(&pos).Error; err != nil {
		return nil, err
	}
	images := make([]types.NormalizedImage, len(pos))
	for i := range pos {
		images[i] = toNormalized(&pos[i])
	}
	return images, nil
}

// SuggestTags returns tag names containing the partial term.
func (r *ImageRepo) SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&TagPO{}).
		Where("name LIKE ?", "%"+strings.ToLower(prefix)+"%").
		Order("name").
		Limit(limit).
		Pluck("name", &names).Error
	return names, err
}

// SuggestDescriptionWords returns words from stored descriptions that
// contain the partial term.
func (r *ImageRepo) SuggestDescriptionWords(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []string{}, nil
	}
	var descs []string
	if err := r.db.WithContext(ctx).Model(&ImagePO{}).
		Where("LOWER(description) LIKE ?", "%"+prefix+"%").
		Limit(200).
		Pluck("description", &descs).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	words := make([]string, 0, limit)
	for _, d := range descs {
		for _, w := range strings.Fields(strings.ToLower(d)) {
			w = strings.Trim(w, ".,!?;:\"'()")
			if len(w) >= 3 && strings.Contains(w, prefix) && !seen[w] {
				seen[w] = true
				words = append(words, w)
				if len(words) >= limit {
					return words, nil
				}
			}
		}
	}
	return words, nil
}

// ImagesWithoutWeights returns stored images whose weights map is empty.
func (r *ImageRepo) ImagesWithoutWeights(ctx context.Context) ([]types.NormalizedImage, error) {
	var pos []ImagePO
	if err := r.db.WithContext(ctx).Preload("Tags").
		Where("weights IS NULL").
		Find(&pos).Error; err != nil {
		return nil, err
	}
	images := make([]types.NormalizedImage, len(pos))
	for i := range pos {
		images[i] = toNormalized(&pos[i])
	}
	return images, nil
}

// SetWeights stores a generated weighted-feature map.
func (r *ImageRepo) SetWeights(ctx context.Context, sourceID string, weights map[string]float64) error {
	return r.db.WithContext(ctx).Model(&ImagePO{}).
		Where("source_id = ?", sourceID).
		Update("weights", WeightsJSON(weights)).Error
}

// AddFavorite marks the image as a favorite. Favoriting twice is a no-op.
func (r *ImageRepo) AddFavorite(ctx context.Context, sourceID string) error {
	var po ImagePO
	if err := r.db.WithContext(ctx).Where("source_id = ?", sourceID).First(&po).Error; err != nil {
		return err
	}
	fav := FavoritePO{ImageID: po.ID, DateAdded: time.Now()}
	return r.db.WithContext(ctx).Where("image_id = ?", po.ID).FirstOrCreate(&fav).Error
}

// RemoveFavorite clears the favorite mark.
func (r *ImageRepo) RemoveFavorite(ctx context.Context, sourceID string) error {
	var po ImagePO
	if err := r.db.WithContext(ctx).Where("source_id = ?", sourceID).First(&po).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("image_id = ?", po.ID).Delete(&FavoritePO{}).Error
}

// Favorites returns all favorited images, most recent first.
func (r *ImageRepo) Favorites(ctx context.Context) ([]types.NormalizedImage, error) {
	var pos []ImagePO
	if err := r.db.WithContext(ctx).Preload("Tags").Preload("Favorites").
		Joins("JOIN favorites f ON f.image_id = images.id").
		Order("f.date_added DESC").
		Find(&pos).Error; err != nil {
		return nil, err
	}
	images := make([]types.NormalizedImage, len(pos))
	for i := range pos {
		images[i] = toNormalized(&pos[i])
	}
	return images, nil
}

// FavoriteIDs reports which of the given source IDs are favorites.
func (r *ImageRepo) FavoriteIDs(ctx context.Context, sourceIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(sourceIDs))
	if len(sourceIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&ImagePO{}).
		Joins("JOIN favorites f ON f.image_id = images.id").
		Where("images.source_id IN ?", sourceIDs).
		Pluck("images.source_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func toNormalized(po *ImagePO) types.NormalizedImage {
	tags := make([]string, len(po.Tags))
	for i, t := range po.Tags {
		tags[i] = t.Name
	}
	return types.NormalizedImage{
		ID:             po.SourceID,
		Description:    po.Description,
		URL:            po.URL,
		ThumbnailURL:   po.ThumbnailURL,
		Width:          po.Width,
		Height:         po.Height,
		Author:         po.Author,
		AuthorUsername: po.AuthorUsername,
		Source:         types.ProviderID(po.Source),
		Tags:           tags,
		Weights:        po.Weights,
	}
}
