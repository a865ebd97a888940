package data

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/needleref/needleref/internal/library/biz"
)

// LibraryImagePO is a curated library entry.
type LibraryImagePO struct {
	ID             int64     `gorm:"primarykey"`
	SourceID       string    `gorm:"size:80;not null;uniqueIndex"`
	Description    string    `gorm:"type:text"`
	URL            string    `gorm:"size:512;not null"`
	ThumbnailURL   string    `gorm:"size:512;not null"`
	Width          int       `gorm:"not null;default:0"`
	Height         int       `gorm:"not null;default:0"`
	Author         string    `gorm:"size:100"`
	AuthorUsername string    `gorm:"size:100"`
	MainCategory   string    `gorm:"size:50;index"`
	Subcategory    string    `gorm:"size:50;index"`
	DateAdded      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Tags []LibraryTagPO `gorm:"foreignKey:LibraryID;constraint:OnDelete:CASCADE"`
}

func (LibraryImagePO) TableName() string {
	return "library"
}

// LibraryTagPO is a tag row owned by one library entry. Custom separates
// user-entered tags from imported ones.
type LibraryTagPO struct {
	ID        int64  `gorm:"primarykey"`
	LibraryID int64  `gorm:"not null;index"`
	TagName   string `gorm:"size:50;not null"`
	Custom    bool   `gorm:"not null;default:false"`
}

func (LibraryTagPO) TableName() string {
	return "library_tags"
}

// LibraryRepo implements biz.LibraryRepo.
type LibraryRepo struct {
	db *gorm.DB
}

func NewLibraryRepo(db *gorm.DB) biz.LibraryRepo {
	return &LibraryRepo{db: db}
}

func (r *LibraryRepo) Add(ctx context.Context, image *biz.LibraryImage) error {
	po := &LibraryImagePO{
		SourceID:       image.SourceID,
		Description:    image.Description,
		URL:            image.URL,
		ThumbnailURL:   image.ThumbnailURL,
		Width:          image.Width,
		Height:         image.Height,
		Author:         image.Author,
		AuthorUsername: image.AuthorUsername,
		MainCategory:   image.MainCategory,
		Subcategory:    image.Subcategory,
		DateAdded:      image.DateAdded,
	}
	for _, t := range image.Tags {
		po.Tags = append(po.Tags, LibraryTagPO{TagName: t.Name, Custom: t.Custom})
	}

	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return err
	}
	image.ID = po.ID
	return nil
}

func (r *LibraryRepo) Get(ctx context.Context, id int64) (*biz.LibraryImage, error) {
	var po LibraryImagePO
	if err := r.db.WithContext(ctx).Preload("Tags").First(&po, id).Error; err != nil {
		return nil, err
	}
	return r.toImage(&po), nil
}

func (r *LibraryRepo) GetBySourceID(ctx context.Context, sourceID string) (*biz.LibraryImage, error) {
	var po LibraryImagePO
	if err := r.db.WithContext(ctx).Preload("Tags").
		Where("source_id = ?", sourceID).First(&po).Error; err != nil {
		return nil, err
	}
	return r.toImage(&po), nil
}

func (r *LibraryRepo) List(ctx context.Context, filter biz.CategoryFilter) ([]*biz.LibraryImage, error) {
	q := r.db.WithContext(ctx).Preload("Tags").Order("date_added DESC")
	if filter.MainCategory != "" {
		q = q.Where("main_category = ?", filter.MainCategory)
	}
	if filter.Subcategory != "" {
		q = q.Where("subcategory = ?", filter.Subcategory)
	}

	var pos []LibraryImagePO
	if err := q.Find(&pos).Error; err != nil {
		return nil, err
	}
	images := make([]*biz.LibraryImage, len(pos))
	for i := range pos {
		images[i] = r.toImage(&pos[i])
	}
	return images, nil
}

func (r *LibraryRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("library_id = ?", id).Delete(&LibraryTagPO{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&LibraryImagePO{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *LibraryRepo) AddTags(ctx context.Context, id int64, tags []biz.LibraryTag) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []LibraryTagPO
		if err := tx.Where("library_id = ?", id).Find(&existing).Error; err != nil {
			return err
		}
		have := make(map[string]bool, len(existing))
		for _, t := range existing {
			have[t.TagName] = true
		}
		for _, t := range tags {
			if have[t.Name] {
				continue
			}
			po := LibraryTagPO{LibraryID: id, TagName: t.Name, Custom: t.Custom}
			if err := tx.Create(&po).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *LibraryRepo) Tags(ctx context.Context, id int64) ([]biz.LibraryTag, error) {
	var pos []LibraryTagPO
	if err := r.db.WithContext(ctx).
		Where("library_id = ?", id).Order("id").Find(&pos).Error; err != nil {
		return nil, err
	}
	tags := make([]biz.LibraryTag, len(pos))
	for i, po := range pos {
		tags[i] = biz.LibraryTag{Name: po.TagName, Custom: po.Custom}
	}
	return tags, nil
}

func (r *LibraryRepo) UpdateCategory(ctx context.Context, id int64, mainCategory, subcategory string) error {
	res := r.db.WithContext(ctx).Model(&LibraryImagePO{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"main_category": mainCategory,
			"subcategory":   subcategory,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *LibraryRepo) CategoryStats(ctx context.Context) (map[string]map[string]int, error) {
	var rows []struct {
		MainCategory string
		Subcategory  string
		Count        int
	}
	err := r.db.WithContext(ctx).Model(&LibraryImagePO{}).
		Select("main_category, subcategory, COUNT(*) as count").
		Group("main_category, subcategory").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[string]map[string]int)
	for _, row := range rows {
		if row.MainCategory == "" {
			continue
		}
		if stats[row.MainCategory] == nil {
			stats[row.MainCategory] = make(map[string]int)
		}
		stats[row.MainCategory][row.Subcategory] = row.Count
	}
	return stats, nil
}

func (r *LibraryRepo) toImage(po *LibraryImagePO) *biz.LibraryImage {
	tags := make([]biz.LibraryTag, len(po.Tags))
	for i, t := range po.Tags {
		tags[i] = biz.LibraryTag{Name: t.TagName, Custom: t.Custom}
	}
	return &biz.LibraryImage{
		ID:             po.ID,
		SourceID:       po.SourceID,
		Description:    po.Description,
		URL:            po.URL,
		ThumbnailURL:   po.ThumbnailURL,
		Width:          po.Width,
		Height:         po.Height,
		Author:         po.Author,
		AuthorUsername: po.AuthorUsername,
		MainCategory:   po.MainCategory,
		Subcategory:    po.Subcategory,
		Tags:           tags,
		DateAdded:      po.DateAdded,
	}
}
