package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/imagesearch/types"
	"github.com/needleref/needleref/internal/library/biz"
	"github.com/needleref/needleref/internal/pkg/errors"
	"github.com/needleref/needleref/internal/pkg/response"
)

// LibraryService exposes the personal reference library and favorites
// endpoints.
type LibraryService struct {
	library *biz.LibraryUseCase
	logger  *zap.Logger
}

func NewLibraryService(library *biz.LibraryUseCase, logger *zap.Logger) *LibraryService {
	return &LibraryService{library: library, logger: logger}
}

// RegisterRoutes mounts the library and favorites endpoints on the API group.
func (s *LibraryService) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/favorites", s.ListFavorites)
	api.POST("/favorites/add/:id", s.AddFavorite)
	api.POST("/favorites/remove/:id", s.RemoveFavorite)

	api.GET("/library", s.ListLibrary)
	api.GET("/library/categories", s.Categories)
	api.GET("/library/stats", s.Stats)
	api.POST("/library/add", s.AddImage)
	api.POST("/library/remove/:id", s.RemoveImage)
	api.GET("/library/image/:id", s.GetImage)
	api.GET("/library/tags/:id", s.GetTags)
	api.POST("/library/tags/:id", s.AddTags)
	api.POST("/library/category/:id", s.Recategorize)
}

// libraryImageView is the wire shape of a library entry.
type libraryImageView struct {
	ID             int64     `json:"id"`
	SourceID       string    `json:"source_id"`
	Description    string    `json:"description"`
	URL            string    `json:"url"`
	ThumbnailURL   string    `json:"thumbnail_url"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	Author         string    `json:"author"`
	AuthorUsername string    `json:"author_username"`
	MainCategory   string    `json:"main_category"`
	Subcategory    string    `json:"subcategory"`
	Tags           []tagView `json:"tags"`
	DateAdded      time.Time `json:"date_added"`
}

type tagView struct {
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
}

func toView(img *biz.LibraryImage) libraryImageView {
	return libraryImageView{
		ID:             img.ID,
		SourceID:       img.SourceID,
		Description:    img.Description,
		URL:            img.URL,
		ThumbnailURL:   img.ThumbnailURL,
		Width:          img.Width,
		Height:         img.Height,
		Author:         img.Author,
		AuthorUsername: img.AuthorUsername,
		MainCategory:   img.MainCategory,
		Subcategory:    img.Subcategory,
		Tags:           toTagViews(img.Tags),
		DateAdded:      img.DateAdded,
	}
}

func toTagViews(tags []biz.LibraryTag) []tagView {
	out := make([]tagView, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagView{Name: t.Name, Custom: t.Custom})
	}
	return out
}

type addImageRequest struct {
	Image        types.NormalizedImage `json:"image" binding:"required"`
	MainCategory string                `json:"main_category"`
	Subcategory  string                `json:"subcategory"`
}

type addTagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

type recategorizeRequest struct {
	MainCategory string `json:"main_category" binding:"required"`
	Subcategory  string `json:"subcategory"`
}

// ListFavorites handles GET /favorites.
func (s *LibraryService) ListFavorites(c *gin.Context) {
	images, err := s.library.ListFavorites(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if images == nil {
		images = []types.NormalizedImage{}
	}
	c.JSON(http.StatusOK, gin.H{"favorites": images, "count": len(images)})
}

// AddFavorite handles POST /favorites/add/:id where :id is the
// provider-prefixed source identifier.
func (s *LibraryService) AddFavorite(c *gin.Context) {
	if err := s.library.Favorite(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": true, "id": c.Param("id")})
}

// RemoveFavorite handles POST /favorites/remove/:id.
func (s *LibraryService) RemoveFavorite(c *gin.Context) {
	if err := s.library.Unfavorite(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": false, "id": c.Param("id")})
}

// ListLibrary handles GET /library?main_category=&subcategory=.
func (s *LibraryService) ListLibrary(c *gin.Context) {
	filter := biz.CategoryFilter{
		MainCategory: c.Query("main_category"),
		Subcategory:  c.Query("subcategory"),
	}
	images, err := s.library.ListLibrary(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	views := make([]libraryImageView, 0, len(images))
	for _, img := range images {
		views = append(views, toView(img))
	}
	c.JSON(http.StatusOK, gin.H{"images": views, "count": len(views)})
}

// Categories handles GET /library/categories.
func (s *LibraryService) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.library.AvailableCategories()})
}

// Stats handles GET /library/stats.
func (s *LibraryService) Stats(c *gin.Context) {
	stats, err := s.library.CategoryStats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// AddImage handles POST /library/add.
func (s *LibraryService) AddImage(c *gin.Context) {
	var req addImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	entry, added, err := s.library.AddToLibrary(c.Request.Context(), req.Image, req.MainCategory, req.Subcategory)
	if err != nil {
		s.fail(c, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"image": toView(entry), "added": added})
}

// RemoveImage handles POST /library/remove/:id.
func (s *LibraryService) RemoveImage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.library.RemoveFromLibrary(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true, "id": id})
}

// GetImage handles GET /library/image/:id.
func (s *LibraryService) GetImage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	img, err := s.library.GetImage(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": toView(img)})
}

// GetTags handles GET /library/tags/:id.
func (s *LibraryService) GetTags(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tags, err := s.library.AddCustomTags(c.Request.Context(), id, nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": toTagViews(tags)})
}

// AddTags handles POST /library/tags/:id.
func (s *LibraryService) AddTags(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req addTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	tags, err := s.library.AddCustomTags(c.Request.Context(), id, req.Tags)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": toTagViews(tags)})
}

// Recategorize handles POST /library/category/:id.
func (s *LibraryService) Recategorize(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req recategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := s.library.Recategorize(c.Request.Context(), id, req.MainCategory, req.Subcategory); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            id,
		"main_category": req.MainCategory,
		"subcategory":   req.Subcategory,
	})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "id must be an integer")
		return 0, false
	}
	return id, true
}

func (s *LibraryService) fail(c *gin.Context, err error) {
	code := errors.ExtractCode(err)
	if code == errors.ErrInternalServer || code == errors.ErrDatabase {
		s.logger.Error("library request failed", zap.Error(err))
	}
	response.Fail(c, err)
}
