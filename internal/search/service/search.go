package service

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/imagesearch/types"
	"github.com/needleref/needleref/internal/pkg/errors"
	"github.com/needleref/needleref/internal/pkg/response"
	"github.com/needleref/needleref/internal/search/biz"
)

// SearchService exposes the provider search, smart search and suggestion
// endpoints.
type SearchService struct {
	search    *biz.SearchUseCase
	smart     *biz.SmartSearchUseCase
	suggester *biz.Suggester
	logger    *zap.Logger
}

func NewSearchService(search *biz.SearchUseCase, smart *biz.SmartSearchUseCase, suggester *biz.Suggester, logger *zap.Logger) *SearchService {
	return &SearchService{
		search:    search,
		smart:     smart,
		suggester: suggester,
		logger:    logger,
	}
}

// RegisterRoutes mounts the search endpoints on the API group.
func (s *SearchService) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/search", s.Search)
	api.GET("/smartsearch", s.SmartSearch)
	api.GET("/search/suggest", s.Suggest)
}

// Search handles GET /search?query=&tags=&page=&per_page=&source=.
func (s *SearchService) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "0"))
	in := biz.SearchInput{
		Query:        c.Query("query"),
		SelectedTags: c.QueryArray("tags"),
		Page:         page,
		PerPage:      perPage,
		Source:       parseSource(c.DefaultQuery("source", "all")),
	}

	out, err := s.search.Search(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	if len(out.Images) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"images":  out.Images,
			"message": errors.GetMessage(errors.ErrSearchNoResults),
			"query":   out.Query,
		})
		return
	}
	c.JSON(http.StatusOK, out)
}

// SmartSearch handles GET /smartsearch?query=&cache=&expand=.
func (s *SearchService) SmartSearch(c *gin.Context) {
	opts := biz.SmartSearchOptions{
		UseCache:     c.DefaultQuery("cache", "true") == "true",
		UseExpansion: c.DefaultQuery("expand", "true") == "true",
	}

	res, err := s.smart.SmartSearch(c.Request.Context(), c.Query("query"), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Suggest handles GET /search/suggest?query=.
func (s *SearchService) Suggest(c *gin.Context) {
	suggestions := s.suggester.Suggest(c.Request.Context(), c.Query("query"))
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (s *SearchService) fail(c *gin.Context, err error) {
	if errors.ExtractCode(err) == errors.ErrInternalServer {
		s.logger.Error("search request failed", zap.Error(err))
	}
	response.Fail(c, err)
}

// parseSource maps the source parameter to a provider filter; "all" or
// anything unknown means no restriction.
func parseSource(source string) types.ProviderID {
	switch types.ProviderID(source) {
	case types.ProviderUnsplash, types.ProviderPexels, types.ProviderPixabay:
		return types.ProviderID(source)
	default:
		return ""
	}
}
