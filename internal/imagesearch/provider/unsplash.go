package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/imagesearch/types"
)

const (
	unsplashSearchPath = "/search/photos"
	unsplashMaxPerPage = 30
	unsplashDefPerPage = 20
)

// UnsplashProvider adapts the Unsplash photo search API.
type UnsplashProvider struct {
	*BaseProvider
}

// unsplashResponse mirrors the fields of GET /search/photos we consume.
type unsplashResponse struct {
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
	Results    []unsplashResult `json:"results"`
}

type unsplashResult struct {
	ID             string `json:"id"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Description    string `json:"description"`
	AltDescription string `json:"alt_description"`
	URLs           struct {
		Regular string `json:"regular"`
		Small   string `json:"small"`
		Thumb   string `json:"thumb"`
	} `json:"urls"`
	User struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"user"`
	Tags []struct {
		Title string `json:"title"`
	} `json:"tags"`
}

// NewUnsplashProvider creates an Unsplash provider.
func NewUnsplashProvider(config *types.ProviderConfig, logger *zap.Logger) (Provider, error) {
	base, err := NewBaseProvider(config, logger)
	if err != nil {
		return nil, err
	}
	return &UnsplashProvider{BaseProvider: base}, nil
}

func (p *UnsplashProvider) ID() types.ProviderID {
	return types.ProviderUnsplash
}

func (p *UnsplashProvider) Name() string {
	return "Unsplash"
}

// BuildRequest builds the search request. content_filter=high keeps the
// results workplace-safe, matching the other providers' safesearch settings.
func (p *UnsplashProvider) BuildRequest(query types.SearchQuery) (*types.Request, error) {
	key, err := p.RequireKey()
	if err != nil {
		return nil, err
	}
	q := query.Normalized()

	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(clampPerPage(q.PerPage, unsplashDefPerPage, 1, unsplashMaxPerPage)))
	params.Set("content_filter", "high")

	header := http.Header{}
	header.Set("Authorization", "Client-ID "+key)
	header.Set("Accept-Version", "v1")

	return &types.Request{
		Provider: p.ID(),
		URL:      strings.TrimRight(p.Config().APIHost, "/") + unsplashSearchPath + "?" + params.Encode(),
		Header:   header,
	}, nil
}

// Normalize converts an Unsplash response body to canonical records.
func (p *UnsplashProvider) Normalize(body []byte, query types.SearchQuery) ([]types.NormalizedImage, error) {
	var resp unsplashResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidResponse, err)
	}

	images := make([]types.NormalizedImage, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.ID == "" {
			continue
		}
		desc := r.Description
		if desc == "" {
			desc = r.AltDescription
		}
		if desc == "" {
			desc = query.Text
		}
		thumb := r.URLs.Small
		if thumb == "" {
			thumb = r.URLs.Thumb
		}
		tags := make([]string, 0, len(r.Tags))
		for _, t := range r.Tags {
			if t.Title != "" {
				tags = append(tags, strings.ToLower(t.Title))
			}
		}
		if len(tags) == 0 {
			tags = queryTokens(query.Text)
		}
		author := r.User.Name
		if author == "" {
			author = types.DefaultAuthor
		}
		images = append(images, types.NormalizedImage{
			ID:             p.ID().PrefixID(r.ID),
			Description:    desc,
			URL:            r.URLs.Regular,
			ThumbnailURL:   thumb,
			Width:          r.Width,
			Height:         r.Height,
			Author:         author,
			AuthorUsername: r.User.Username,
			Source:         p.ID(),
			Tags:           tags,
		})
	}
	return images, nil
}
