package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/imagesearch/types"
)

const (
	pixabaySearchPath = "/api/"
	pixabayMinPerPage = 3
	pixabayMaxPerPage = 200
	pixabayDefPerPage = 20
)

// PixabayProvider adapts the Pixabay image search API.
type PixabayProvider struct {
	*BaseProvider
}

type pixabayResponse struct {
	Total     int          `json:"total"`
	TotalHits int          `json:"totalHits"`
	Hits      []pixabayHit `json:"hits"`
}

type pixabayHit struct {
	ID            int64  `json:"id"`
	Tags          string `json:"tags"`
	PreviewURL    string `json:"previewURL"`
	WebformatURL  string `json:"webformatURL"`
	LargeImageURL string `json:"largeImageURL"`
	ImageWidth    int    `json:"imageWidth"`
	ImageHeight   int    `json:"imageHeight"`
	User          string `json:"user"`
	UserID        int64  `json:"user_id"`
}

// NewPixabayProvider creates a Pixabay provider.
func NewPixabayProvider(config *types.ProviderConfig, logger *zap.Logger) (Provider, error) {
	base, err := NewBaseProvider(config, logger)
	if err != nil {
		return nil, err
	}
	return &PixabayProvider{BaseProvider: base}, nil
}

func (p *PixabayProvider) ID() types.ProviderID {
	return types.ProviderPixabay
}

func (p *PixabayProvider) Name() string {
	return "Pixabay"
}

// BuildRequest builds the search request. Pixabay authenticates via a query
// parameter rather than a header, and enforces a per_page floor of 3.
func (p *PixabayProvider) BuildRequest(query types.SearchQuery) (*types.Request, error) {
	key, err := p.RequireKey()
	if err != nil {
		return nil, err
	}
	q := query.Normalized()

	params := url.Values{}
	params.Set("key", key)
	params.Set("q", q.Text)
	params.Set("image_type", "photo")
	params.Set("safesearch", "true")
	params.Set("order", "popular")
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(clampPerPage(q.PerPage, pixabayDefPerPage, pixabayMinPerPage, pixabayMaxPerPage)))

	return &types.Request{
		Provider: p.ID(),
		URL:      strings.TrimRight(p.Config().APIHost, "/") + pixabaySearchPath + "?" + params.Encode(),
	}, nil
}

// Normalize converts a Pixabay response body to canonical records. Pixabay
// has no free-text description, so the comma-separated tag string doubles as
// one.
func (p *PixabayProvider) Normalize(body []byte, query types.SearchQuery) ([]types.NormalizedImage, error) {
	var resp pixabayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidResponse, err)
	}

	images := make([]types.NormalizedImage, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		if h.ID == 0 {
			continue
		}
		imgURL := h.LargeImageURL
		if imgURL == "" {
			imgURL = h.WebformatURL
		}
		desc := h.Tags
		if desc == "" {
			desc = query.Text
		}
		author := h.User
		if author == "" {
			author = types.DefaultAuthor
		}
		images = append(images, types.NormalizedImage{
			ID:             p.ID().PrefixID(strconv.FormatInt(h.ID, 10)),
			Description:    desc,
			URL:            imgURL,
			ThumbnailURL:   h.PreviewURL,
			Width:          h.ImageWidth,
			Height:         h.ImageHeight,
			Author:         author,
			AuthorUsername: strconv.FormatInt(h.UserID, 10),
			Source:         p.ID(),
			Tags:           splitTagList(h.Tags),
		})
	}
	return images, nil
}

// splitTagList splits Pixabay's ", "-separated tag string.
func splitTagList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(strings.ToLower(p)); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
