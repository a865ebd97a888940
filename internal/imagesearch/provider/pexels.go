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
	pexelsSearchPath = "/v1/search"
	pexelsMaxPerPage = 80
	pexelsDefPerPage = 20
)

// PexelsProvider adapts the Pexels photo search API.
type PexelsProvider struct {
	*BaseProvider
}

type pexelsResponse struct {
	TotalResults int           `json:"total_results"`
	Page         int           `json:"page"`
	Photos       []pexelsPhoto `json:"photos"`
}

type pexelsPhoto struct {
	ID             int64  `json:"id"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Alt            string `json:"alt"`
	Photographer   string `json:"photographer"`
	PhotographerID int64  `json:"photographer_id"`
	Src            struct {
		Original string `json:"original"`
		Large    string `json:"large"`
		Medium   string `json:"medium"`
		Small    string `json:"small"`
	} `json:"src"`
}

// NewPexelsProvider creates a Pexels provider.
func NewPexelsProvider(config *types.ProviderConfig, logger *zap.Logger) (Provider, error) {
	base, err := NewBaseProvider(config, logger)
	if err != nil {
		return nil, err
	}
	return &PexelsProvider{BaseProvider: base}, nil
}

func (p *PexelsProvider) ID() types.ProviderID {
	return types.ProviderPexels
}

func (p *PexelsProvider) Name() string {
	return "Pexels"
}

// BuildRequest builds the search request. Pexels takes the raw key in the
// Authorization header, without a scheme prefix.
func (p *PexelsProvider) BuildRequest(query types.SearchQuery) (*types.Request, error) {
	key, err := p.RequireKey()
	if err != nil {
		return nil, err
	}
	q := query.Normalized()

	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(clampPerPage(q.PerPage, pexelsDefPerPage, 1, pexelsMaxPerPage)))

	header := http.Header{}
	header.Set("Authorization", key)

	return &types.Request{
		Provider: p.ID(),
		URL:      strings.TrimRight(p.Config().APIHost, "/") + pexelsSearchPath + "?" + params.Encode(),
		Header:   header,
	}, nil
}

// Normalize converts a Pexels response body to canonical records. Pexels
// carries no tag list, so tags fall back to the query tokens.
func (p *PexelsProvider) Normalize(body []byte, query types.SearchQuery) ([]types.NormalizedImage, error) {
	var resp pexelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidResponse, err)
	}

	images := make([]types.NormalizedImage, 0, len(resp.Photos))
	for _, ph := range resp.Photos {
		if ph.ID == 0 {
			continue
		}
		desc := ph.Alt
		if desc == "" {
			desc = query.Text
		}
		author := ph.Photographer
		if author == "" {
			author = types.DefaultAuthor
		}
		images = append(images, types.NormalizedImage{
			ID:             p.ID().PrefixID(strconv.FormatInt(ph.ID, 10)),
			Description:    desc,
			URL:            ph.Src.Large,
			ThumbnailURL:   ph.Src.Medium,
			Width:          ph.Width,
			Height:         ph.Height,
			Author:         author,
			AuthorUsername: strconv.FormatInt(ph.PhotographerID, 10),
			Source:         p.ID(),
			Tags:           queryTokens(query.Text),
		})
	}
	return images, nil
}
