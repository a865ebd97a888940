package provider

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/needleref/needleref/internal/imagesearch/types"
)

func testConfig(id types.ProviderID, key string) *types.ProviderConfig {
	return &types.ProviderConfig{
		ID:      id,
		Name:    string(id),
		APIHost: "https://api.example.com",
		APIKey:  key,
	}
}

func TestBaseProviderValidation(t *testing.T) {
	_, err := NewBaseProvider(&types.ProviderConfig{ID: types.ProviderPexels}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidAPIHost)

	_, err = NewBaseProvider(&types.ProviderConfig{APIHost: "https://x"}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidProviderID)
}

func TestBuildRequestMissingKey(t *testing.T) {
	for _, id := range types.AllProviders() {
		p, err := New(testConfig(id, ""), nil)
		require.NoError(t, err, id)

		_, err = p.BuildRequest(types.SearchQuery{Text: "dragon"})
		assert.ErrorIs(t, err, types.ErrMissingAPIKey, id)
	}
}

func TestUnsplashBuildRequest(t *testing.T) {
	p, err := New(testConfig(types.ProviderUnsplash, "abc"), nil)
	require.NoError(t, err)

	req, err := p.BuildRequest(types.SearchQuery{Text: "koi fish", Page: 0, PerPage: 100})
	require.NoError(t, err)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "/search/photos", u.Path)
	assert.Equal(t, "koi fish", u.Query().Get("query"))
	assert.Equal(t, "1", u.Query().Get("page"), "page floor")
	assert.Equal(t, "30", u.Query().Get("per_page"), "per_page cap")
	assert.Equal(t, "high", u.Query().Get("content_filter"))
	assert.Equal(t, "Client-ID abc", req.Header.Get("Authorization"))
}

func TestPexelsBuildRequest(t *testing.T) {
	p, err := New(testConfig(types.ProviderPexels, "pk"), nil)
	require.NoError(t, err)

	req, err := p.BuildRequest(types.SearchQuery{Text: "rose", Page: 2, PerPage: 500})
	require.NoError(t, err)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "/v1/search", u.Path)
	assert.Equal(t, "2", u.Query().Get("page"))
	assert.Equal(t, "80", u.Query().Get("per_page"))
	assert.Equal(t, "pk", req.Header.Get("Authorization"), "raw key, no scheme")
}

func TestPixabayBuildRequest(t *testing.T) {
	p, err := New(testConfig(types.ProviderPixabay, "xk"), nil)
	require.NoError(t, err)

	req, err := p.BuildRequest(types.SearchQuery{Text: "wolf", PerPage: 1})
	require.NoError(t, err)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "/api/", u.Path)
	assert.Equal(t, "xk", u.Query().Get("key"), "key travels as a query param")
	assert.Equal(t, "photo", u.Query().Get("image_type"))
	assert.Equal(t, "true", u.Query().Get("safesearch"))
	assert.Equal(t, "popular", u.Query().Get("order"))
	assert.Equal(t, "3", u.Query().Get("per_page"), "per_page floor")
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestPixabayNormalize(t *testing.T) {
	p, err := New(testConfig(types.ProviderPixabay, "xk"), nil)
	require.NoError(t, err)

	body := `{"hits":[{"id":5,"largeImageURL":"L","previewURL":"P","tags":"a, b","user":"joe"}]}`
	images, err := p.Normalize([]byte(body), types.SearchQuery{Text: "wolf"})
	require.NoError(t, err)
	require.Len(t, images, 1)

	img := images[0]
	assert.Equal(t, "pixabay_5", img.ID)
	assert.Equal(t, "L", img.URL)
	assert.Equal(t, "P", img.ThumbnailURL)
	assert.Equal(t, []string{"a", "b"}, img.Tags)
	assert.Equal(t, "joe", img.Author)
	assert.Equal(t, types.ProviderPixabay, img.Source)
}

func TestPixabayNormalizeURLFallback(t *testing.T) {
	p, err := New(testConfig(types.ProviderPixabay, "xk"), nil)
	require.NoError(t, err)

	body := `{"hits":[{"id":7,"webformatURL":"W","previewURL":"P","tags":""}]}`
	images, err := p.Normalize([]byte(body), types.SearchQuery{Text: "snake skull"})
	require.NoError(t, err)
	require.Len(t, images, 1)

	assert.Equal(t, "W", images[0].URL)
	assert.Equal(t, "snake skull", images[0].Description, "description falls back to query")
	assert.Equal(t, types.DefaultAuthor, images[0].Author)
	assert.Empty(t, images[0].Tags)
}

func TestPexelsNormalize(t *testing.T) {
	p, err := New(testConfig(types.ProviderPexels, "pk"), nil)
	require.NoError(t, err)

	body := `{"photos":[{"id":99,"width":640,"height":480,"alt":"a red rose",
		"photographer":"Ann","src":{"large":"LG","medium":"MD"}}]}`
	images, err := p.Normalize([]byte(body), types.SearchQuery{Text: "Red Rose"})
	require.NoError(t, err)
	require.Len(t, images, 1)

	img := images[0]
	assert.Equal(t, "pexels_99", img.ID)
	assert.Equal(t, "a red rose", img.Description)
	assert.Equal(t, "LG", img.URL)
	assert.Equal(t, "MD", img.ThumbnailURL)
	assert.Equal(t, "Ann", img.Author)
	assert.Equal(t, []string{"red", "rose"}, img.Tags, "tags derive from query tokens")
}

func TestUnsplashNormalize(t *testing.T) {
	p, err := New(testConfig(types.ProviderUnsplash, "abc"), nil)
	require.NoError(t, err)

	body := `{"results":[{"id":"ab12","width":100,"height":200,
		"alt_description":"dragon art",
		"urls":{"regular":"R","small":"S"},
		"user":{"name":"Kay","username":"kay_photos"},
		"tags":[{"title":"Dragon"},{"title":"Ink"}]}]}`
	images, err := p.Normalize([]byte(body), types.SearchQuery{Text: "dragon"})
	require.NoError(t, err)
	require.Len(t, images, 1)

	img := images[0]
	assert.Equal(t, "unsplash_ab12", img.ID)
	assert.Equal(t, "dragon art", img.Description, "alt_description fallback")
	assert.Equal(t, "R", img.URL)
	assert.Equal(t, "S", img.ThumbnailURL)
	assert.Equal(t, "kay_photos", img.AuthorUsername)
	assert.Equal(t, []string{"dragon", "ink"}, img.Tags, "tag titles lowercased")
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	p, err := New(testConfig(types.ProviderUnsplash, "abc"), nil)
	require.NoError(t, err)

	_, err = p.Normalize([]byte("<html>429</html>"), types.SearchQuery{Text: "x"})
	assert.ErrorIs(t, err, types.ErrInvalidResponse)
}

func TestNormalizeLooseShapes(t *testing.T) {
	q := types.SearchQuery{Text: "fallback"}

	t.Run("top-level array", func(t *testing.T) {
		images := NormalizeLoose(types.ProviderPexels, []byte(`[{"id":1,"url":"U"}]`), q)
		require.Len(t, images, 1)
		assert.Equal(t, "pexels_1", images[0].ID)
		assert.Equal(t, "U", images[0].URL)
	})

	t.Run("known list key", func(t *testing.T) {
		images := NormalizeLoose(types.ProviderPixabay, []byte(`{"hits":[{"id":2,"tags":"x, y"}]}`), q)
		require.Len(t, images, 1)
		assert.Equal(t, []string{"x", "y"}, images[0].Tags)
	})

	t.Run("bare object wraps as single record", func(t *testing.T) {
		images := NormalizeLoose(types.ProviderUnsplash, []byte(`{"id":"solo","description":"d"}`), q)
		require.Len(t, images, 1)
		assert.Equal(t, "unsplash_solo", images[0].ID)
		assert.Equal(t, "d", images[0].Description)
	})

	t.Run("records without id are dropped", func(t *testing.T) {
		images := NormalizeLoose(types.ProviderPexels, []byte(`[{"url":"U"},{"id":3}]`), q)
		require.Len(t, images, 1)
		assert.Equal(t, "pexels_3", images[0].ID)
	})

	t.Run("invalid json yields empty", func(t *testing.T) {
		assert.Empty(t, NormalizeLoose(types.ProviderPexels, []byte("{oops"), q))
	})
}

func TestFactoryUnknownProvider(t *testing.T) {
	_, err := New(&types.ProviderConfig{ID: "flickr", APIHost: "https://x"}, nil)
	assert.ErrorIs(t, err, types.ErrProviderNotFound)
}

func TestNewAllSkipsBroken(t *testing.T) {
	providers := NewAll([]*types.ProviderConfig{
		testConfig(types.ProviderUnsplash, "a"),
		{ID: "flickr", APIHost: "https://x"},
		testConfig(types.ProviderPixabay, "b"),
	}, nil)

	require.Len(t, providers, 2)
	assert.Equal(t, types.ProviderUnsplash, providers[0].ID())
	assert.Equal(t, types.ProviderPixabay, providers[1].ID())
}

func TestPrefixRoundTrip(t *testing.T) {
	id := types.ProviderPixabay.PrefixID("42")
	assert.Equal(t, "pixabay_42", id)
	assert.Equal(t, "42", types.ProviderPixabay.StripPrefix(id))
	assert.True(t, strings.HasPrefix(id, "pixabay_"))
}
