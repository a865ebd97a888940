package provider

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/needleref/needleref/internal/imagesearch/types"
)

// Payload shapes recognized by NormalizeLoose, tried in order.
var looseListKeys = []string{"results", "hits", "photos", "images", "items"}

// NormalizeLoose is the last-resort decoder for payloads a typed adapter
// rejected. It sniffs the container shape (top-level array, a known list key,
// or a bare object treated as a single record) and maps the common field
// aliases. Records without an ID are dropped; an unrecognized shape yields an
// empty slice, never an error.
func NormalizeLoose(id types.ProviderID, body []byte, query types.SearchQuery) []types.NormalizedImage {
	if !gjson.ValidBytes(body) {
		return []types.NormalizedImage{}
	}
	root := gjson.ParseBytes(body)

	var records []gjson.Result
	switch {
	case root.IsArray():
		records = root.Array()
	case root.IsObject():
		for _, key := range looseListKeys {
			if list := root.Get(key); list.IsArray() {
				records = list.Array()
				break
			}
		}
		if records == nil {
			// Unknown object shape: treat it as one record.
			records = []gjson.Result{root}
		}
	default:
		return []types.NormalizedImage{}
	}

	images := make([]types.NormalizedImage, 0, len(records))
	for _, rec := range records {
		img, ok := looseImage(id, rec, query)
		if !ok {
			continue
		}
		images = append(images, img)
	}
	return images
}

func looseImage(id types.ProviderID, rec gjson.Result, query types.SearchQuery) (types.NormalizedImage, bool) {
	rawID := firstString(rec, "id", "uuid", "photo_id")
	if rawID == "" {
		return types.NormalizedImage{}, false
	}

	desc := firstString(rec, "description", "alt_description", "alt", "title")
	if desc == "" {
		desc = query.Text
	}

	imgURL := firstString(rec, "url", "largeImageURL", "urls.regular", "src.large", "webformatURL", "image_url")
	thumb := firstString(rec, "thumbnail_url", "previewURL", "urls.small", "src.medium", "thumb")

	author := firstString(rec, "author", "user.name", "photographer", "user")
	if author == "" {
		author = types.DefaultAuthor
	}

	return types.NormalizedImage{
		ID:             id.PrefixID(rawID),
		Description:    desc,
		URL:            imgURL,
		ThumbnailURL:   thumb,
		Width:          int(firstInt(rec, "width", "imageWidth")),
		Height:         int(firstInt(rec, "height", "imageHeight")),
		Author:         author,
		AuthorUsername: firstString(rec, "author_username", "user.username"),
		Source:         id,
		Tags:           looseTags(rec, query),
	}, true
}

// looseTags accepts either an array of strings, an array of {title} objects,
// or a comma-separated string. Anything else falls back to query tokens.
func looseTags(rec gjson.Result, query types.SearchQuery) []string {
	t := rec.Get("tags")
	switch {
	case t.IsArray():
		tags := make([]string, 0, len(t.Array()))
		for _, item := range t.Array() {
			v := item.String()
			if item.IsObject() {
				v = item.Get("title").String()
			}
			if v = strings.TrimSpace(strings.ToLower(v)); v != "" {
				tags = append(tags, v)
			}
		}
		if len(tags) > 0 {
			return tags
		}
	case t.Type == gjson.String:
		if tags := splitTagList(t.String()); len(tags) > 0 {
			return tags
		}
	}
	return queryTokens(query.Text)
}

func firstString(rec gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := rec.Get(p); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
		// Numeric IDs arrive as JSON numbers.
		if v := rec.Get(p); v.Type == gjson.Number {
			return v.Raw
		}
	}
	return ""
}

func firstInt(rec gjson.Result, paths ...string) int64 {
	for _, p := range paths {
		if v := rec.Get(p); v.Type == gjson.Number {
			return v.Int()
		}
	}
	return 0
}
