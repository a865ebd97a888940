package types

// DefaultAuthor is substituted when a provider payload carries no author.
const DefaultAuthor = "Unknown"

// NormalizedImage is the canonical, provider-agnostic image record produced
// by the adapters. ID is globally unique across providers because it is
// provider-prefixed (e.g. "pexels_123").
type NormalizedImage struct {
	ID             string             `json:"id"`
	Description    string             `json:"description"`
	URL            string             `json:"url"`
	ThumbnailURL   string             `json:"thumbnail_url"`
	Width          int                `json:"width"`
	Height         int                `json:"height"`
	Author         string             `json:"author"`
	AuthorUsername string             `json:"author_username"`
	Source         ProviderID         `json:"source"`
	Tags           []string           `json:"tags"`
	Weights        map[string]float64 `json:"weights,omitempty"`
}
