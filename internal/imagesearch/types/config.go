package types

import "strings"

// ProviderID identifies one upstream stock-photo API.
type ProviderID string

const (
	ProviderUnsplash ProviderID = "unsplash"
	ProviderPexels   ProviderID = "pexels"
	ProviderPixabay  ProviderID = "pixabay"
)

// AllProviders returns the built-in providers in their declared order.
// The aggregator relies on this order for deterministic result placement.
func AllProviders() []ProviderID {
	return []ProviderID{ProviderUnsplash, ProviderPexels, ProviderPixabay}
}

// PrefixID builds the globally unique image identifier for a raw provider ID.
// Prefixing makes cross-provider collisions structurally impossible.
func (p ProviderID) PrefixID(raw string) string {
	return string(p) + "_" + raw
}

// StripPrefix removes this provider's prefix from an identifier, if present.
func (p ProviderID) StripPrefix(id string) string {
	return strings.TrimPrefix(id, string(p)+"_")
}

// ProviderConfig represents image provider configuration.
type ProviderConfig struct {
	ID   ProviderID `json:"id" yaml:"id"`
	Name string     `json:"name" yaml:"name"`

	// API settings
	APIHost string `json:"api_host" yaml:"api_host"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Optional settings
	Timeout    int `json:"timeout,omitempty" yaml:"timeout,omitempty"`         // seconds
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"` // default: 1
	RateLimit  int `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`   // requests per minute
}

// Validate validates the provider configuration. A missing API key is not a
// validation error: unconfigured providers are skipped at request-build time.
func (c *ProviderConfig) Validate() error {
	if c.ID == "" {
		return ErrInvalidProviderID
	}
	if c.APIHost == "" {
		return ErrInvalidAPIHost
	}
	return nil
}
