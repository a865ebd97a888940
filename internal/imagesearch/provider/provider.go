// Package provider contains the stock-photo provider adapters. An adapter is
// pure: it builds an HTTP request description and normalizes a raw response
// body. The aggregator owns transport, retries and caching.
package provider

import (
	"strings"

	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/imagesearch/types"
)

// Provider is the adapter contract for one upstream image API.
type Provider interface {
	// ID returns the provider identifier used for ID prefixing and routing.
	ID() types.ProviderID

	// Name returns the human-readable provider name.
	Name() string

	// BuildRequest turns a query into a ready-to-send request. It returns
	// types.ErrMissingAPIKey when the provider has no credential, which the
	// caller treats as "skip", never as a hard failure.
	BuildRequest(query types.SearchQuery) (*types.Request, error)

	// Normalize decodes a raw response body into canonical image records.
	Normalize(body []byte, query types.SearchQuery) ([]types.NormalizedImage, error)
}

// BaseProvider provides common functionality for adapters.
type BaseProvider struct {
	config *types.ProviderConfig
	logger *zap.Logger
}

// NewBaseProvider creates a base provider after validating the config.
func NewBaseProvider(config *types.ProviderConfig, logger *zap.Logger) (*BaseProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseProvider{config: config, logger: logger}, nil
}

// Config returns the provider configuration.
func (b *BaseProvider) Config() *types.ProviderConfig {
	return b.config
}

// Logger returns the provider logger.
func (b *BaseProvider) Logger() *zap.Logger {
	return b.logger
}

// RequireKey returns the configured API key, or ErrMissingAPIKey.
func (b *BaseProvider) RequireKey() (string, error) {
	if strings.TrimSpace(b.config.APIKey) == "" {
		return "", types.ErrMissingAPIKey
	}
	return b.config.APIKey, nil
}

// clampPerPage bounds a requested page size to [min, max], applying def when
// the request carries no explicit size.
func clampPerPage(requested, def, min, max int) int {
	n := requested
	if n <= 0 {
		n = def
	}
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n
}

// queryTokens splits the query text into lowercase tags for providers whose
// payloads carry no tag list of their own.
func queryTokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return []string{}
	}
	return fields
}
