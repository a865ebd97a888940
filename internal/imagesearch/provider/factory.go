package provider

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/imagesearch/types"
)

// Constructor creates a provider instance from its configuration.
type Constructor func(config *types.ProviderConfig, logger *zap.Logger) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[types.ProviderID]Constructor{
		types.ProviderUnsplash: NewUnsplashProvider,
		types.ProviderPexels:   NewPexelsProvider,
		types.ProviderPixabay:  NewPixabayProvider,
	}
)

// Register adds or replaces a provider constructor. It exists so tests and
// future adapters can plug in without touching the factory.
func Register(id types.ProviderID, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[id] = ctor
}

// New creates a single provider from its configuration.
func New(config *types.ProviderConfig, logger *zap.Logger) (Provider, error) {
	registryMu.RLock()
	ctor, ok := registry[config.ID]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrProviderNotFound, config.ID)
	}
	return ctor(config, logger)
}

// NewAll creates providers for every config in declared order. A config that
// fails construction is logged and skipped; the returned slice holds the
// providers that did construct.
func NewAll(configs []*types.ProviderConfig, logger *zap.Logger) []Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	providers := make([]Provider, 0, len(configs))
	for _, cfg := range configs {
		p, err := New(cfg, logger)
		if err != nil {
			logger.Warn("skipping provider",
				zap.String("provider", string(cfg.ID)),
				zap.Error(err))
			continue
		}
		providers = append(providers, p)
	}
	return providers
}
