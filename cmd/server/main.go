package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/conf"
	"github.com/needleref/needleref/internal/data"
	"github.com/needleref/needleref/internal/imagesearch/aggregator"
	"github.com/needleref/needleref/internal/imagesearch/expand"
	"github.com/needleref/needleref/internal/imagesearch/provider"
	"github.com/needleref/needleref/internal/imagesearch/rank"
	"github.com/needleref/needleref/internal/imagesearch/types"
	librarybiz "github.com/needleref/needleref/internal/library/biz"
	librarydata "github.com/needleref/needleref/internal/library/data"
	libraryservice "github.com/needleref/needleref/internal/library/service"
	"github.com/needleref/needleref/internal/pkg/logger"
	"github.com/needleref/needleref/internal/pkg/ratelimit"
	"github.com/needleref/needleref/internal/pkg/workerpool"
	searchbiz "github.com/needleref/needleref/internal/search/biz"
	searchservice "github.com/needleref/needleref/internal/search/service"
	"github.com/needleref/needleref/internal/server"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger with config
	logConfig := &logger.Config{
		Level:            config.Log.Level,
		Format:           config.Log.Format,
		Output:           config.Log.Output,
		EnableCaller:     config.Log.EnableCaller,
		EnableStacktrace: config.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   config.Log.File.Filename,
			MaxSize:    config.Log.File.MaxSize,
			MaxAge:     config.Log.File.MaxAge,
			MaxBackups: config.Log.File.MaxBackups,
			Compress:   config.Log.File.Compress,
		},
	}

	log, err := logger.New(logConfig)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize global logger
	if err := logger.InitGlobal(logConfig); err != nil {
		log.Fatal("failed to initialize global logger", zap.Error(err))
	}

	log.Info("config loaded successfully")

	// Initialize data layer
	d, cleanup, err := data.NewData(config, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Initialize providers. Missing API keys are fine: those providers are
	// skipped per request, not at startup.
	providers := provider.NewAll(providerConfigs(config), log.Logger)
	limiter := ratelimit.New(
		config.Search.RateLimitPerMinute,
		ratelimit.Policy(config.Search.RateLimitPolicy),
		log.Logger,
	)
	agg := aggregator.New(providers, nil, limiter, log.Logger, aggregator.Options{
		FetchTimeout:   config.Search.FetchTimeout,
		BatchTimeout:   config.Search.BatchTimeout,
		RetryBackoff:   config.Search.RetryBackoff,
		MaxConcurrency: config.Search.MaxConcurrency,
		CacheCapacity:  config.Search.CacheCapacity,
		CacheTTL:       config.Search.CacheTTL,
	})

	// Background pool for persistence and weight generation
	poolSize := config.Search.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 8
	}
	pool, err := workerpool.New(poolSize, log.Logger)
	if err != nil {
		log.Fatal("failed to create worker pool", zap.Error(err))
	}
	defer pool.Shutdown()

	// Initialize repositories
	imageRepo := librarydata.NewImageRepo(d.DB, log.Logger)
	libraryRepo := librarydata.NewLibraryRepo(d.DB)

	// Ranking and expansion
	weights := config.Weights
	if weights == (rank.Weights{}) {
		weights = rank.DefaultWeights()
	}
	ranker := rank.NewRanker(nil, weights)

	var expander expand.Expander = expand.Passthrough{}
	if config.Search.Expansion {
		expander = expand.NewDictionary()
	}

	var resultCache searchbiz.ResultCache
	if d.RedisClient != nil {
		resultCache = searchbiz.NewRedisResultCache(d.RedisClient, config.Search.ResultCacheTTL, log.Logger)
	} else {
		resultCache = searchbiz.NewLRUResultCache(config.Search.ResultCacheCapacity, config.Search.ResultCacheTTL)
	}

	// Initialize use cases
	weightsGen := searchbiz.NewWeightsGenerator(imageRepo, nil, pool, log.Logger)
	searchUseCase := searchbiz.NewSearchUseCase(agg, imageRepo, ranker, weightsGen, pool, log.Logger)
	smartUseCase := searchbiz.NewSmartSearchUseCase(imageRepo, expander, ranker, resultCache, config.Search.MaxResults, log.Logger)
	suggester := searchbiz.NewSuggester(imageRepo, log.Logger)
	libraryUseCase := librarybiz.NewLibraryUseCase(libraryRepo, imageRepo, log.Logger)

	// Initialize services
	searchService := searchservice.NewSearchService(searchUseCase, smartUseCase, suggester, log.Logger)
	libraryService := libraryservice.NewLibraryService(libraryUseCase, log.Logger)

	// Initialize server
	httpServer := server.NewHTTPServer(config, log.Logger, searchService, libraryService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func providerConfigs(config *conf.Config) []*types.ProviderConfig {
	hosts := map[types.ProviderID]string{
		types.ProviderUnsplash: "https://api.unsplash.com",
		types.ProviderPexels:   "https://api.pexels.com",
		types.ProviderPixabay:  "https://pixabay.com",
	}
	build := func(id types.ProviderID, name string, pc conf.ProviderConfig) *types.ProviderConfig {
		host := pc.APIHost
		if host == "" {
			host = hosts[id]
		}
		return &types.ProviderConfig{
			ID:         id,
			Name:       name,
			APIHost:    host,
			APIKey:     pc.APIKey,
			Timeout:    int(pc.Timeout / time.Second),
			MaxRetries: pc.MaxRetries,
			RateLimit:  pc.RateLimit,
		}
	}
	return []*types.ProviderConfig{
		build(types.ProviderUnsplash, "Unsplash", config.Providers.Unsplash),
		build(types.ProviderPexels, "Pexels", config.Providers.Pexels),
		build(types.ProviderPixabay, "Pixabay", config.Providers.Pixabay),
	}
}
