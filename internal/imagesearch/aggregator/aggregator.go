// Package aggregator fans search queries out across the configured providers
// and merges whatever comes back. It owns transport, caching, rate limiting
// and retries; the adapters stay pure. Failures degrade to fewer results and
// never propagate: the worst case is an empty slice.
package aggregator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/needleref/needleref/internal/imagesearch/provider"
	"github.com/needleref/needleref/internal/imagesearch/types"
	"github.com/needleref/needleref/internal/pkg/cache"
	"github.com/needleref/needleref/internal/pkg/ratelimit"
)

const (
	defaultFetchTimeout   = 6 * time.Second
	defaultBatchTimeout   = 20 * time.Second
	defaultRetryBackoff   = 1 * time.Second
	defaultMaxConcurrency = 8
	defaultCacheCapacity  = 256
	defaultCacheTTL       = 5 * time.Minute
	maxResponseBytes      = 8 << 20
)

// Options tunes the aggregator. Zero values fall back to the defaults above.
type Options struct {
	FetchTimeout   time.Duration // per provider request
	BatchTimeout   time.Duration // whole SearchAll call
	RetryBackoff   time.Duration // wait before the single 429 retry
	MaxConcurrency int
	CacheCapacity  int
	CacheTTL       time.Duration
}

func (o *Options) withDefaults() {
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = defaultFetchTimeout
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = defaultBatchTimeout
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = defaultMaxConcurrency
	}
	if o.CacheCapacity <= 0 {
		o.CacheCapacity = defaultCacheCapacity
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaultCacheTTL
	}
}

// UnitReport records the outcome of one query/provider fetch unit.
type UnitReport struct {
	Provider types.ProviderID `json:"provider"`
	Query    string           `json:"query"`
	Status   types.Status     `json:"status"`
	Count    int              `json:"count"`
	Cached   bool             `json:"cached"`
	Err      error            `json:"-"`
}

// Result is the outcome of a whole batch.
type Result struct {
	Images []types.NormalizedImage `json:"images"`
	Units  []UnitReport            `json:"units"`
}

// Aggregator runs search batches over a fixed provider set.
type Aggregator struct {
	providers []provider.Provider
	client    *http.Client
	cache     *cache.TTLCache[[]types.NormalizedImage]
	limiter   *ratelimit.Limiter
	logger    *zap.Logger
	opts      Options

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an aggregator. A nil client gets a default with the fetch
// timeout applied; a nil limiter disables rate limiting.
func New(providers []provider.Provider, client *http.Client, limiter *ratelimit.Limiter, logger *zap.Logger, opts Options) *Aggregator {
	opts.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: opts.FetchTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// capacity is sanitized above, so construction cannot fail
	responseCache, _ := cache.NewTTL[[]types.NormalizedImage](opts.CacheCapacity, opts.CacheTTL)
	return &Aggregator{
		providers: providers,
		client:    client,
		cache:     responseCache,
		limiter:   limiter,
		logger:    logger,
		opts:      opts,
		sleep:     sleepCtx,
	}
}

// unit is one cell of the queries x providers cross product.
type unit struct {
	query    types.SearchQuery
	provider provider.Provider
}

// SearchAll fetches every query from every provider concurrently and returns
// the concatenated results in deterministic order: query-major, then the
// provider declaration order, then each provider's own ranking. It never
// returns an error; failed units contribute nothing beyond their report.
func (a *Aggregator) SearchAll(ctx context.Context, queries []types.SearchQuery) Result {
	return a.Search(ctx, queries, nil)
}

// Search is SearchAll restricted to a provider subset. A nil or empty subset
// means every configured provider.
func (a *Aggregator) Search(ctx context.Context, queries []types.SearchQuery, only []types.ProviderID) Result {
	providers := a.providers
	if len(only) > 0 {
		wanted := make(map[types.ProviderID]bool, len(only))
		for _, id := range only {
			wanted[id] = true
		}
		providers = make([]provider.Provider, 0, len(only))
		for _, p := range a.providers {
			if wanted[p.ID()] {
				providers = append(providers, p)
			}
		}
	}

	units := make([]unit, 0, len(queries)*len(providers))
	for _, q := range queries {
		if q.Text == "" {
			continue
		}
		for _, p := range providers {
			units = append(units, unit{query: q.Normalized(), provider: p})
		}
	}
	if len(units) == 0 {
		return Result{Images: []types.NormalizedImage{}, Units: []UnitReport{}}
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.BatchTimeout)
	defer cancel()

	perUnit := make([][]types.NormalizedImage, len(units))
	reports := make([]UnitReport, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.MaxConcurrency)
	for i, u := range units {
		g.Go(func() error {
			perUnit[i], reports[i] = a.runUnit(gctx, u)
			return nil
		})
	}
	// Units never return errors, so Wait only blocks.
	_ = g.Wait()

	total := 0
	for _, imgs := range perUnit {
		total += len(imgs)
	}
	merged := make([]types.NormalizedImage, 0, total)
	for _, imgs := range perUnit {
		merged = append(merged, imgs...)
	}
	return Result{Images: merged, Units: reports}
}

func (a *Aggregator) runUnit(ctx context.Context, u unit) ([]types.NormalizedImage, UnitReport) {
	report := UnitReport{Provider: u.provider.ID(), Query: u.query.Text}

	req, err := u.provider.BuildRequest(u.query)
	if err != nil {
		report.Err = err
		if errors.Is(err, types.ErrMissingAPIKey) {
			report.Status = types.StatusSkipped
			a.logger.Debug("provider skipped, no API key",
				zap.String("provider", string(u.provider.ID())))
		} else {
			report.Status = types.StatusFatal
			a.logger.Warn("request build failed",
				zap.String("provider", string(u.provider.ID())),
				zap.String("query", u.query.Text),
				zap.Error(err))
		}
		return nil, report
	}

	key := cache.Key(string(u.provider.ID()), u.query.Text, strconv.Itoa(u.query.Page))
	if images, ok := a.cache.Get(key); ok {
		report.Status = types.StatusOK
		report.Count = len(images)
		report.Cached = true
		return images, report
	}

	if a.limiter != nil {
		if err := a.limiter.Acquire(ctx, string(u.provider.ID())); err != nil {
			report.Status = types.StatusTransient
			report.Err = err
			return nil, report
		}
	}

	body, status, err := a.fetch(ctx, req)
	if status == http.StatusTooManyRequests {
		// One fixed-backoff retry, then give up on this unit.
		a.logger.Warn("provider rate limited, retrying once",
			zap.String("provider", string(u.provider.ID())),
			zap.Duration("backoff", a.opts.RetryBackoff))
		if serr := a.sleep(ctx, a.opts.RetryBackoff); serr == nil {
			body, status, err = a.fetch(ctx, req)
		}
	}
	if err != nil {
		report.Status = types.StatusTransient
		report.Err = err
		a.logger.Warn("provider fetch failed",
			zap.String("provider", string(u.provider.ID())),
			zap.String("query", u.query.Text),
			zap.Error(err))
		return nil, report
	}
	switch {
	case status == http.StatusTooManyRequests:
		report.Status = types.StatusTransient
		report.Err = types.ErrProviderRateLimited
		return nil, report
	case status == http.StatusNotFound:
		report.Status = types.StatusNotFound
		return nil, report
	case status >= 500:
		report.Status = types.StatusTransient
		report.Err = &types.ProviderError{
			Provider: u.provider.ID(),
			Code:     strconv.Itoa(status),
			Message:  "upstream server error",
		}
		return nil, report
	case status >= 400:
		report.Status = types.StatusFatal
		report.Err = &types.ProviderError{
			Provider: u.provider.ID(),
			Code:     strconv.Itoa(status),
			Message:  "request rejected",
		}
		a.logger.Warn("provider rejected request",
			zap.String("provider", string(u.provider.ID())),
			zap.Int("status", status))
		return nil, report
	}

	images, err := u.provider.Normalize(body, u.query)
	if err != nil {
		// Typed decode failed; sniff the shape before giving up.
		images = provider.NormalizeLoose(u.provider.ID(), body, u.query)
		if len(images) == 0 {
			report.Status = types.StatusFatal
			report.Err = err
			a.logger.Warn("response normalization failed",
				zap.String("provider", string(u.provider.ID())),
				zap.Error(err))
			return nil, report
		}
		a.logger.Debug("loose normalization recovered payload",
			zap.String("provider", string(u.provider.ID())),
			zap.Int("count", len(images)))
	}

	a.cache.Put(key, images)
	if len(images) == 0 {
		report.Status = types.StatusNotFound
		return images, report
	}
	report.Status = types.StatusOK
	report.Count = len(images)
	return images, report
}

// fetch performs one HTTP round trip under the per-fetch timeout.
func (a *Aggregator) fetch(ctx context.Context, req *types.Request) ([]byte, int, error) {
	fctx, cancel := context.WithTimeout(ctx, a.opts.FetchTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(fctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
