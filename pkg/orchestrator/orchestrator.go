// Package orchestrator implements the fallback chain that mediates every
// recipe request: fresh cache, then a quota-gated upstream call, then
// stale cache, then the bundled static dataset. Callers always receive a
// best-effort answer with provenance; the only error the read path
// surfaces is context cancellation.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/plateful/recipecache/pkg/cache"
	"github.com/plateful/recipecache/pkg/quota"
	"github.com/plateful/recipecache/pkg/recipe"
	"github.com/plateful/recipecache/pkg/upstream"
)

// Prometheus metrics for orchestrated requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipecache_requests_total",
		Help: "Total orchestrated requests by operation and answer source",
	}, []string{"operation", "source"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recipecache_request_duration_seconds",
		Help:    "Orchestrated request duration in seconds by operation",
		Buckets: []float64{0.005, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})
)

// Source identifies which tier of the fallback chain answered.
type Source string

const (
	// SourceFreshCache is a fresh cache hit.
	SourceFreshCache Source = "fresh_cache"

	// SourceUpstream is a live upstream call.
	SourceUpstream Source = "upstream"

	// SourceStaleCache is an expired cache record served as a fallback.
	SourceStaleCache Source = "stale_cache"

	// SourceStatic is the bundled last-resort dataset.
	SourceStatic Source = "static"
)

// FromCache reports the provenance flag callers see: everything except a
// live upstream call counts as served-from-cache.
func (s Source) FromCache() bool {
	return s != SourceUpstream
}

// CacheStore is the cache tier consumed by the orchestrator.
type CacheStore interface {
	GetFresh(ctx context.Context, key cache.Key) (*cache.Record, error)
	GetStale(ctx context.Context, key cache.Key) (*cache.Record, error)
	Upsert(ctx context.Context, key cache.Key, payload []byte, ttl time.Duration) error
	TouchAccess(ctx context.Context, key cache.Key) error
}

// QuotaLedger gates upstream calls against the shared daily budget.
type QuotaLedger interface {
	CheckAllowance(ctx context.Context) (quota.Allowance, error)
	RecordUsage(ctx context.Context, endpoint string) error
}

// Upstream is the set of endpoint adapters.
type Upstream interface {
	Search(ctx context.Context, query string, filters recipe.SearchFilters) (*recipe.SearchPage, error)
	GetByID(ctx context.Context, id int64) (*recipe.Recipe, error)
	FindByIngredients(ctx context.Context, ingredients []string) (*recipe.MatchList, error)
	Popular(ctx context.Context, filters recipe.PopularFilters) (*recipe.PopularList, error)
}

// StaticDataset is the terminal fallback tier. Its lookups never fail.
type StaticDataset interface {
	Search(query string) *recipe.SearchPage
	ByID(id int64) *recipe.Recipe
	ByIngredients(ingredients []string) *recipe.MatchList
	Popular(tags []string, count int) *recipe.PopularList
}

// SearchResult is the answer to a free-text search.
type SearchResult struct {
	Page      *recipe.SearchPage
	FromCache bool
	Source    Source
}

// RecipeResult is the answer to a by-id lookup. A nil Recipe is a
// legitimate terminal not-found result, not an error.
type RecipeResult struct {
	Recipe    *recipe.Recipe
	FromCache bool
	Source    Source
}

// IngredientsResult is the answer to an ingredient search.
type IngredientsResult struct {
	Matches   *recipe.MatchList
	FromCache bool
	Source    Source
}

// PopularResult is the answer to a popular-recipes request.
type PopularResult struct {
	List      *recipe.PopularList
	FromCache bool
	Source    Source
}

// Orchestrator walks the fallback chain for each logical request.
// Safe for concurrent use; concurrent misses for the same key share one
// upstream call via singleflight.
type Orchestrator struct {
	cache    CacheStore
	quota    QuotaLedger
	upstream Upstream
	static   StaticDataset
	logger   zerolog.Logger
	flight   singleflight.Group
	ttls     map[cache.Operation]time.Duration
}

// New creates an orchestrator over injected store handles.
func New(cacheStore CacheStore, ledger QuotaLedger, up Upstream, dataset StaticDataset, logger zerolog.Logger) *Orchestrator {
	if cacheStore == nil || ledger == nil || up == nil || dataset == nil {
		panic("orchestrator dependencies cannot be nil")
	}
	return &Orchestrator{
		cache:    cacheStore,
		quota:    ledger,
		upstream: up,
		static:   dataset,
		logger:   logger,
	}
}

// SetTTLs overrides the default per-kind freshness windows. Operations
// without an entry keep their built-in TTL. Call before serving traffic.
func (o *Orchestrator) SetTTLs(ttls map[cache.Operation]time.Duration) {
	o.ttls = ttls
}

func (o *Orchestrator) ttlFor(op cache.Operation) time.Duration {
	if ttl, ok := o.ttls[op]; ok && ttl > 0 {
		return ttl
	}
	return cache.TTL(op)
}

// Search answers a free-text search request.
func (o *Orchestrator) Search(ctx context.Context, query string, filters recipe.SearchFilters) (*SearchResult, error) {
	key := cache.SearchKey(query, filters)
	page, source, err := resolve(ctx, o, key, upstream.EndpointSearch,
		func(ctx context.Context) (*recipe.SearchPage, error) {
			return o.upstream.Search(ctx, query, filters)
		},
		func() *recipe.SearchPage {
			return o.static.Search(query)
		})
	if err != nil {
		return nil, err
	}
	return &SearchResult{Page: page, FromCache: source.FromCache(), Source: source}, nil
}

// GetByID answers a single-recipe lookup. The recipe is nil when no tier
// of the chain knows the id.
func (o *Orchestrator) GetByID(ctx context.Context, id int64) (*RecipeResult, error) {
	key := cache.RecipeKey(id)
	rec, source, err := resolve(ctx, o, key, upstream.EndpointRecipe,
		func(ctx context.Context) (*recipe.Recipe, error) {
			return o.upstream.GetByID(ctx, id)
		},
		func() *recipe.Recipe {
			return o.static.ByID(id)
		})
	if err != nil {
		return nil, err
	}
	return &RecipeResult{Recipe: rec, FromCache: source.FromCache(), Source: source}, nil
}

// FindByIngredients answers an ingredient search request.
func (o *Orchestrator) FindByIngredients(ctx context.Context, ingredients []string) (*IngredientsResult, error) {
	key := cache.IngredientsKey(ingredients)
	matches, source, err := resolve(ctx, o, key, upstream.EndpointIngredients,
		func(ctx context.Context) (*recipe.MatchList, error) {
			return o.upstream.FindByIngredients(ctx, ingredients)
		},
		func() *recipe.MatchList {
			return o.static.ByIngredients(ingredients)
		})
	if err != nil {
		return nil, err
	}
	return &IngredientsResult{Matches: matches, FromCache: source.FromCache(), Source: source}, nil
}

// Popular answers a popular-recipes request.
func (o *Orchestrator) Popular(ctx context.Context, filters recipe.PopularFilters) (*PopularResult, error) {
	key := cache.PopularKey(filters)
	list, source, err := resolve(ctx, o, key, upstream.EndpointRandom,
		func(ctx context.Context) (*recipe.PopularList, error) {
			return o.upstream.Popular(ctx, filters)
		},
		func() *recipe.PopularList {
			return o.static.Popular(filters.Tags, filters.Number)
		})
	if err != nil {
		return nil, err
	}
	return &PopularResult{List: list, FromCache: source.FromCache(), Source: source}, nil
}

// chainOutcome carries a miss-path answer through singleflight.
type chainOutcome[T any] struct {
	value  *T
	source Source
}

// resolve walks the fallback chain for one logical request. fetch is the
// endpoint adapter call; fromStatic queries the bundled dataset. The
// returned error is non-nil only for context cancellation.
func resolve[T any](ctx context.Context, o *Orchestrator, key cache.Key, endpoint string, fetch func(context.Context) (*T, error), fromStatic func() *T) (*T, Source, error) {
	operation := string(key.Op)
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}()

	logger := o.logger.With().Str("operation", operation).Str("cache_key", key.String()).Logger()

	// Step 1: fresh cache.
	if value, ok := o.readTier(ctx, logger, key, "fresh"); ok {
		var decoded T
		if err := json.Unmarshal(value, &decoded); err == nil {
			o.touchAsync(ctx, key, logger)
			requestsTotal.WithLabelValues(operation, string(SourceFreshCache)).Inc()
			return &decoded, SourceFreshCache, nil
		}
		logger.Warn().Msg("Corrupt fresh cache payload - treating as miss")
	}

	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	// The miss path runs once per key across concurrent misses. The
	// second concurrent miss waits for the first's answer instead of
	// issuing a duplicate, doubly-charged upstream call.
	result, err, _ := o.flight.Do(key.String(), func() (interface{}, error) {
		// Step 2: quota-gated upstream call.
		allowance, quotaErr := o.quota.CheckAllowance(ctx)
		if quotaErr != nil {
			logger.Warn().Err(quotaErr).Msg("Quota check failed - skipping upstream")
		} else if !allowance.Allowed {
			logger.Info().
				Int("remaining", allowance.Remaining).
				Int("limit", allowance.Limit).
				Msg("Quota budget exhausted - skipping upstream")
		} else {
			value, fetchErr := fetch(ctx)
			if fetchErr == nil {
				// Usage is charged only for calls that actually went
				// through; write failures degrade, never fail the read.
				if err := o.quota.RecordUsage(ctx, endpoint); err != nil {
					logger.Warn().Err(err).Msg("Failed to record quota usage")
				}
				o.storeResult(ctx, logger, key, value)
				return chainOutcome[T]{value: value, source: SourceUpstream}, nil
			}
			if ctx.Err() != nil {
				return nil, context.Cause(ctx)
			}
			logger.Warn().Err(fetchErr).Str("endpoint", endpoint).Msg("Upstream call failed - falling back")
		}

		// Step 3: stale cache.
		if payload, ok := o.readTier(ctx, logger, key, "stale"); ok {
			var decoded T
			if err := json.Unmarshal(payload, &decoded); err == nil {
				o.touchAsync(ctx, key, logger)
				return chainOutcome[T]{value: &decoded, source: SourceStaleCache}, nil
			}
			logger.Warn().Msg("Corrupt stale cache payload - falling back to static data")
		}

		// Step 4: bundled static dataset. Never fails.
		return chainOutcome[T]{value: fromStatic(), source: SourceStatic}, nil
	})
	if err != nil {
		return nil, "", err
	}

	outcome := result.(chainOutcome[T])
	requestsTotal.WithLabelValues(operation, string(outcome.source)).Inc()
	return outcome.value, outcome.source, nil
}

// storeResult persists an upstream answer for future requests. Failures
// are logged and swallowed so a broken store never blocks a live answer.
func (o *Orchestrator) storeResult(ctx context.Context, logger zerolog.Logger, key cache.Key, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode upstream payload for caching")
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.cache.Upsert(writeCtx, key, payload, o.ttlFor(key.Op)); err != nil {
		logger.Warn().Err(err).Msg("Failed to write cache record")
	}
}

// touchAsync bumps the record's access metadata off the request path.
// Failures are logged and swallowed.
func (o *Orchestrator) touchAsync(ctx context.Context, key cache.Key, logger zerolog.Logger) {
	go func() {
		touchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := o.cache.TouchAccess(touchCtx, key); err != nil {
			logger.Warn().Err(err).Msg("Failed to touch cache access metadata")
		}
	}()
}

// readTier reads one cache tier, treating store errors as misses so an
// unavailable store degrades toward upstream and static data.
func (o *Orchestrator) readTier(ctx context.Context, logger zerolog.Logger, key cache.Key, tier string) ([]byte, bool) {
	var (
		record *cache.Record
		err    error
	)
	if tier == "fresh" {
		record, err = o.cache.GetFresh(ctx, key)
	} else {
		record, err = o.cache.GetStale(ctx, key)
	}
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Err(err).Str("tier", tier).Msg("Cache store error - treating as miss")
		}
		return nil, false
	}
	return record.Payload, true
}
