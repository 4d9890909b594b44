// Package cache provides the Redis-backed recipe cache store.
//
// Records are stored as Redis hashes so that access counting is an atomic
// HINCRBY rather than a read-modify-write. Logical freshness is carried in
// the record's expires_at field; the Redis key itself lives for the kind
// TTL plus a stale retention window, so records past their TTL remain
// retrievable as degraded fallbacks until purged.
//
// # Basic Usage
//
//	store := cache.NewStore(redisClient, logger, 0)
//
//	key := cache.SearchKey("pasta", recipe.SearchFilters{Diet: "vegan"})
//
//	rec, err := store.GetFresh(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// miss - consult quota, call upstream
//	}
//
//	// after a successful upstream call
//	if err := store.Upsert(ctx, key, payload, cache.TTL(cache.OpSearch)); err != nil {
//		// log and swallow - write failures never fail the request
//	}
//
// # Tiers
//
// GetFresh honors the per-kind TTL (search 24h, recipe 7d, ingredients 2h,
// popular/random 6h). GetStale ignores it and returns anything that still
// exists. PurgeExpired removes records whose logical expiry is older than
// the stale retention window; it runs off the request path.
//
// # Metrics
//
//   - recipecache_cache_hits_total{tier="fresh"|"stale"} - cache hits
//   - recipecache_cache_misses_total - cache misses
//   - recipecache_cache_errors_total{operation} - store operation errors
//   - recipecache_cache_purged_total - records removed by the sweep
package cache
