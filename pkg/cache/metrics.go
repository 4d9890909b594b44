package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by tier (fresh, stale)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipecache_cache_hits_total",
			Help: "Total number of recipe cache hits",
		},
		[]string{"tier"}, // "fresh", "stale"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipecache_cache_misses_total",
			Help: "Total number of recipe cache misses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipecache_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "upsert", "touch", "purge"
	)

	// CachePurged tracks records removed by the expiry sweep
	CachePurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipecache_cache_purged_total",
			Help: "Total number of cache records removed by the expiry sweep",
		},
	)
)
