// Package metrics provides the centralized Prometheus metrics registry
// for the recipe cache. All metrics are defined in their respective
// packages (cache, quota, upstream, orchestrator) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Orchestrator Metrics (pkg/orchestrator):
//   - recipecache_requests_total{operation, source} (Counter): Requests by operation and answer source
//   - recipecache_request_duration_seconds{operation} (Histogram): Request duration by operation
//
// Cache Metrics (pkg/cache):
//   - recipecache_cache_hits_total{tier} (Counter): Cache hits by tier (fresh, stale)
//   - recipecache_cache_misses_total (Counter): Cache misses
//   - recipecache_cache_errors_total{operation} (Counter): Cache store operation errors
//   - recipecache_cache_purged_total (Counter): Records removed by retention sweeps
//
// Quota Metrics (pkg/quota):
//   - recipecache_quota_remaining (Gauge): Remaining daily upstream budget
//   - recipecache_quota_blocks_total (Counter): Upstream calls blocked by the budget
//   - recipecache_quota_usage_total{endpoint} (Counter): Charged upstream calls by endpoint
//   - recipecache_quota_ledger_errors_total (Counter): Ledger store errors (fail-closed)
//
// Upstream Metrics (pkg/upstream):
//   - recipecache_upstream_requests_total{endpoint, status} (Counter): Upstream calls by endpoint and HTTP status
//   - recipecache_upstream_request_duration_seconds{endpoint} (Histogram): Upstream call duration
//   - recipecache_upstream_errors_total{class} (Counter): Upstream errors by class
//   - recipecache_upstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - recipecache_upstream_retry_exhausted_total{error_class} (Counter): Calls that exhausted retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(recipecache_cache_hits_total[5m])) /
//   (sum(rate(recipecache_cache_hits_total[5m])) + sum(rate(recipecache_cache_misses_total[5m])))
//
//   # Share of answers served without an upstream call
//   1 - (sum(rate(recipecache_requests_total{source="upstream"}[1h])) /
//        sum(rate(recipecache_requests_total[1h])))
//
//   # Daily budget pressure
//   recipecache_quota_remaining < 25
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(recipecache_request_duration_seconds_bucket[5m]))
