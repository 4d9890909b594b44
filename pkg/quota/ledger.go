package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	quotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recipecache_quota_remaining",
		Help: "Raw remaining upstream calls in today's quota budget",
	})

	quotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipecache_quota_blocks_total",
		Help: "Total number of upstream calls skipped because the daily budget was exhausted",
	})

	quotaUsageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipecache_quota_usage_total",
		Help: "Total upstream calls recorded against the daily budget by endpoint",
	}, []string{"endpoint"})

	quotaLedgerErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipecache_quota_ledger_errors_total",
		Help: "Total quota ledger store errors (checks fail closed)",
	})
)

// ErrLedgerUnavailable indicates the ledger store could not be reached.
// Checks fail closed on this error: no unmetered upstream calls.
var ErrLedgerUnavailable = errors.New("quota ledger unavailable")

// Redis key layout: one hash per UTC day.
const (
	redisDayPrefix = "quota:day:"
	fieldTotal     = "total"
	endpointPrefix = "endpoint:"
)

// Usage is a snapshot of one day's ledger record.
type Usage struct {
	Day          string         `json:"day"`
	RequestCount int            `json:"requestCount"`
	PerEndpoint  map[string]int `json:"perEndpoint,omitempty"`
	Limit        int            `json:"limit"`
	ResetAt      time.Time      `json:"resetAt"`
}

// Ledger tracks upstream calls spent today against the daily budget.
// The record for a day is created lazily by the first increment; creation
// is idempotent because HINCRBY upserts.
type Ledger struct {
	redis     *redis.Client
	logger    zerolog.Logger
	limit     int
	buffer    int
	retention time.Duration
}

// NewLedger creates a quota ledger. Zero limit, buffer or retention
// select the defaults.
func NewLedger(redisClient *redis.Client, logger zerolog.Logger, limit, buffer int, retention time.Duration) *Ledger {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Ledger{
		redis:     redisClient,
		logger:    logger,
		limit:     limit,
		buffer:    buffer,
		retention: retention,
	}
}

// CheckAllowance reports whether a new upstream call may be made today.
// If the ledger store is unavailable the check fails closed: the returned
// allowance is not-allowed and the error wraps ErrLedgerUnavailable.
func (l *Ledger) CheckAllowance(ctx context.Context) (Allowance, error) {
	now := time.Now()
	day := DayKey(now)

	used, err := l.redis.HGet(ctx, redisDayPrefix+day, fieldTotal).Int()
	if err != nil {
		if err == redis.Nil {
			// No record yet today: nothing spent.
			used = 0
		} else {
			quotaLedgerErrorsTotal.Inc()
			l.logger.Error().Err(err).Str("day", day).Msg("Quota ledger unreachable - failing closed")
			return Allowance{Allowed: false, Limit: l.limit, Day: day, ResetAt: ResetTime(now)},
				fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}
	}

	allowed, remaining := Compute(l.limit, l.buffer, used)
	quotaRemaining.Set(float64(remaining))

	if !allowed {
		quotaBlocksTotal.Inc()
		l.logger.Warn().
			Str("day", day).
			Int("used", used).
			Int("remaining", remaining).
			Int("buffer", l.buffer).
			Msg("Daily quota budget exhausted - upstream calls blocked")
	} else {
		l.logger.Debug().
			Str("day", day).
			Int("used", used).
			Int("remaining", remaining).
			Msg("Quota allowance computed")
	}

	return Allowance{
		Allowed:   allowed,
		Remaining: remaining,
		Used:      used,
		Limit:     l.limit,
		Day:       day,
		ResetAt:   ResetTime(now),
	}, nil
}

// RecordUsage atomically increments today's total and per-endpoint
// counters, creating the day record if absent. HINCRBY keeps concurrent
// increments from losing updates.
func (l *Ledger) RecordUsage(ctx context.Context, endpoint string) error {
	day := DayKey(time.Now())
	key := redisDayPrefix + day

	pipe := l.redis.TxPipeline()
	pipe.HIncrBy(ctx, key, fieldTotal, 1)
	pipe.HIncrBy(ctx, key, endpointPrefix+endpoint, 1)
	pipe.Expire(ctx, key, l.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		quotaLedgerErrorsTotal.Inc()
		return fmt.Errorf("record quota usage: %w", err)
	}

	quotaUsageTotal.WithLabelValues(endpoint).Inc()
	return nil
}

// TodayUsage returns a snapshot of today's ledger record. A day with no
// record yet reports zero usage.
func (l *Ledger) TodayUsage(ctx context.Context) (*Usage, error) {
	now := time.Now()
	day := DayKey(now)

	fields, err := l.redis.HGetAll(ctx, redisDayPrefix+day).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	usage := &Usage{
		Day:         day,
		PerEndpoint: make(map[string]int),
		Limit:       l.limit,
		ResetAt:     ResetTime(now),
	}

	for field, raw := range fields {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse ledger field %s: %w", field, err)
		}
		switch {
		case field == fieldTotal:
			usage.RequestCount = count
		case strings.HasPrefix(field, endpointPrefix):
			usage.PerEndpoint[strings.TrimPrefix(field, endpointPrefix)] = count
		}
	}

	return usage, nil
}
