package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	// (or, for GetFresh, that the record has gone stale).
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidRecord indicates the cache record is invalid or corrupted.
	ErrInvalidRecord = errors.New("invalid cache record")
)

// redisNamespace prefixes all cache record keys in Redis so the expiry
// sweep can enumerate them without touching the quota ledger.
const redisNamespace = "cache:"

// Hash field names of a stored record.
const (
	fieldPayload        = "payload"
	fieldCreatedAt      = "created_at"
	fieldUpdatedAt      = "updated_at"
	fieldLastAccessedAt = "last_accessed_at"
	fieldExpiresAt      = "expires_at"
	fieldAccessCount    = "access_count"
)

// Store is the Redis-backed cache store. It is generic over entity kind:
// the kind lives in the key prefix and the TTL passed to Upsert.
type Store struct {
	redis          *redis.Client
	logger         zerolog.Logger
	staleRetention time.Duration
}

// NewStore creates a cache store. staleRetention controls how long stale
// records remain retrievable past their TTL; zero selects the default.
func NewStore(redisClient *redis.Client, logger zerolog.Logger, staleRetention time.Duration) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if staleRetention <= 0 {
		staleRetention = DefaultStaleRetention
	}
	return &Store{
		redis:          redisClient,
		logger:         logger,
		staleRetention: staleRetention,
	}
}

// GetFresh returns the record only if its TTL has not elapsed.
// Returns ErrCacheMiss for absent or stale records.
func (s *Store) GetFresh(ctx context.Context, key Key) (*Record, error) {
	record, err := s.load(ctx, key.String())
	if err != nil {
		return nil, err
	}

	if !record.FreshAt(time.Now()) {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("fresh").Inc()
	return record, nil
}

// GetStale returns the record regardless of expiry, or ErrCacheMiss if it
// never existed (or was purged). Used only as a degraded fallback step.
func (s *Store) GetStale(ctx context.Context, key Key) (*Record, error) {
	record, err := s.load(ctx, key.String())
	if err != nil {
		return nil, err
	}

	CacheHits.WithLabelValues("stale").Inc()
	return record, nil
}

// Upsert writes or overwrites the record. The expiry is refreshed to
// now + ttl, never accumulated. The Redis key outlives the logical TTL
// by the stale retention window so GetStale keeps working.
func (s *Store) Upsert(ctx context.Context, key Key, payload []byte, ttl time.Duration) error {
	if len(payload) == 0 {
		return fmt.Errorf("cache payload cannot be empty")
	}
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive (got %s)", ttl)
	}

	now := time.Now()
	redisKey := redisNamespace + key.String()

	pipe := s.redis.TxPipeline()
	pipe.HSetNX(ctx, redisKey, fieldCreatedAt, now.Unix())
	pipe.HSet(ctx, redisKey, map[string]interface{}{
		fieldPayload:   payload,
		fieldUpdatedAt: now.Unix(),
		fieldExpiresAt: now.Add(ttl).Unix(),
	})
	pipe.Expire(ctx, redisKey, ttl+s.staleRetention)

	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues("upsert").Inc()
		return fmt.Errorf("redis upsert: %w", err)
	}

	return nil
}

// TouchAccess increments the record's access count and stamps the last
// access time. Failures here must never fail the overall request; the
// caller logs and moves on.
func (s *Store) TouchAccess(ctx context.Context, key Key) error {
	redisKey := redisNamespace + key.String()

	pipe := s.redis.TxPipeline()
	pipe.HIncrBy(ctx, redisKey, fieldAccessCount, 1)
	pipe.HSet(ctx, redisKey, fieldLastAccessedAt, time.Now().Unix())

	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues("touch").Inc()
		return fmt.Errorf("redis touch: %w", err)
	}

	return nil
}

// PurgeExpired deletes records across all kinds whose logical expiry is
// older than the stale retention window. Redis key expiry acts as the
// backstop; this sweep reclaims records eagerly and reports how many it
// removed. Intended to run periodically, not on the request path.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.staleRetention).Unix()
	purged := 0

	iter := s.redis.Scan(ctx, 0, redisNamespace+"*", 100).Iterator()
	for iter.Next(ctx) {
		redisKey := iter.Val()

		expiresAt, err := s.redis.HGet(ctx, redisKey, fieldExpiresAt).Int64()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			CacheErrors.WithLabelValues("purge").Inc()
			return purged, fmt.Errorf("redis hget expires_at: %w", err)
		}

		if expiresAt >= cutoff {
			continue
		}

		if err := s.redis.Del(ctx, redisKey).Err(); err != nil {
			CacheErrors.WithLabelValues("purge").Inc()
			return purged, fmt.Errorf("redis del: %w", err)
		}
		purged++
		CachePurged.Inc()
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("purge").Inc()
		return purged, fmt.Errorf("redis scan: %w", err)
	}

	if purged > 0 {
		s.logger.Info().Int("purged", purged).Msg("Expiry sweep removed stale cache records")
	}

	return purged, nil
}

// Delete removes a cache record (explicit invalidation).
func (s *Store) Delete(ctx context.Context, key Key) error {
	if err := s.redis.Del(ctx, redisNamespace+key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// load fetches and decodes a record hash. Returns ErrCacheMiss for keys
// that do not exist.
func (s *Store) load(ctx context.Context, key string) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, redisNamespace+key).Result()
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	// HGETALL returns an empty map for missing keys.
	if len(fields) == 0 {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	record := &Record{
		Key:     key,
		Payload: []byte(fields[fieldPayload]),
	}

	record.CreatedAt, err = parseUnixField(fields, fieldCreatedAt)
	if err != nil {
		return nil, err
	}
	record.UpdatedAt, err = parseUnixField(fields, fieldUpdatedAt)
	if err != nil {
		return nil, err
	}
	record.ExpiresAt, err = parseUnixField(fields, fieldExpiresAt)
	if err != nil {
		return nil, err
	}

	// Access metadata is written lazily by TouchAccess and may be absent.
	if raw, ok := fields[fieldLastAccessedAt]; ok {
		record.LastAccessedAt, err = parseUnix(raw)
		if err != nil {
			return nil, err
		}
	}
	if raw, ok := fields[fieldAccessCount]; ok {
		record.AccessCount, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: access_count %q", ErrInvalidRecord, raw)
		}
	}

	return record, nil
}

func parseUnixField(fields map[string]string, name string) (time.Time, error) {
	raw, ok := fields[name]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: missing field %s", ErrInvalidRecord, name)
	}
	return parseUnix(raw)
}

func parseUnix(raw string) (time.Time, error) {
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidRecord, raw)
	}
	return time.Unix(sec, 0), nil
}
