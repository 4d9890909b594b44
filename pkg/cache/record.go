package cache

import (
	"time"
)

// Per-kind TTLs. A record is fresh until CreatedAt/UpdatedAt + TTL(kind);
// after that it is stale but still retrievable until purged.
const (
	// TTLSearch is the TTL for free-text search results.
	TTLSearch = 24 * time.Hour

	// TTLRecipe is the TTL for single recipes.
	TTLRecipe = 7 * 24 * time.Hour

	// TTLIngredients is the TTL for ingredient search results.
	TTLIngredients = 2 * time.Hour

	// TTLRandom is the TTL for popular/random recipe lists.
	TTLRandom = 6 * time.Hour

	// DefaultStaleRetention is how long a record remains retrievable as
	// a stale fallback after its TTL elapses.
	DefaultStaleRetention = 7 * 24 * time.Hour
)

// TTL returns the cache TTL for an operation kind.
func TTL(op Operation) time.Duration {
	switch op {
	case OpSearch:
		return TTLSearch
	case OpRecipe:
		return TTLRecipe
	case OpIngredients:
		return TTLIngredients
	case OpRandom:
		return TTLRandom
	default:
		return TTLSearch
	}
}

// Record is a cached response for one entity kind.
type Record struct {
	// Key is the canonical cache key string.
	Key string `json:"key"`

	// Payload is the kind-specific response body.
	Payload []byte `json:"payload"`

	// CreatedAt is when the record was first written.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last overwritten.
	UpdatedAt time.Time `json:"updated_at"`

	// LastAccessedAt is when the record was last read.
	LastAccessedAt time.Time `json:"last_accessed_at"`

	// ExpiresAt is the TTL boundary. Refreshed, not accumulated, on
	// overwrite.
	ExpiresAt time.Time `json:"expires_at"`

	// AccessCount is incremented on every read, monotonic, never reset.
	AccessCount int64 `json:"access_count"`
}

// FreshAt reports whether the record is fresh at the given instant.
func (r *Record) FreshAt(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// IsFresh reports whether the record is fresh now.
func (r *Record) IsFresh() bool {
	return r.FreshAt(time.Now())
}

// RemainingTTL returns the time until the record goes stale.
// Returns 0 if already stale.
func (r *Record) RemainingTTL() time.Duration {
	ttl := time.Until(r.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
