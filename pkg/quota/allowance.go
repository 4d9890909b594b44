// Package quota implements the shared daily upstream-call budget.
// Usage is tracked per UTC calendar day in Redis and shared by every
// orchestrator instance; a fixed reserve buffer keeps the last few calls
// of the budget off the ordinary request path.
package quota

import (
	"time"
)

// Defaults match the upstream provider's free-tier daily ceiling.
const (
	// DefaultDailyLimit is the daily upstream call ceiling.
	DefaultDailyLimit = 150

	// DefaultBuffer is the reserved slack subtracted from the raw
	// remaining quota so the budget is never exactly exhausted.
	DefaultBuffer = 10

	// DefaultRetention is how long per-day ledger records are kept.
	DefaultRetention = 30 * 24 * time.Hour
)

// Allowance is the result of a quota check.
type Allowance struct {
	// Allowed reports whether a new upstream call may be made.
	Allowed bool

	// Remaining is the raw remaining budget (before the buffer).
	Remaining int

	// Used is the number of upstream calls made today.
	Used int

	// Limit is the configured daily ceiling.
	Limit int

	// Day is the UTC day key the allowance applies to.
	Day string

	// ResetAt is the start of the next UTC day.
	ResetAt time.Time
}

// DayKey returns the ledger key for the UTC calendar day containing t.
// Daily rollover is implicit: a new day simply addresses a new record.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ResetTime returns the start of the next UTC day after t.
func ResetTime(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

// Compute derives the allowance from the configured limit and buffer and
// today's usage. Remaining is never negative; a request is allowed iff
// more than the buffer remains.
func Compute(limit, buffer, used int) (allowed bool, remaining int) {
	remaining = limit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining > buffer, remaining
}
