package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewLedger_Defaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ledger := NewLedger(client, zerolog.Nop(), 0, 0, 0)
	if ledger.limit != DefaultDailyLimit {
		t.Errorf("limit = %d, want %d", ledger.limit, DefaultDailyLimit)
	}
	if ledger.buffer != DefaultBuffer {
		t.Errorf("buffer = %d, want %d", ledger.buffer, DefaultBuffer)
	}
	if ledger.retention != DefaultRetention {
		t.Errorf("retention = %v, want %v", ledger.retention, DefaultRetention)
	}
}

func TestLedger_CheckAllowance_LazyDay(t *testing.T) {
	client := setupTestRedis(t)
	ledger := NewLedger(client, zerolog.Nop(), 150, 10, time.Hour)

	// No record exists yet for today.
	allowance, err := ledger.CheckAllowance(context.Background())
	if err != nil {
		t.Fatalf("CheckAllowance failed: %v", err)
	}
	if !allowance.Allowed {
		t.Error("fresh day should be allowed")
	}
	if allowance.Remaining != 150 {
		t.Errorf("remaining = %d, want 150", allowance.Remaining)
	}
	if allowance.Day != DayKey(time.Now()) {
		t.Errorf("day = %s, want today", allowance.Day)
	}
}

func TestLedger_RecordUsageAndCheck(t *testing.T) {
	client := setupTestRedis(t)
	ledger := NewLedger(client, zerolog.Nop(), 150, 10, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := ledger.RecordUsage(ctx, "search"); err != nil {
			t.Fatalf("RecordUsage failed: %v", err)
		}
	}
	if err := ledger.RecordUsage(ctx, "recipe"); err != nil {
		t.Fatalf("RecordUsage failed: %v", err)
	}

	allowance, err := ledger.CheckAllowance(ctx)
	if err != nil {
		t.Fatalf("CheckAllowance failed: %v", err)
	}
	if allowance.Used != 4 {
		t.Errorf("used = %d, want 4", allowance.Used)
	}
	if allowance.Remaining != 146 {
		t.Errorf("remaining = %d, want 146", allowance.Remaining)
	}

	usage, err := ledger.TodayUsage(ctx)
	if err != nil {
		t.Fatalf("TodayUsage failed: %v", err)
	}
	if usage.RequestCount != 4 {
		t.Errorf("request count = %d, want 4", usage.RequestCount)
	}
	if usage.PerEndpoint["search"] != 3 || usage.PerEndpoint["recipe"] != 1 {
		t.Errorf("per-endpoint counts = %v", usage.PerEndpoint)
	}

	// Invariant: total equals the sum of per-endpoint counts.
	sum := 0
	for _, count := range usage.PerEndpoint {
		sum += count
	}
	if sum != usage.RequestCount {
		t.Errorf("per-endpoint sum %d != total %d", sum, usage.RequestCount)
	}
}

// TestLedger_ConcurrentRecordUsage verifies no lost increments: N
// concurrent RecordUsage calls yield exactly N.
func TestLedger_ConcurrentRecordUsage(t *testing.T) {
	client := setupTestRedis(t)
	ledger := NewLedger(client, zerolog.Nop(), 1000, 10, time.Hour)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if err := ledger.RecordUsage(ctx, "search"); err != nil {
				t.Errorf("RecordUsage failed: %v", err)
			}
		}()
	}
	wg.Wait()

	usage, err := ledger.TodayUsage(ctx)
	if err != nil {
		t.Fatalf("TodayUsage failed: %v", err)
	}
	if usage.RequestCount != n {
		t.Errorf("request count = %d, want %d (lost increments)", usage.RequestCount, n)
	}
}

func TestLedger_AllowanceBoundaryAgainstStore(t *testing.T) {
	client := setupTestRedis(t)
	ledger := NewLedger(client, zerolog.Nop(), 150, 10, time.Hour)
	ctx := context.Background()

	// Seed today's record directly at the boundary.
	day := DayKey(time.Now())
	if err := client.HSet(ctx, redisDayPrefix+day, fieldTotal, 139).Err(); err != nil {
		t.Fatalf("Failed to seed ledger: %v", err)
	}

	allowance, err := ledger.CheckAllowance(ctx)
	if err != nil {
		t.Fatalf("CheckAllowance failed: %v", err)
	}
	if !allowance.Allowed {
		t.Error("used=139 should still be allowed")
	}

	if err := client.HSet(ctx, redisDayPrefix+day, fieldTotal, 140).Err(); err != nil {
		t.Fatalf("Failed to seed ledger: %v", err)
	}

	allowance, err = ledger.CheckAllowance(ctx)
	if err != nil {
		t.Fatalf("CheckAllowance failed: %v", err)
	}
	if allowance.Allowed {
		t.Error("used=140 should be denied (buffer reached)")
	}
}

// TestLedger_FailClosed verifies an unreachable store denies allowance
// instead of silently permitting unmetered calls.
func TestLedger_FailClosed(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1", // nothing listens here
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	ledger := NewLedger(client, zerolog.Nop(), 150, 10, time.Hour)

	allowance, err := ledger.CheckAllowance(context.Background())
	if err == nil {
		t.Fatal("expected error from unreachable store")
	}
	if allowance.Allowed {
		t.Error("unreachable store must fail closed")
	}
}
