package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plateful/recipecache/pkg/quota"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Listen)
	}
	if cfg.Quota.DailyLimit != quota.DefaultDailyLimit {
		t.Errorf("expected daily limit %d, got %d", quota.DefaultDailyLimit, cfg.Quota.DailyLimit)
	}
	if cfg.Quota.Buffer != quota.DefaultBuffer {
		t.Errorf("expected buffer %d, got %d", quota.DefaultBuffer, cfg.Quota.Buffer)
	}
	if cfg.Cache.SearchTTL != 24*time.Hour {
		t.Errorf("expected 24h search TTL, got %v", cfg.Cache.SearchTTL)
	}
	if cfg.Cache.RecipeTTL != 7*24*time.Hour {
		t.Errorf("expected 7d recipe TTL, got %v", cfg.Cache.RecipeTTL)
	}
	if cfg.Upstream.APIKey != "" {
		t.Errorf("expected no default API key, got %q", cfg.Upstream.APIKey)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_RECIPE_KEY", "key-test-123")

	content := `
listen: ":9090"
redis:
  addr: "redis.internal:6379"
  db: 3
upstream:
  api_key: ${TEST_RECIPE_KEY}
  min_interval: 250ms
quota:
  daily_limit: 300
  buffer: 25
cache:
  ingredients_ttl: 90m
  sweep_interval: 15m
log:
  level: debug
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.Listen)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("unexpected redis addr %s", cfg.Redis.Addr)
	}
	if cfg.Upstream.APIKey != "key-test-123" {
		t.Errorf("env var not expanded: got %s", cfg.Upstream.APIKey)
	}
	if cfg.Upstream.MinInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms min interval, got %v", cfg.Upstream.MinInterval)
	}
	if cfg.Quota.DailyLimit != 300 {
		t.Errorf("expected daily limit 300, got %d", cfg.Quota.DailyLimit)
	}
	if cfg.Cache.IngredientsTTL != 90*time.Minute {
		t.Errorf("expected 90m ingredients TTL, got %v", cfg.Cache.IngredientsTTL)
	}
	// Unset sections keep their defaults.
	if cfg.Cache.SearchTTL != 24*time.Hour {
		t.Errorf("expected default search TTL, got %v", cfg.Cache.SearchTTL)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Errorf("expected default upstream timeout, got %v", cfg.Upstream.Timeout)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) { c.Upstream.APIKey = "k" }, false},
		{"missing api key", func(c *Config) {}, true},
		{"zero daily limit", func(c *Config) {
			c.Upstream.APIKey = "k"
			c.Quota.DailyLimit = 0
		}, true},
		{"negative buffer", func(c *Config) {
			c.Upstream.APIKey = "k"
			c.Quota.Buffer = -1
		}, true},
		{"buffer at limit", func(c *Config) {
			c.Upstream.APIKey = "k"
			c.Quota.Buffer = c.Quota.DailyLimit
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
