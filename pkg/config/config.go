// Package config loads service configuration from a YAML file with
// environment variable expansion, so API keys can live in the
// environment (`api_key: ${RECIPE_API_KEY}`) instead of on disk.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plateful/recipecache/pkg/cache"
	"github.com/plateful/recipecache/pkg/quota"
	"github.com/plateful/recipecache/pkg/upstream"
)

// Config holds all recipecache configuration.
type Config struct {
	Listen   string         `yaml:"listen"`
	Redis    RedisConfig    `yaml:"redis"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Quota    QuotaConfig    `yaml:"quota"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// RedisConfig identifies the shared cache and ledger store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// UpstreamConfig configures the third-party recipe API client.
type UpstreamConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	MinInterval time.Duration `yaml:"min_interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// QuotaConfig controls the daily upstream call budget.
type QuotaConfig struct {
	DailyLimit int           `yaml:"daily_limit"`
	Buffer     int           `yaml:"buffer"`
	Retention  time.Duration `yaml:"retention"`
}

// CacheConfig controls per-kind freshness windows and the background
// sweep of long-expired records.
type CacheConfig struct {
	SearchTTL      time.Duration `yaml:"search_ttl"`
	RecipeTTL      time.Duration `yaml:"recipe_ttl"`
	IngredientsTTL time.Duration `yaml:"ingredients_ttl"`
	PopularTTL     time.Duration `yaml:"popular_ttl"`
	StaleRetention time.Duration `yaml:"stale_retention"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
}

// TTLs maps the configured freshness windows onto cache operations.
func (c CacheConfig) TTLs() map[cache.Operation]time.Duration {
	return map[cache.Operation]time.Duration{
		cache.OpSearch:      c.SearchTTL,
		cache.OpRecipe:      c.RecipeTTL,
		cache.OpIngredients: c.IngredientsTTL,
		cache.OpRandom:      c.PopularTTL,
	}
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns a Config with sensible defaults. The upstream API key
// has no default and must come from the file or environment.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Upstream: UpstreamConfig{
			BaseURL:     upstream.DefaultBaseURL,
			UserAgent:   "recipecache/0.1.0",
			Timeout:     10 * time.Second,
			MinInterval: 500 * time.Millisecond,
			MaxAttempts: 3,
		},
		Quota: QuotaConfig{
			DailyLimit: quota.DefaultDailyLimit,
			Buffer:     quota.DefaultBuffer,
			Retention:  quota.DefaultRetention,
		},
		Cache: CacheConfig{
			SearchTTL:      cache.TTLSearch,
			RecipeTTL:      cache.TTLRecipe,
			IngredientsTTL: cache.TTLIngredients,
			PopularTTL:     cache.TTLRandom,
			StaleRetention: cache.DefaultStaleRetention,
			SweepInterval:  time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings a running service cannot do without.
func (c *Config) Validate() error {
	if c.Upstream.APIKey == "" {
		return fmt.Errorf("upstream.api_key is required (set RECIPE_API_KEY)")
	}
	if c.Quota.DailyLimit <= 0 {
		return fmt.Errorf("quota.daily_limit must be positive, got %d", c.Quota.DailyLimit)
	}
	if c.Quota.Buffer < 0 {
		return fmt.Errorf("quota.buffer cannot be negative, got %d", c.Quota.Buffer)
	}
	if c.Quota.Buffer >= c.Quota.DailyLimit {
		return fmt.Errorf("quota.buffer (%d) must be below quota.daily_limit (%d)", c.Quota.Buffer, c.Quota.DailyLimit)
	}
	return nil
}
