// Command recipecache runs the quota-aware recipe cache service and its
// operational subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/plateful/recipecache/pkg/config"
	"github.com/plateful/recipecache/pkg/logging"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "recipecache",
		Short:   "Quota-aware caching layer for a rate-limited recipe API",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newWarmCmd(),
		newStatsCmd(),
		newPurgeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file when one is given, otherwise
// defaults plus environment variables.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		cfg := config.Default()
		cfg.Upstream.APIKey = os.Getenv("RECIPE_API_KEY")
		if addr := os.Getenv("REDIS_ADDR"); addr != "" {
			cfg.Redis.Addr = addr
		}
		return cfg, nil
	}
	return config.Load(configPath)
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	return logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	})
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
