package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/plateful/recipecache/pkg/cache"
	"github.com/plateful/recipecache/pkg/config"
)

func newPurgeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove cache records past their stale retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runPurge(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func runPurge(ctx context.Context, cfg *config.Config) error {
	logger := setupLogger(cfg)

	redisClient := newRedisClient(cfg)
	defer redisClient.Close()

	store := cache.NewStore(redisClient, logger, cfg.Cache.StaleRetention)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	purged, err := store.PurgeExpired(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("purged %d records\n", purged)
	return nil
}
