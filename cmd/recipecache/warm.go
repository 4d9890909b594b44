package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/plateful/recipecache/pkg/cache"
	"github.com/plateful/recipecache/pkg/config"
	"github.com/plateful/recipecache/pkg/orchestrator"
	"github.com/plateful/recipecache/pkg/quota"
	"github.com/plateful/recipecache/pkg/recipe"
	"github.com/plateful/recipecache/pkg/static"
	"github.com/plateful/recipecache/pkg/upstream"
)

func newWarmCmd() *cobra.Command {
	var (
		configPath string
		queries    []string
		popular    int
	)

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Prefetch common queries into the cache within the daily budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runWarm(cmd.Context(), cfg, queries, popular)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringSliceVarP(&queries, "query", "q", nil, "search query to prefetch (repeatable)")
	cmd.Flags().IntVar(&popular, "popular", 10, "number of popular recipes to prefetch (0 to skip)")
	return cmd
}

func runWarm(ctx context.Context, cfg *config.Config, queries []string, popular int) error {
	logger := setupLogger(cfg)

	redisClient := newRedisClient(cfg)
	defer redisClient.Close()

	store := cache.NewStore(redisClient, logger, cfg.Cache.StaleRetention)
	ledger := quota.NewLedger(redisClient, logger, cfg.Quota.DailyLimit, cfg.Quota.Buffer, cfg.Quota.Retention)

	upstreamCfg := upstream.DefaultConfig(cfg.Upstream.APIKey)
	upstreamCfg.BaseURL = cfg.Upstream.BaseURL
	client, err := upstream.New(upstreamCfg)
	if err != nil {
		return err
	}

	dataset, err := static.Load()
	if err != nil {
		return err
	}

	orch := orchestrator.New(store, ledger, client, dataset, logger)
	orch.SetTTLs(cfg.Cache.TTLs())

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	warmed := 0
	for _, query := range queries {
		result, err := orch.Search(ctx, query, recipe.SearchFilters{})
		if err != nil {
			return err
		}
		fmt.Printf("search %q: %s\n", query, result.Source)
		if result.Source == orchestrator.SourceUpstream {
			warmed++
		}
	}

	if popular > 0 {
		result, err := orch.Popular(ctx, recipe.PopularFilters{Number: popular})
		if err != nil {
			return err
		}
		fmt.Printf("popular: %s\n", result.Source)
		if result.Source == orchestrator.SourceUpstream {
			warmed++
		}
	}

	fmt.Printf("warmed %d entries from upstream\n", warmed)
	return nil
}
