package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/plateful/recipecache/pkg/api"
	"github.com/plateful/recipecache/pkg/cache"
	"github.com/plateful/recipecache/pkg/config"
	"github.com/plateful/recipecache/pkg/orchestrator"
	"github.com/plateful/recipecache/pkg/quota"
	"github.com/plateful/recipecache/pkg/static"
	"github.com/plateful/recipecache/pkg/upstream"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recipe cache HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func runServe(cfg *config.Config) error {
	logger := setupLogger(cfg)

	redisClient := newRedisClient(cfg)
	defer redisClient.Close()

	store := cache.NewStore(redisClient, logger, cfg.Cache.StaleRetention)
	ledger := quota.NewLedger(redisClient, logger, cfg.Quota.DailyLimit, cfg.Quota.Buffer, cfg.Quota.Retention)

	upstreamCfg := upstream.DefaultConfig(cfg.Upstream.APIKey)
	upstreamCfg.BaseURL = cfg.Upstream.BaseURL
	if cfg.Upstream.UserAgent != "" {
		upstreamCfg.UserAgent = cfg.Upstream.UserAgent
	}
	upstreamCfg.Timeout = cfg.Upstream.Timeout
	upstreamCfg.MinInterval = cfg.Upstream.MinInterval
	if cfg.Upstream.MaxAttempts > 0 {
		upstreamCfg.Retry.MaxAttempts = cfg.Upstream.MaxAttempts
	}
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

	ping := func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}
	server := api.NewServer(orch, ledger, ping, logger)

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runSweeper(ctx, store, cfg.Cache.SweepInterval, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Listen).
			Int("daily_limit", cfg.Quota.DailyLimit).
			Int("buffer", cfg.Quota.Buffer).
			Int("static_recipes", dataset.Len()).
			Msg("Starting recipe cache server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// runSweeper periodically removes records past their stale retention
// window. Purely hygienic; reads never see swept records anyway.
func runSweeper(ctx context.Context, store *cache.Store, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			purged, err := store.PurgeExpired(sweepCtx)
			cancel()
			if err != nil {
				logger.Warn().Err(err).Msg("Cache sweep failed")
				continue
			}
			if purged > 0 {
				logger.Info().Int("purged", purged).Msg("Cache sweep completed")
			}
		}
	}
}
