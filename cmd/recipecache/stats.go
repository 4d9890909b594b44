package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/plateful/recipecache/pkg/config"
	"github.com/plateful/recipecache/pkg/quota"
)

func newStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show today's upstream quota usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runStats(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func runStats(ctx context.Context, cfg *config.Config) error {
	logger := setupLogger(cfg)

	redisClient := newRedisClient(cfg)
	defer redisClient.Close()

	ledger := quota.NewLedger(redisClient, logger, cfg.Quota.DailyLimit, cfg.Quota.Buffer, cfg.Quota.Retention)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	usage, err := ledger.TodayUsage(ctx)
	if err != nil {
		return err
	}

	allowed, remaining := quota.Compute(cfg.Quota.DailyLimit, cfg.Quota.Buffer, usage.RequestCount)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Day\t%s\n", usage.Day)
	fmt.Fprintf(w, "Used\t%d / %d\n", usage.RequestCount, usage.Limit)
	fmt.Fprintf(w, "Remaining\t%d (buffer %d)\n", remaining, cfg.Quota.Buffer)
	fmt.Fprintf(w, "Upstream calls allowed\t%t\n", allowed)
	fmt.Fprintf(w, "Resets at\t%s\n", usage.ResetAt.Format(time.RFC3339))
	if err := w.Flush(); err != nil {
		return err
	}

	if len(usage.PerEndpoint) == 0 {
		return nil
	}

	endpoints := make([]string, 0, len(usage.PerEndpoint))
	for endpoint := range usage.PerEndpoint {
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENDPOINT\tCALLS")
	for _, endpoint := range endpoints {
		fmt.Fprintf(w, "%s\t%d\n", endpoint, usage.PerEndpoint[endpoint])
	}
	return w.Flush()
}
