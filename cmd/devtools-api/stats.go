package main

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"devtools-api/middleware/admission/infra"
)

func newStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print cumulative admission counters stored in Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if cfg.Stats.RedisAddr == "" {
				return errors.New("RATE_STATS_REDIS_ADDR is required")
			}

			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Stats.RedisAddr,
				Password: cfg.Stats.RedisPassword,
				DB:       cfg.Stats.RedisDB,
			})
			defer func() { _ = rdb.Close() }()

			totals, err := infra.NewRedisStatsStore(rdb, infra.WithStatsPrefix(cfg.Stats.Prefix)).Totals(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "allowed          %d\n", totals.Allowed)
			fmt.Fprintf(out, "unauthenticated  %d\n", totals.Unauthenticated)
			fmt.Fprintf(out, "rate_limited     %d\n", totals.RateLimited)
			return nil
		},
	}
}
