package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"devtools-api/internal/config"
	"devtools-api/internal/exchange"
	"devtools-api/internal/logging"
	"devtools-api/internal/server"
	"devtools-api/middleware/accesslog"
	"devtools-api/middleware/admission/infra"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	creds, err := infra.LoadCredentials(cfg.APIKeys, cfg.APIKeysFile)
	switch {
	case errors.Is(err, infra.ErrNoCredentials):
		logger.Warn().Msg("no API keys configured: every request will be rejected with 401")
	case err != nil:
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var windows *infra.WindowCache
	promStats, err := infra.NewPrometheusStatsStore(reg, func() int { return windows.Len() })
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	windows = infra.NewWindowCache(cfg.ClientCacheSize, cfg.RateLimitWindow, infra.WithEvictHook(promStats.ClientEvicted))

	memStats := infra.NewMemoryStatsStore(infra.WithTrackClients(cfg.Stats.TrackClients))
	stats := infra.StatsFanout{memStats, promStats}

	if cfg.Stats.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Stats.RedisAddr,
			Password: cfg.Stats.RedisPassword,
			DB:       cfg.Stats.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			return fmt.Errorf("redis stats ping: %w", err)
		}

		mirror := infra.NewAsyncStatsStore(
			infra.NewRedisStatsStore(
				rdb,
				infra.WithStatsPrefix(cfg.Stats.Prefix),
				infra.WithStatsTTL(cfg.Stats.TTL),
				infra.WithStatsBucket(cfg.Stats.Bucket),
				infra.WithStatsTrackClients(cfg.Stats.TrackClients),
			),
			infra.WithAsyncErrorHook(func(err error) {
				logger.Warn().Err(err).Msg("redis stats record failed")
			}),
		)
		// roda antes do rdb.Close acima: drena a fila enquanto o Redis ainda está aberto
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mirror.Close(closeCtx); err != nil {
				logger.Warn().Err(err).Int64("dropped", mirror.Dropped()).Msg("redis stats queue not drained")
			}
		}()
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "admission_stats_dropped_total",
			Help: "Admission events not mirrored to Redis because the queue was full.",
		}, func() float64 { return float64(mirror.Dropped()) }))

		stats = append(stats, mirror)
	}

	sink := logging.AccessSink(cfg.AccessLog)
	defer func() { _ = sink.Close() }()
	access := accesslog.New(sink,
		accesslog.WithFormat(cfg.AccessLog.Format),
		accesslog.WithDroppedHook(func(missed int) {
			logger.Warn().Int("missed", missed).Msg("access log lines dropped")
		}),
	)
	defer func() { _ = access.Close() }()

	srv := server.New(cfg, server.Deps{
		Logger:      logger,
		Credentials: creds,
		Windows:     windows,
		Stats:       stats,
		Access:      access,
		Rates:       newExchange(cfg.Exchange, logger),
		Gatherer:    reg,
		Metrics:     reg,
	})

	logger.Info().
		Str("addr", cfg.ListenAddr).
		Int("keys", creds.Len()).
		Int("rate_limit", cfg.RateLimit).
		Dur("window", cfg.RateLimitWindow).
		Int("client_cache_size", cfg.ClientCacheSize).
		Bool("trust_xff", cfg.TrustXFF).
		Msg("admission configured")
	logger.Info().
		Bool("enabled", cfg.Stats.Enabled).
		Str("redis_addr", cfg.Stats.RedisAddr).
		Str("bucket", cfg.Stats.Bucket).
		Str("metrics_addr", cfg.MetricsAddr).
		Msg("stats configured")

	err = srv.Run(ctx)

	total := memStats.Total()
	logger.Info().
		Int64("allowed", total.Allowed).
		Int64("unauthenticated", total.Unauthenticated).
		Int64("rate_limited", total.RateLimited).
		Msg("admission totals")
	return err
}

func newExchange(cfg config.ExchangeConfig, logger zerolog.Logger) *exchange.Client {
	var cache exchange.Cache = exchange.NewMemoryCache(256, cfg.CacheTTL)
	if len(cfg.MemcacheAddrs) > 0 {
		cache = exchange.NewMemcacheCache(memcache.New(cfg.MemcacheAddrs...), cfg.CacheTTL, logger)
	}
	return exchange.New(cfg.BaseURL,
		exchange.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		exchange.WithLimit(cfg.RPS, cfg.Burst),
		exchange.WithCache(cache),
		exchange.WithLogger(logger.With().Str("component", "exchange").Logger()),
	)
}
