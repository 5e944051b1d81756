// Package config lê a configuração do processo: defaults, arquivo YAML opcional,
// .env opcional e variáveis de ambiente (nessa ordem de precedência crescente).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr string

	APIKeys     []string
	APIKeysFile string

	RateLimit           int
	RateLimitWindow     time.Duration
	ClientCacheSize     int
	ClientKeyHeader     string
	TrustXFF            bool
	AddRateLimitHeaders bool

	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration

	LogLevel  string
	LogFormat string
	AccessLog AccessLogConfig

	Stats       StatsConfig
	MetricsAddr string

	Exchange ExchangeConfig

	ShutdownTimeout time.Duration
}

type AccessLogConfig struct {
	File       string
	Format     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type StatsConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	TTL           time.Duration
	Bucket        string
	TrackClients  bool
}

type ExchangeConfig struct {
	BaseURL       string
	CacheTTL      time.Duration
	Timeout       time.Duration
	RPS           float64
	Burst         int
	MemcacheAddrs []string
}

// LoadOptions aponta arquivos opcionais. Caminho vazio desliga o arquivo.
type LoadOptions struct {
	ConfigFile string
	EnvFile    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("api_keys", "")
	v.SetDefault("api_keys_file", "")

	v.SetDefault("rate_limit", 100)
	v.SetDefault("rate_limit_window", 60)
	v.SetDefault("client_cache_size", 10000)
	v.SetDefault("client_key_header", "")
	v.SetDefault("trust_xff", false)
	v.SetDefault("add_ratelimit_headers", false)

	v.SetDefault("concurrency_max", 100)
	v.SetDefault("concurrency_timeout", "0s")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("access_log_file", "")
	v.SetDefault("access_log_format", "text")
	v.SetDefault("access_log_max_size_mb", 100)
	v.SetDefault("access_log_max_backups", 5)
	v.SetDefault("access_log_max_age_days", 30)

	v.SetDefault("rate_stats_enabled", false)
	v.SetDefault("rate_stats_redis_addr", "")
	v.SetDefault("rate_stats_redis_password", "")
	v.SetDefault("rate_stats_redis_db", 0)
	v.SetDefault("rate_stats_prefix", "admission:stats")
	v.SetDefault("rate_stats_ttl", "24h")
	v.SetDefault("rate_stats_bucket", "minute")
	v.SetDefault("rate_stats_track_clients", false)

	v.SetDefault("metrics_addr", "")

	v.SetDefault("exchange_base_url", "https://api.frankfurter.app/latest")
	v.SetDefault("exchange_cache_ttl", "1h")
	v.SetDefault("exchange_timeout", "5s")
	v.SetDefault("exchange_rps", 5)
	v.SetDefault("exchange_burst", 5)
	v.SetDefault("exchange_memcache_addrs", "")

	v.SetDefault("shutdown_timeout", "10s")
}

// Load monta a configuração e valida.
func Load(opts LoadOptions) (Config, error) {
	if opts.EnvFile != "" {
		// .env não sobrescreve variáveis já exportadas
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", opts.ConfigFile, err)
		}
	}

	cfg := Config{
		ListenAddr:  v.GetString("listen_addr"),
		APIKeys:     splitList(v.GetString("api_keys")),
		APIKeysFile: v.GetString("api_keys_file"),

		RateLimit:           v.GetInt("rate_limit"),
		RateLimitWindow:     time.Duration(v.GetInt("rate_limit_window")) * time.Second,
		ClientCacheSize:     v.GetInt("client_cache_size"),
		ClientKeyHeader:     v.GetString("client_key_header"),
		TrustXFF:            v.GetBool("trust_xff"),
		AddRateLimitHeaders: v.GetBool("add_ratelimit_headers"),

		ConcurrencyMax:     v.GetInt("concurrency_max"),
		ConcurrencyTimeout: v.GetDuration("concurrency_timeout"),

		LogLevel:  strings.ToLower(v.GetString("log_level")),
		LogFormat: strings.ToLower(v.GetString("log_format")),
		AccessLog: AccessLogConfig{
			File:       v.GetString("access_log_file"),
			Format:     strings.ToLower(v.GetString("access_log_format")),
			MaxSizeMB:  v.GetInt("access_log_max_size_mb"),
			MaxBackups: v.GetInt("access_log_max_backups"),
			MaxAgeDays: v.GetInt("access_log_max_age_days"),
		},

		Stats: StatsConfig{
			Enabled:       v.GetBool("rate_stats_enabled"),
			RedisAddr:     strings.TrimSpace(v.GetString("rate_stats_redis_addr")),
			RedisPassword: v.GetString("rate_stats_redis_password"),
			RedisDB:       v.GetInt("rate_stats_redis_db"),
			Prefix:        v.GetString("rate_stats_prefix"),
			TTL:           v.GetDuration("rate_stats_ttl"),
			Bucket:        strings.ToLower(v.GetString("rate_stats_bucket")),
			TrackClients:  v.GetBool("rate_stats_track_clients"),
		},
		MetricsAddr: v.GetString("metrics_addr"),

		Exchange: ExchangeConfig{
			BaseURL:       v.GetString("exchange_base_url"),
			CacheTTL:      v.GetDuration("exchange_cache_ttl"),
			Timeout:       v.GetDuration("exchange_timeout"),
			RPS:           v.GetFloat64("exchange_rps"),
			Burst:         v.GetInt("exchange_burst"),
			MemcacheAddrs: splitList(v.GetString("exchange_memcache_addrs")),
		},

		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate confere os limites. Erros citam o nome da variável de ambiente.
func (c Config) Validate() error {
	if c.RateLimit <= 0 {
		return errors.New("RATE_LIMIT must be > 0")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ClientCacheSize <= 0 {
		return errors.New("CLIENT_CACHE_SIZE must be > 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	switch c.AccessLog.Format {
	case "text", "json":
	default:
		return fmt.Errorf("ACCESS_LOG_FORMAT must be text or json, got %q", c.AccessLog.Format)
	}
	if c.Stats.Enabled && c.Stats.RedisAddr == "" {
		return errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	switch c.Stats.Bucket {
	case "minute", "none":
	default:
		return fmt.Errorf("RATE_STATS_BUCKET must be minute or none, got %q", c.Stats.Bucket)
	}
	if c.Exchange.Timeout <= 0 {
		return errors.New("EXCHANGE_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
