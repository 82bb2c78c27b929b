package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

type ServerConfig struct {
	Addr            string
	Mode            string // gin mode: debug|release|test
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver string // postgres|mysql|sqlite
	DSN    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	EnableMetrics bool
	EnableTracing bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type PayUConfig struct {
	MerchantKey  string
	MerchantSalt string
	Mode         string // test|live
	BaseURL      string // gateway checkout endpoint
	ResultURL    string // browser result page base for /return redirects
}

type CatalogConfig struct {
	CacheTTL time.Duration
}

type SchedulerConfig struct {
	Interval            time.Duration
	UsageRetentionDays  int
	PlanExpiryGraceDays int
}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	PayU      PayUConfig
	Catalog   CatalogConfig
	Scheduler SchedulerConfig
}

// Load reads configuration from the environment with CREDITGATE_ prefix,
// e.g. CREDITGATE_DATABASE_DSN, CREDITGATE_PAYU_MERCHANT_SALT.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("creditgate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.enable_metrics", false)
	v.SetDefault("database.enable_tracing", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "720h")

	v.SetDefault("payu.merchant_key", "")
	v.SetDefault("payu.merchant_salt", "")
	v.SetDefault("payu.mode", "test")
	v.SetDefault("payu.base_url", "https://test.payu.in/_payment")
	v.SetDefault("payu.result_url", "/billing/result")

	v.SetDefault("catalog.cache_ttl", "60s")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.usage_retention_days", 365)
	v.SetDefault("scheduler.plan_expiry_grace_days", 3)

	cfg := Config{
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			Mode:            v.GetString("server.mode"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			EnableMetrics:   v.GetBool("database.enable_metrics"),
			EnableTracing:   v.GetBool("database.enable_tracing"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
		PayU: PayUConfig{
			MerchantKey:  v.GetString("payu.merchant_key"),
			MerchantSalt: v.GetString("payu.merchant_salt"),
			Mode:         v.GetString("payu.mode"),
			BaseURL:      v.GetString("payu.base_url"),
			ResultURL:    v.GetString("payu.result_url"),
		},
		Catalog: CatalogConfig{
			CacheTTL: v.GetDuration("catalog.cache_ttl"),
		},
		Scheduler: SchedulerConfig{
			Interval:            v.GetDuration("scheduler.interval"),
			UsageRetentionDays:  v.GetInt("scheduler.usage_retention_days"),
			PlanExpiryGraceDays: v.GetInt("scheduler.plan_expiry_grace_days"),
		},
	}
	return cfg, nil
}
