package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ORDERDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Upstream UpstreamConfig
	Redis    RedisConfig
	Cache    CacheConfig
	CORS     CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if strings.TrimSpace(cfg.Upstream.BaseURL) == "" {
		return nil, fmt.Errorf("ORDERDESK_UPSTREAM_BASE_URL is required")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERDESK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ORDERDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERDESK_LOG_WARN_STACK" default:"false"`
	// APIToken protects the desk API with a static bearer token. Empty
	// leaves the API open, which is only acceptable in dev.
	APIToken string `envconfig:"ORDERDESK_API_TOKEN"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// UpstreamConfig points at the authoritative ordering backend.
type UpstreamConfig struct {
	BaseURL string        `envconfig:"ORDERDESK_UPSTREAM_BASE_URL"`
	Token   string        `envconfig:"ORDERDESK_UPSTREAM_TOKEN"`
	Timeout time.Duration `envconfig:"ORDERDESK_UPSTREAM_TIMEOUT" default:"10s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERDESK_REDIS_URL"`
	Address      string        `envconfig:"ORDERDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a Redis endpoint was provided at all. The
// reference cache falls back to process memory when it was not.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// CacheConfig controls reference-data staleness windows.
type CacheConfig struct {
	CatalogTTL time.Duration `envconfig:"ORDERDESK_CACHE_CATALOG_TTL" default:"2m"`
	QuoteTTL   time.Duration `envconfig:"ORDERDESK_CACHE_QUOTE_TTL" default:"30s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ORDERDESK_CORS_ORIGINS" default:"http://localhost:3000"`
}
