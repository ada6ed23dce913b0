package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Region     RegionConfig     `yaml:"region" mapstructure:"region"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Irradiance IrradianceConfig `yaml:"irradiance" mapstructure:"irradiance"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Vision     VisionConfig     `yaml:"vision" mapstructure:"vision"`
	Finance    FinanceConfig    `yaml:"finance" mapstructure:"finance"`
	Incentives IncentiveConfig  `yaml:"incentives" mapstructure:"incentives"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// RegionConfig identifies the service region appended to geocoding queries.
type RegionConfig struct {
	Code    string `yaml:"code" mapstructure:"code"`
	Country string `yaml:"country" mapstructure:"country"`
}

// GeocodeConfig holds Google Geocoding API settings.
type GeocodeConfig struct {
	GoogleKey   string  `yaml:"google_key" mapstructure:"google_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// IrradianceConfig holds NASA POWER API settings.
type IrradianceConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	LookbackDays int     `yaml:"lookback_days" mapstructure:"lookback_days"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CacheConfig selects the irradiance cache backend.
type CacheConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend"` // "memory" or "redis"
	TTLHours   int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`
	RedisURL   string `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix  string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// VisionConfig configures the roof vision analyzer.
type VisionConfig struct {
	// Mode is "strict" (AI only) or "fallback" (AI, then synthetic estimate).
	Mode string `yaml:"mode" mapstructure:"mode"`

	// Providers is the ordered model chain as "vendor:model" entries.
	Providers []string `yaml:"providers" mapstructure:"providers"`

	AnthropicKey     string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	GeminiKey        string `yaml:"gemini_key" mapstructure:"gemini_key"`
	MaxTokens        int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Seed             uint64 `yaml:"seed" mapstructure:"seed"`
	BreakerThreshold int    `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int    `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// FinanceConfig holds the regional tariff and installation assumptions.
type FinanceConfig struct {
	RatePerKWh           float64 `yaml:"rate_per_kwh" mapstructure:"rate_per_kwh"`
	BasicMonthlyCharge   float64 `yaml:"basic_monthly_charge" mapstructure:"basic_monthly_charge"`
	CostPerWatt          float64 `yaml:"cost_per_watt" mapstructure:"cost_per_watt"`
	PanelWatts           float64 `yaml:"panel_watts" mapstructure:"panel_watts"`
	PanelAreaM2          float64 `yaml:"panel_area_m2" mapstructure:"panel_area_m2"`
	AnnualConsumptionKWh float64 `yaml:"annual_consumption_kwh" mapstructure:"annual_consumption_kwh"`
}

// IncentiveConfig points at an optional incentive catalog override.
type IncentiveConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// RetryConfig controls outbound HTTP retries.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// StoreConfig configures the assessment history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "", "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SOLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("region.code", "PE")
	v.SetDefault("region.country", "ca")
	v.SetDefault("geocode.google_key", "")
	v.SetDefault("geocode.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode.rate_limit", 25)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("irradiance.base_url", "https://power.larc.nasa.gov/api/temporal/daily/point")
	v.SetDefault("irradiance.lookback_days", 366)
	v.SetDefault("irradiance.rate_limit", 5)
	v.SetDefault("irradiance.timeout_secs", 20)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", "solar:irradiance:")
	v.SetDefault("vision.mode", "fallback")
	v.SetDefault("vision.providers", []string{
		"anthropic:claude-sonnet-4-5-20250929",
		"anthropic:claude-haiku-4-5-20251001",
		"gemini:gemini-2.5-flash",
	})
	v.SetDefault("vision.anthropic_key", "")
	v.SetDefault("vision.gemini_key", "")
	v.SetDefault("vision.max_tokens", 1024)
	v.SetDefault("vision.timeout_secs", 45)
	v.SetDefault("vision.seed", 0)
	v.SetDefault("vision.breaker_threshold", 3)
	v.SetDefault("vision.breaker_reset_secs", 60)
	v.SetDefault("finance.rate_per_kwh", 0.18)
	v.SetDefault("finance.basic_monthly_charge", 24.57)
	v.SetDefault("finance.cost_per_watt", 3.00)
	v.SetDefault("finance.panel_watts", 400)
	v.SetDefault("finance.panel_area_m2", 2.0)
	v.SetDefault("finance.annual_consumption_kwh", 7500)
	v.SetDefault("incentives.catalog_path", "")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("store.driver", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Vision.Mode {
	case "strict", "fallback":
	default:
		return eris.Errorf("config: vision.mode must be strict or fallback, got %q", c.Vision.Mode)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return eris.New("config: cache.redis_url is required for the redis backend")
		}
	default:
		return eris.Errorf("config: cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	switch c.Store.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.Errorf("config: store.database_url is required for driver %s", c.Store.Driver)
		}
	default:
		return eris.Errorf("config: store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Finance.RatePerKWh <= 0 {
		return eris.New("config: finance.rate_per_kwh must be positive")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
