package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Badges    BadgesConfig    `mapstructure:"badges"`
	Reference ReferenceConfig `mapstructure:"reference"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MatchingConfig holds identity matcher configuration
type MatchingConfig struct {
	MinConfidence      float64 `mapstructure:"min_confidence"`
	MaxCandidates      int     `mapstructure:"max_candidates"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// BadgesConfig holds badge engine configuration
type BadgesConfig struct {
	PriceFreshness  time.Duration `mapstructure:"price_freshness"`
	PoolConcurrency int           `mapstructure:"pool_concurrency"`
}

// ReferenceConfig points at an optional reference dataset overriding the embedded one
type ReferenceConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/suptia/")

	return load(v)
}

// LoadFile loads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	// Environment variable settings, e.g. SUPTIA_SERVER_PORT
	v.SetEnvPrefix("SUPTIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, eris.Wrap(err, "config: decode")
	}

	if err := validate(&config); err != nil {
		return nil, eris.Wrap(err, "config: invalid configuration")
	}

	return &config, nil
}

// loadEnvFile exports ./.env without overriding variables that are already set.
// A missing file is not an error.
func loadEnvFile() error {
	err := gotenv.Load(".env")
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return eris.Wrap(err, "config: load .env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Matching defaults
	v.SetDefault("matching.min_confidence", 0.92)
	v.SetDefault("matching.max_candidates", 200)
	v.SetDefault("matching.enable_debug_logging", false)

	// Badge defaults
	v.SetDefault("badges.price_freshness", "48h")
	v.SetDefault("badges.pool_concurrency", 8)

	// Reference defaults: empty path uses the embedded dataset
	v.SetDefault("reference.path", "")

	// Cache defaults
	v.SetDefault("cache.ttl", "5m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return eris.New("server port is required (set SUPTIA_SERVER_PORT)")
	}

	if config.Matching.MinConfidence <= 0 || config.Matching.MinConfidence > 1 {
		return eris.Errorf("matching min_confidence must be in (0, 1], got: %v", config.Matching.MinConfidence)
	}

	if config.Matching.MaxCandidates < 0 {
		return eris.Errorf("matching max_candidates must not be negative, got: %d", config.Matching.MaxCandidates)
	}

	if config.Badges.PriceFreshness <= 0 {
		return eris.Errorf("badges price_freshness must be positive, got: %s", config.Badges.PriceFreshness)
	}

	if config.Badges.PoolConcurrency <= 0 {
		return eris.Errorf("badges pool_concurrency must be positive, got: %d", config.Badges.PoolConcurrency)
	}

	if config.RateLimit.PerIP <= 0 || config.RateLimit.Burst <= 0 {
		return eris.New("ratelimit per_ip and burst must be positive")
	}

	if config.Log.Format != "json" && config.Log.Format != "console" {
		return eris.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	return nil
}

// serviceName is attached to every log entry
const serviceName = "suptia-decision-engine"

// InitLogger builds the global zap logger from cfg. Every entry carries the service
// name and the deployment environment.
func InitLogger(cfg LogConfig, environment string) error {
	zapCfg, err := loggerConfig(cfg, environment)
	if err != nil {
		return err
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

func loggerConfig(cfg LogConfig, environment string) (zap.Config, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return zap.Config{}, eris.Wrapf(err, "config: parse log level %q", cfg.Level)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	// Sample only in production.
	if environment != "production" {
		zapCfg.Sampling = nil
	}
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.InitialFields = map[string]any{
		"service":     serviceName,
		"environment": environment,
	}

	return zapCfg, nil
}
