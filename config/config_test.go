package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Matching.MinConfidence != 0.92 {
			t.Errorf("Matching.MinConfidence = %v, want 0.92", cfg.Matching.MinConfidence)
		}
		if cfg.Matching.MaxCandidates != 200 {
			t.Errorf("Matching.MaxCandidates = %d, want 200", cfg.Matching.MaxCandidates)
		}
		if cfg.Badges.PriceFreshness != 48*time.Hour {
			t.Errorf("Badges.PriceFreshness = %v, want 48h", cfg.Badges.PriceFreshness)
		}
		if cfg.Badges.PoolConcurrency != 8 {
			t.Errorf("Badges.PoolConcurrency = %d, want 8", cfg.Badges.PoolConcurrency)
		}
		if cfg.Reference.Path != "" {
			t.Errorf("Reference.Path = %s, want empty", cfg.Reference.Path)
		}
		if cfg.Cache.TTL != 5*time.Minute {
			t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.Log.Format != "json" {
			t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		t.Setenv("SUPTIA_SERVER_PORT", "9090")
		t.Setenv("SUPTIA_SERVER_ENVIRONMENT", "production")
		t.Setenv("SUPTIA_MATCHING_MIN_CONFIDENCE", "0.95")
		t.Setenv("SUPTIA_MATCHING_ENABLE_DEBUG_LOGGING", "true")
		t.Setenv("SUPTIA_BADGES_PRICE_FRESHNESS", "24h")
		t.Setenv("SUPTIA_REFERENCE_PATH", "/etc/suptia/reference.yaml")
		t.Setenv("SUPTIA_CACHE_TTL", "1h")
		t.Setenv("SUPTIA_RATELIMIT_PER_IP", "200")
		t.Setenv("SUPTIA_LOG_LEVEL", "debug")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Matching.MinConfidence != 0.95 {
			t.Errorf("Matching.MinConfidence = %v, want 0.95", cfg.Matching.MinConfidence)
		}
		if !cfg.Matching.EnableDebugLogging {
			t.Errorf("Matching.EnableDebugLogging = false, want true")
		}
		if cfg.Badges.PriceFreshness != 24*time.Hour {
			t.Errorf("Badges.PriceFreshness = %v, want 24h", cfg.Badges.PriceFreshness)
		}
		if cfg.Reference.Path != "/etc/suptia/reference.yaml" {
			t.Errorf("Reference.Path = %s, want /etc/suptia/reference.yaml", cfg.Reference.Path)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
		}
	})

	t.Run("fails validation for out of range confidence", func(t *testing.T) {
		t.Setenv("SUPTIA_MATCHING_MIN_CONFIDENCE", "92")

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for min_confidence > 1")
		}
	})

	t.Run("fails validation for unknown log format", func(t *testing.T) {
		t.Setenv("SUPTIA_LOG_FORMAT", "xml")

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid log format")
		}
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("reads yaml sections", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
server:
  port: "7070"
  allowed_origins:
    - https://suptia.com
matching:
  max_candidates: 50
badges:
  pool_concurrency: 2
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "7070", cfg.Server.Port)
		assert.Equal(t, []string{"https://suptia.com"}, cfg.Server.AllowedOrigins)
		assert.Equal(t, 50, cfg.Matching.MaxCandidates)
		assert.Equal(t, 2, cfg.Badges.PoolConcurrency)
		assert.Equal(t, 0.92, cfg.Matching.MinConfidence)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		chdir(t, t.TempDir())

		err := loadEnvFile()
		if err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		chdir(t, t.TempDir())

		envContent := `
# Comment line
TEST_VAR_1=value1
   # Indented comment
TEST_VAR_2="quoted value"
export TEST_VAR_3=exported
TEST_VAR_4=plain # trailing comment
TEST_VAR_5="line1\nline2"

# TEST_COMMENTED=should_not_load
`
		require.NoError(t, os.WriteFile(".env", []byte(envContent), 0644))

		keys := []string{"TEST_VAR_1", "TEST_VAR_2", "TEST_VAR_3", "TEST_VAR_4", "TEST_VAR_5", "TEST_COMMENTED"}
		for _, k := range keys {
			os.Unsetenv(k)
		}
		t.Cleanup(func() {
			for _, k := range keys {
				os.Unsetenv(k)
			}
		})

		require.NoError(t, loadEnvFile())

		assert.Equal(t, "value1", os.Getenv("TEST_VAR_1"))
		assert.Equal(t, "quoted value", os.Getenv("TEST_VAR_2"))
		assert.Equal(t, "exported", os.Getenv("TEST_VAR_3"))
		assert.Equal(t, "plain", os.Getenv("TEST_VAR_4"))
		assert.Equal(t, "line1\nline2", os.Getenv("TEST_VAR_5"))
		_, exists := os.LookupEnv("TEST_COMMENTED")
		assert.False(t, exists)
		_, exists = os.LookupEnv("export TEST_VAR_3")
		assert.False(t, exists)
	})

	t.Run("rejects malformed lines", func(t *testing.T) {
		chdir(t, t.TempDir())
		require.NoError(t, os.WriteFile(".env", []byte("not a pair\n"), 0644))

		assert.Error(t, loadEnvFile())
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("TEST_OVERRIDE", "existing-value")

		require.NoError(t, os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644))
		require.NoError(t, loadEnvFile())

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})

	t.Run("feeds Load", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("SUPTIA_SERVER_PORT", "")
		os.Unsetenv("SUPTIA_SERVER_PORT")

		require.NoError(t, os.WriteFile(".env", []byte("SUPTIA_SERVER_PORT=6060\n"), 0644))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "6060", cfg.Server.Port)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			Matching:  MatchingConfig{MinConfidence: 0.92, MaxCandidates: 200},
			Badges:    BadgesConfig{PriceFreshness: 48 * time.Hour, PoolConcurrency: 8},
			RateLimit: RateLimitConfig{PerIP: 100, Burst: 20},
			Log:       LogConfig{Level: "info", Format: "json"},
		}
	}

	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(valid()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"zero confidence", func(c *Config) { c.Matching.MinConfidence = 0 }},
		{"confidence above one", func(c *Config) { c.Matching.MinConfidence = 1.5 }},
		{"negative max candidates", func(c *Config) { c.Matching.MaxCandidates = -1 }},
		{"zero freshness", func(c *Config) { c.Badges.PriceFreshness = 0 }},
		{"zero concurrency", func(c *Config) { c.Badges.PoolConcurrency = 0 }},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }},
		{"unknown log format", func(c *Config) { c.Log.Format = "text" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Errorf("validate() error = nil, want error")
			}
		})
	}
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	t.Run("console format at debug level", func(t *testing.T) {
		require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}, "development"))
		assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))
	})

	t.Run("json format at warn level", func(t *testing.T) {
		require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}, "production"))
		assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}, "production"))
	})
}

func TestLoggerConfig(t *testing.T) {
	t.Run("tags entries with service and environment", func(t *testing.T) {
		cfg, err := loggerConfig(LogConfig{Level: "info", Format: "json"}, "staging")
		require.NoError(t, err)

		assert.Equal(t, "json", cfg.Encoding)
		assert.Equal(t, "suptia-decision-engine", cfg.InitialFields["service"])
		assert.Equal(t, "staging", cfg.InitialFields["environment"])
		assert.Equal(t, "ts", cfg.EncoderConfig.TimeKey)
		assert.Nil(t, cfg.Sampling)
	})

	t.Run("samples in production", func(t *testing.T) {
		cfg, err := loggerConfig(LogConfig{Level: "info", Format: "json"}, "production")
		require.NoError(t, err)
		assert.NotNil(t, cfg.Sampling)
	})

	t.Run("console encoding", func(t *testing.T) {
		cfg, err := loggerConfig(LogConfig{Level: "debug", Format: "console"}, "development")
		require.NoError(t, err)
		assert.Equal(t, "console", cfg.Encoding)
		assert.True(t, cfg.Level.Enabled(zap.DebugLevel))
	})
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
