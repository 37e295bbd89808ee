package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/logging"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	AuthIssuer       string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience     string        `mapstructure:"AUTH_AUDIENCE"`
	JWTSecretKey     string        `mapstructure:"JWT_SECRET_KEY"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	LogFormat        string        `mapstructure:"LOG_FORMAT"`
	MetricsEnabled   bool          `mapstructure:"METRICS_ENABLED"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	QueryConcurrency int           `mapstructure:"QUERY_CONCURRENCY"`
	ReadSnapshot     bool          `mapstructure:"READ_SNAPSHOT"`
	RefreshEnabled   bool          `mapstructure:"REFRESH_ENABLED"`
	RefreshScripts   string        `mapstructure:"REFRESH_SCRIPTS_DIR"`
	RefreshLockTTL   time.Duration `mapstructure:"REFRESH_LOCK_TTL"`
	TLSEnabled       bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile      string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile       string        `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "JWT_SECRET_KEY", "CORS_ORIGINS",
	"LOG_LEVEL", "LOG_FORMAT", "METRICS_ENABLED", "REQUEST_TIMEOUT",
	"QUERY_CONCURRENCY", "READ_SNAPSHOT",
	"REFRESH_ENABLED", "REFRESH_SCRIPTS_DIR", "REFRESH_LOCK_TTL",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

// Load reads .env (optional) and the environment. Only DATABASE_URL is
// required here; Validate enforces the rest.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("QUERY_CONCURRENCY", 4)
	v.SetDefault("READ_SNAPSHOT", false)
	v.SetDefault("REFRESH_ENABLED", false)
	v.SetDefault("REFRESH_SCRIPTS_DIR", "scripts/performance")
	v.SetDefault("REFRESH_LOCK_TTL", "30m")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	if cfg.LogFormat == "" {
		cfg.LogFormat = logging.FormatJSON
		if cfg.IsDev() {
			cfg.LogFormat = logging.FormatConsole
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
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

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required when ENV=%q", c.Env)
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("LOG_FORMAT must be console, json or ecs, got %q", c.LogFormat)
	}
	if c.QueryConcurrency <= 0 {
		return fmt.Errorf("QUERY_CONCURRENCY must be positive, got %d", c.QueryConcurrency)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RefreshEnabled && c.RefreshLockTTL <= 0 {
		return fmt.Errorf("REFRESH_LOCK_TTL must be positive when REFRESH_ENABLED is true")
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}
	return nil
}
