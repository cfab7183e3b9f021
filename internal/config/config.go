package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogMode   string `env:"LOG_MODE" envDefault:"production"`
	AuthToken string `env:"AUTH_TOKEN"`

	DBURL             string `env:"DB_URL"`
	DBMaxConns        int    `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns        int    `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxIdleSecs     int    `env:"DB_MAX_CONN_IDLE_SECS" envDefault:"300"`
	DBMaxLifeSecs     int    `env:"DB_MAX_CONN_LIFETIME_SECS" envDefault:"3600"`
	DBConnTimeoutSecs int    `env:"DB_CONN_TIMEOUT_SECS" envDefault:"10"`

	// RedisAddr may be left empty, in which case the process falls back to
	// the in-process cache. Correctness never depends on the cache.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	CacheTTLSecs  int    `env:"CACHE_TTL_SECS" envDefault:"3600"`

	NutritionURL         string `env:"NUTRITION_URL"`
	NutritionAPIKey      string `env:"NUTRITION_API_KEY"`
	NutritionTimeoutSecs int    `env:"NUTRITION_TIMEOUT_SECS" envDefault:"5"`

	RatingRetryMax int `env:"RATING_RETRY_MAX" envDefault:"3"`

	ReadTimeoutSecs  int `env:"SERVER_READ_TIMEOUT" envDefault:"15"`
	WriteTimeoutSecs int `env:"SERVER_WRITE_TIMEOUT" envDefault:"15"`
	IdleTimeoutSecs  int `env:"SERVER_IDLE_TIMEOUT" envDefault:"60"`
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.AuthToken == "" {
		return Config{}, fmt.Errorf("AUTH_TOKEN is required")
	}
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.CacheTTLSecs <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL_SECS must be positive")
	}
	if cfg.RatingRetryMax < 0 {
		return Config{}, fmt.Errorf("RATING_RETRY_MAX must be non-negative")
	}
	if cfg.NutritionURL != "" && cfg.NutritionTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("NUTRITION_TIMEOUT_SECS must be positive")
	}

	return cfg, nil
}
