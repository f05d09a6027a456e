package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const DefaultLineAPIURL = "https://api.line.me/v2/bot/message/broadcast"

type Config struct {
	AppEnv          string `env:"APP_ENV" default:"development"`
	Port            string `env:"PORT" default:"8000"`
	DatabaseURL     string `env:"DATABASE_URL"`
	RedisURL        string `env:"REDIS_URL"`
	LineAccessToken string `env:"LINE_ACCESS_TOKEN"`
	LineAPIURL      string `env:"LINE_API_URL" default:"https://api.line.me/v2/bot/message/broadcast"`
	DashboardURL    string `env:"DASHBOARD_URL" default:"https://ham.refty.tech/counter"`
	Timezone        string `env:"TIMEZONE" default:"Asia/Tokyo"`
	AllowedOrigins  string `env:"ALLOWED_ORIGINS" default:"*"`
	LogLevel        string `env:"LOG_LEVEL" default:"info"`
	LogFormat       string `env:"LOG_FORMAT" default:"text"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"1000"`
	PostRateLimit           float64 `env:"POST_RATE_LIMIT" default:"20"`
	PostRateBurst           int     `env:"POST_RATE_BURST" default:"40"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" default:"1500ms"`
	AlertGap          time.Duration `env:"ALERT_GAP" default:"10m"`
	CountCacheTTL     time.Duration `env:"COUNT_CACHE_TTL" default:"1s"`

	location *time.Location
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Location returns the timezone used for day boundaries.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// AlertsEnabled reports whether a LINE token is configured.
func (c *Config) AlertsEnabled() bool {
	return c.LineAccessToken != ""
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE %q is not a valid location: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	durations := map[string]time.Duration{
		"HEARTBEAT_INTERVAL": cfg.HeartbeatInterval,
		"ALERT_GAP":          cfg.AlertGap,
		"COUNT_CACHE_TTL":    cfg.CountCacheTTL,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if cfg.MaxWebSocketConnections < 1 {
		return fmt.Errorf("MAX_WEBSOCKET_CONNECTIONS must be at least 1, got %d", cfg.MaxWebSocketConnections)
	}
	if cfg.PostRateLimit <= 0 || cfg.PostRateBurst < 1 {
		return errors.New("POST_RATE_LIMIT and POST_RATE_BURST must be positive")
	}

	if _, err := url.ParseRequestURI(cfg.LineAPIURL); err != nil {
		return fmt.Errorf("LINE_API_URL must be a valid URL: %w", err)
	}

	if cfg.AppEnv == "production" {
		for _, mode := range []string{"sslmode=disable", "sslmode=allow"} {
			if strings.Contains(cfg.DatabaseURL, mode) {
				return fmt.Errorf("DATABASE_URL must not use %s in production", mode)
			}
		}
	}

	return nil
}
