// Package config loads service configuration from defaults, a .env file,
// an optional YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alex-user-go/hotelsearch/internal/search/store"
)

// Config is the full service configuration.
type Config struct {
	Addr      string          `yaml:"addr" validate:"required"`
	LogLevel  string          `yaml:"log_level" validate:"oneof=debug info warn error"`
	Remote    RemoteConfig    `yaml:"remote"`
	Search    store.Config    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RemoteConfig describes the remote hotel API endpoints.
type RemoteConfig struct {
	BaseURLs []string      `yaml:"base_urls" validate:"min=1,dive,url"`
	TenantID string        `yaml:"tenant_id"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
}

// CacheConfig controls the hotel search cache. A zero TTL disables it.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" validate:"gte=0"`
}

type SessionConfig struct {
	IdleTTL time.Duration `yaml:"idle_ttl" validate:"gt=0"`
}

// RateLimitConfig allows Requests per Window and client IP.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" validate:"gte=0"`
	Window   time.Duration `yaml:"window" validate:"gt=0"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Remote: RemoteConfig{
			BaseURLs: []string{"http://localhost:9001/hotels"},
			Timeout:  5 * time.Second,
		},
		Search: store.DefaultConfig(),
		Cache:  CacheConfig{TTL: 30 * time.Second},
		Session: SessionConfig{
			IdleTTL: 30 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Requests: 60,
			Window:   time.Minute,
		},
	}
}

// Load builds the configuration. path may be empty; a missing file or .env
// is not an error.
func Load(path string) (Config, error) {
	// Start with defaults
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	// Load from file if specified
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	// Override from environment variables
	if err := loadEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // File doesn't exist, use defaults
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("HOTELSEARCH_ADDR", &cfg.Addr)
	str("LOG_LEVEL", &cfg.LogLevel)
	if v := os.Getenv("REMOTE_BASE_URLS"); v != "" {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		cfg.Remote.BaseURLs = urls
	}
	str("REMOTE_TENANT_ID", &cfg.Remote.TenantID)
	dur("REMOTE_TIMEOUT", &cfg.Remote.Timeout)
	dur("SEARCH_DEBOUNCE", &cfg.Search.Debounce)
	dur("SEARCH_FETCH_TIMEOUT", &cfg.Search.FetchTimeout)
	if v := os.Getenv("SEARCH_DISCARD_STALE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SEARCH_DISCARD_STALE: %w", err))
		} else {
			cfg.Search.DiscardStale = b
		}
	}
	dur("CACHE_TTL", &cfg.Cache.TTL)
	dur("SESSION_IDLE_TTL", &cfg.Session.IdleTTL)
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_REQUESTS: %w", err))
		} else {
			cfg.RateLimit.Requests = n
		}
	}
	dur("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)

	return errors.Join(errs...)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// SlogLevel returns LogLevel as a slog.Level.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
