package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/stem-explorer/internal/profile"
	"github.com/kjstillabower/stem-explorer/internal/traffic"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	LogLevel  string
	LogFormat string // "json" or "console"

	RequestTimeout time.Duration

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	UploadMaxBytes        int64
	UploadTTL             time.Duration
	UploadCoalesceTimeout time.Duration

	CacheBackend          string // "in_memory" or "memcached"
	InMemoryMaxEntries    int
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int
	RateLimitBurst int

	HealthWindow         time.Duration
	OverloadThresholdPct int
	DegradedErrorPct     int

	PageTitle string
	Profile   profile.Profile
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Upload struct {
		MaxBytes        int64  `yaml:"max_bytes"`
		TTL             string `yaml:"ttl"`
		CoalesceTimeout string `yaml:"coalesce_timeout"`
	} `yaml:"upload"`

	Cache struct {
		Backend  string `yaml:"backend"`
		InMemory struct {
			MaxEntries int `yaml:"max_entries"`
		} `yaml:"in_memory"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Health struct {
		Window               string `yaml:"window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`

	Page struct {
		Title string `yaml:"title"`
	} `yaml:"page"`

	Profile profile.Profile `yaml:"profile"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) relative to the
// working directory and applies env overrides. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFile(filepath.Join(cwd, "config", env+".yaml"))
}

// LoadFile reads configuration from path and applies env overrides.
func LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = fc.Log.Level
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(fc.Log.Format))
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.UploadMaxBytes = fc.Upload.MaxBytes
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 10 << 20
	}
	cfg.UploadTTL = parseDuration(fc.Upload.TTL, time.Hour)
	cfg.UploadCoalesceTimeout = parseDuration(fc.Upload.CoalesceTimeout, 5*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.InMemoryMaxEntries = fc.Cache.InMemory.MaxEntries
	if cfg.InMemoryMaxEntries <= 0 {
		cfg.InMemoryMaxEntries = 1000
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 5
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}

	cfg.HealthWindow = parseDuration(fc.Health.Window, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Health.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 5
	}

	cfg.PageTitle = strings.TrimSpace(fc.Page.Title)
	if cfg.PageTitle == "" {
		cfg.PageTitle = "Researcher Profile and STEM Data Explorer"
	}
	cfg.Profile = fc.Profile.Merge()

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values. The upload
// cap is lowered to what memcached can hold when that backend is selected.
func validate(cfg *Config) error {
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", cfg.LogFormat)
	}
	if cfg.CacheBackend == "memcached" && cfg.UploadMaxBytes > memcachedItemLimit {
		cfg.UploadMaxBytes = memcachedItemLimit
	}
	if cfg.OverloadThresholdPct > 100 || cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("health thresholds are percentages, got overload %d and degraded %d",
			cfg.OverloadThresholdPct, cfg.DegradedErrorPct)
	}
	if cfg.HealthWindow > traffic.MaxWindow {
		return fmt.Errorf("health.window must be at most %s, got %s", traffic.MaxWindow, cfg.HealthWindow)
	}
	if cfg.ShutdownInFlightCheckInterval > cfg.ShutdownInFlightTimeout {
		cfg.ShutdownInFlightCheckInterval = cfg.ShutdownInFlightTimeout
	}
	return nil
}

// memcachedItemLimit leaves headroom under memcached's 1 MiB item size for the
// header line stored ahead of the raw bytes.
const memcachedItemLimit = 1<<20 - 4<<10
