// SPDX-License-Identifier: MIT

// Package config loads daemon configuration with precedence ENV > file > defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full daemon configuration.
type Config struct {
	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`
	Version    string `yaml:"-"`

	ListenAddr     string `yaml:"listenAddr"`
	DataDir        string `yaml:"dataDir"`
	APIToken       string `yaml:"apiToken"`
	TrustedProxies string `yaml:"trustedProxies"`
	RateLimitRPM   int    `yaml:"rateLimitRPM"`

	Upstream Upstream `yaml:"upstream"`
	Catalog  Catalog  `yaml:"catalog"`
	Refresh  Refresh  `yaml:"refresh"`
	Cache    Cache    `yaml:"cache"`
	LLM      LLM      `yaml:"llm"`

	// HouseTicker is the company whose strategic viewpoint the perspective
	// endpoint adopts.
	HouseTicker string `yaml:"houseTicker"`
}

// Upstream configures the quote provider client.
type Upstream struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
	// RatePerSec bounds outbound requests to the provider.
	RatePerSec float64 `yaml:"ratePerSec"`
}

// Catalog configures the market segment catalog.
type Catalog struct {
	// Path to a YAML catalog file. Empty means the embedded default.
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Refresh configures the background refresh job.
type Refresh struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
}

// Cache configures the caching layer.
type Cache struct {
	Backend       string        `yaml:"backend"` // memory|redis|none
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`
	SnapshotTTL   time.Duration `yaml:"snapshotTTL"`
	AnalysisTTL   time.Duration `yaml:"analysisTTL"`
}

// LLM configures the analysis model client.
type LLM struct {
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel:     "info",
		LogService:   "eqlens",
		ListenAddr:   ":8080",
		DataDir:      "data",
		RateLimitRPM: 120,
		Upstream: Upstream{
			BaseURL:    "https://query1.finance.yahoo.com",
			Timeout:    15 * time.Second,
			RatePerSec: 4,
		},
		Catalog: Catalog{Watch: true},
		Refresh: Refresh{
			Interval:    time.Hour,
			Concurrency: 4,
		},
		Cache: Cache{
			Backend:     "memory",
			SnapshotTTL: 15 * time.Minute,
			AnalysisTTL: time.Hour,
		},
		LLM: LLM{
			Model:   "gemini-2.0-flash",
			Timeout: 2 * time.Minute,
		},
		HouseTicker: "IBM",
	}
}

// Load builds the configuration with precedence ENV > file > defaults.
// path may be empty, in which case only env and defaults apply.
func Load(path, version string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.mergeEnv()
	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeEnv() {
	c.LogLevel = ParseString("EQLENS_LOG_LEVEL", c.LogLevel)
	c.LogService = ParseString("EQLENS_LOG_SERVICE", c.LogService)
	c.ListenAddr = ParseString("EQLENS_LISTEN", c.ListenAddr)
	c.DataDir = ParseString("EQLENS_DATA", c.DataDir)
	c.APIToken = ParseString("EQLENS_API_TOKEN", c.APIToken)
	c.TrustedProxies = ParseString("EQLENS_TRUSTED_PROXIES", c.TrustedProxies)
	c.RateLimitRPM = ParseInt("EQLENS_RATE_LIMIT_RPM", c.RateLimitRPM)

	c.Upstream.BaseURL = ParseString("EQLENS_UPSTREAM_URL", c.Upstream.BaseURL)
	c.Upstream.APIKey = ParseString("EQLENS_UPSTREAM_API_KEY", c.Upstream.APIKey)
	c.Upstream.Timeout = ParseDuration("EQLENS_UPSTREAM_TIMEOUT", c.Upstream.Timeout)
	c.Upstream.RatePerSec = ParseFloat("EQLENS_UPSTREAM_RPS", c.Upstream.RatePerSec)

	c.Catalog.Path = ParseString("EQLENS_CATALOG", c.Catalog.Path)
	c.Catalog.Watch = ParseBool("EQLENS_CATALOG_WATCH", c.Catalog.Watch)

	c.Refresh.Interval = ParseDuration("EQLENS_REFRESH_INTERVAL", c.Refresh.Interval)
	c.Refresh.Concurrency = ParseInt("EQLENS_REFRESH_CONCURRENCY", c.Refresh.Concurrency)

	c.Cache.Backend = ParseString("EQLENS_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.RedisAddr = ParseString("EQLENS_REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = ParseString("EQLENS_REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = ParseInt("EQLENS_REDIS_DB", c.Cache.RedisDB)
	c.Cache.SnapshotTTL = ParseDuration("EQLENS_SNAPSHOT_TTL", c.Cache.SnapshotTTL)
	c.Cache.AnalysisTTL = ParseDuration("EQLENS_ANALYSIS_TTL", c.Cache.AnalysisTTL)

	c.LLM.APIKey = ParseString("EQLENS_GEMINI_API_KEY", c.LLM.APIKey)
	c.LLM.Model = ParseString("EQLENS_GEMINI_MODEL", c.LLM.Model)
	c.LLM.Timeout = ParseDuration("EQLENS_LLM_TIMEOUT", c.LLM.Timeout)

	c.HouseTicker = strings.ToUpper(ParseString("EQLENS_HOUSE_TICKER", c.HouseTicker))
}

// Validate checks the configuration for fail-fast startup errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid upstream base URL %q: %w", c.Upstream.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported upstream base URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("upstream base URL %q is missing host", c.Upstream.BaseURL)
	}

	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache backend is redis but redisAddr is empty")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Refresh.Interval < time.Minute {
		return fmt.Errorf("refresh interval %s is below the 1m minimum", c.Refresh.Interval)
	}
	if c.Refresh.Concurrency < 1 {
		return fmt.Errorf("refresh concurrency must be at least 1")
	}
	if c.HouseTicker == "" {
		return fmt.Errorf("house ticker must not be empty")
	}
	return nil
}

// DBPath returns the SQLite database location under the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "eqlens.db")
}

// ExportPath returns the location of the refresh job's JSON export.
func (c *Config) ExportPath() string {
	return filepath.Join(c.DataDir, "snapshot.json")
}
