// Package config provides configuration loading and management for the campus
// content proxy. It handles environment variable parsing and provides default
// values for all settings.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// init loads environment variables from .env files during package initialization.
// godotenv.Load() does not override already-set environment variables,
// preserving OS env > .env precedence. In production the service relies solely
// on system environment variables.
func init() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for the proxy service.
type Config struct {
	Env          string        // Deployment environment (dev, staging, prod)
	Port         string        // HTTP server port
	UpstreamURL  string        // Base URL of the upstream CMS API
	MediaBaseURL string        // Base URL for resolving relative media paths
	RedisAddr    string        // Redis address for the upstream response cache (empty disables caching)
	CacheTTL     time.Duration // Default upstream response freshness window

	// CORS configuration
	CORSAllowedOrigins []string // Allowed origins for CORS (empty means deny all)
}

// Default configuration values used when environment variables are not set.
const (
	defaultPort        = "8080"
	defaultEnv         = "dev"
	defaultUpstreamURL = "https://cms.campushub.edu.np/api"
	defaultCacheTTL    = 300 * time.Second
)

// Load reads environment variables and produces a Config suitable for wiring
// the service. Every setting has a usable default; Load fails only when a
// provided value cannot be parsed.
func Load() (Config, error) {
	cfg := Config{
		Env:         getEnv("CAMPUS_ENV", defaultEnv),
		Port:        getEnv("CAMPUS_PORT", defaultPort),
		UpstreamURL: getEnv("CAMPUS_UPSTREAM_URL", defaultUpstreamURL),
		RedisAddr:   os.Getenv("CAMPUS_REDIS_ADDR"),
		CacheTTL:    defaultCacheTTL,
	}

	u, err := url.Parse(cfg.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return cfg, fmt.Errorf("CAMPUS_UPSTREAM_URL %q is not an absolute URL", cfg.UpstreamURL)
	}

	// Media paths resolve against the CMS host root unless overridden.
	if mediaURL, exists := os.LookupEnv("CAMPUS_MEDIA_URL"); exists && mediaURL != "" {
		cfg.MediaBaseURL = mediaURL
	} else {
		cfg.MediaBaseURL = u.Scheme + "://" + u.Host
	}

	if ttl, exists := os.LookupEnv("CAMPUS_CACHE_TTL"); exists {
		secs, err := strconv.Atoi(ttl)
		if err != nil || secs < 0 {
			return cfg, fmt.Errorf("CAMPUS_CACHE_TTL %q is not a non-negative integer", ttl)
		}
		cfg.CacheTTL = time.Duration(secs) * time.Second
	}

	if corsOrigins, exists := os.LookupEnv("CAMPUS_CORS_ALLOWED_ORIGINS"); exists {
		cfg.CORSAllowedOrigins = strings.Split(corsOrigins, ",")
		for i, origin := range cfg.CORSAllowedOrigins {
			cfg.CORSAllowedOrigins[i] = strings.TrimSpace(origin)
		}
	}

	return cfg, nil
}

// getEnv retrieves an environment variable value, returning a fallback if not set or empty
func getEnv(key, fallback string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return fallback
}
