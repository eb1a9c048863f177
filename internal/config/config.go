// Package config handles CLI flags, optional TOML configuration and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultOrigins are always allowed, whatever the configuration says.
var DefaultOrigins = []string{
	"https://bugdays.com",
	"https://www.bugdays.com",
	"http://bugdays.com",
	"http://www.bugdays.com",
}

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/holy-cors/config.toml",
	"configs/config.toml",
}

// reservedRoutes are served by the proxy itself and cannot host the metrics endpoint.
var reservedRoutes = []string{"/healthz", "/proxy/status"}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config          string           `kong:"short='c',help='Path to TOML config file.',env='HOLY_CORS_CONFIG'"`
	Bind            string           `kong:"help='Bind address (overrides config).',env='HOLY_CORS_BIND'"`
	Port            int              `kong:"short='p',help='Port to listen on (overrides config).',env='HOLY_CORS_PORT'"`
	AllowOrigin     []string         `kong:"name='allow-origin',help='Additional origin to allow; repeat or comma-separate.',env='HOLY_CORS_ORIGINS',sep=','"`
	AllowAllOrigins bool             `kong:"name='allow-all-origins',help='Allow every origin (development mode).',env='HOLY_CORS_ALLOW_ALL'"`
	Verbose         bool             `kong:"short='v',help='Enable verbose (debug) logging.',env='HOLY_CORS_VERBOSE'"`
	LogLevel        string           `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
	Version         kong.VersionFlag `kong:"help='Print version and exit.'"`
}

// Config is the top-level application configuration. It is built once by
// Load and only read afterwards.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	CORS     CORSConfig     `toml:"cors"`
	Upstream UpstreamConfig `toml:"upstream"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path, empty when running on defaults
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (8080)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// CORSConfig controls which browser origins may use the proxy.
type CORSConfig struct {
	AllowOrigins []string `toml:"allow_origins"`
	AllowAll     bool     `toml:"allow_all"`
}

// UpstreamConfig holds outbound connection settings.
type UpstreamConfig struct {
	TimeoutSeconds          int `toml:"timeout_seconds"`
	IdleConnections         int `toml:"idle_connections"`
	WebSocketTimeoutSeconds int `toml:"websocket_timeout_seconds"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Verbose bool   `toml:"verbose"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file, if any, and applies CLI overrides.
// When no explicit path is given (via --config or HOLY_CORS_CONFIG), it searches
// /etc/holy-cors/config.toml then configs/config.toml and falls back to
// defaults when neither exists.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags. Origins given on
// the command line are added to the ones from the file.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Bind != "" {
		c.Server.Host = cli.Bind
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	for _, o := range cli.AllowOrigin {
		if o = strings.TrimSpace(o); o != "" {
			c.CORS.AllowOrigins = append(c.CORS.AllowOrigins, o)
		}
	}
	if cli.AllowAllOrigins {
		c.CORS.AllowAll = true
	}
	if cli.Verbose {
		c.Log.Verbose = true
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Upstream.WebSocketTimeoutSeconds < 0 {
		return fmt.Errorf("upstream.websocket_timeout_seconds must be non-negative; got %d", c.Upstream.WebSocketTimeoutSeconds)
	}

	for i, o := range c.CORS.AllowOrigins {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("cors.allow_origins[%d] is empty", i)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Every other path is a potential proxy target, so the metrics route only
	// has to avoid the root and the built-in routes.
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		if p == "/" {
			return errors.New("metrics.path must not be the root path")
		}
		for _, reserved := range reservedRoutes {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// Zero means "unset" for integer fields because TOML cannot distinguish an
// explicit 0 from an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 60
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Upstream.WebSocketTimeoutSeconds == 0 {
		c.Upstream.WebSocketTimeoutSeconds = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Verbose {
		c.Log.Level = "debug"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// File returns the config file that was loaded, or "" when running on defaults.
func (c *Config) File() string {
	return c.filePath
}

// AllowedOrigins returns the effective allow-set: DefaultOrigins plus the
// configured extras, deduplicated and sorted. AllowAll does not change it.
func (c *CORSConfig) AllowedOrigins() []string {
	out := make([]string, 0, len(DefaultOrigins)+len(c.AllowOrigins))
	out = append(out, DefaultOrigins...)
	out = append(out, c.AllowOrigins...)
	slices.Sort(out)
	return slices.Compact(out)
}
