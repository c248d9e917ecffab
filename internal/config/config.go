// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultCookiePrefix marks cookies owned by the proxy in the client's cookie jar.
const DefaultCookiePrefix = "!Proxy!"

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/rproxy/config.toml",
	"configs/config.toml",
}

// reservedRoutes are served by the proxy itself and never forwarded.
var reservedRoutes = []string{"/healthz", "/proxy/status"}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config   string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host     string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port     int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	Target   string `kong:"short='t',help='Target base URI (overrides config).',env='TARGET_URI'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Proxy   ProxyConfig   `toml:"proxy"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"`           // 0 means "use default" (8000); TOML cannot distinguish 0 from unset
	BodyMaxBytes int64           `toml:"body_max_bytes"` // 0 means unlimited
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ProxyConfig controls how requests are rewritten for the target and how
// responses are rewritten for the client. It is never mutated after Load.
type ProxyConfig struct {
	TargetURI       string `toml:"target_uri"`
	MountPath       string `toml:"mount_path"`
	PreserveHost    bool   `toml:"preserve_host"`
	PreserveCookies bool   `toml:"preserve_cookies"`
	ForwardClientIP bool   `toml:"forward_client_ip"`
	SendURLFragment bool   `toml:"send_url_fragment"`
	CookiePrefix    string `toml:"cookie_prefix"`

	// Timeouts in milliseconds; -1 leaves the engine default (unbounded).
	ConnectTimeoutMS int `toml:"connect_timeout_ms"`
	ReadTimeoutMS    int `toml:"read_timeout_ms"`

	IdleConnections int `toml:"idle_connections"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/rproxy/config.toml then configs/config.toml.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found (searched %v)", configSearchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.filePath = path
	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.Target != "" {
		c.Proxy.TargetURI = cli.Target
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	// Target URI: required, absolute, http(s).
	if c.Proxy.TargetURI == "" {
		return fmt.Errorf("proxy.target_uri is required")
	}
	u, err := url.Parse(c.Proxy.TargetURI)
	if err != nil {
		return fmt.Errorf("proxy.target_uri is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("proxy.target_uri must use http or https; got %q", c.Proxy.TargetURI)
	}
	if u.Host == "" {
		return fmt.Errorf("proxy.target_uri must include a host; got %q", c.Proxy.TargetURI)
	}

	// Mount path: empty (root) or "/segment" without trailing slash.
	if mp := c.Proxy.MountPath; mp != "" {
		if mp[0] != '/' {
			return fmt.Errorf("proxy.mount_path must start with '/'; got %q", mp)
		}
		if strings.HasSuffix(mp, "/") {
			return fmt.Errorf("proxy.mount_path must not end with '/'; got %q", mp)
		}
		for _, reserved := range reservedRoutes {
			if mp == reserved || strings.HasPrefix(mp, reserved+"/") {
				return fmt.Errorf("proxy.mount_path %q conflicts with reserved route %q", mp, reserved)
			}
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Proxy.ConnectTimeoutMS < -1 {
		return fmt.Errorf("proxy.connect_timeout_ms must be -1 or non-negative; got %d", c.Proxy.ConnectTimeoutMS)
	}
	if c.Proxy.ReadTimeoutMS < -1 {
		return fmt.Errorf("proxy.read_timeout_ms must be -1 or non-negative; got %d", c.Proxy.ReadTimeoutMS)
	}
	if c.Proxy.IdleConnections < 0 {
		return fmt.Errorf("proxy.idle_connections must be non-negative; got %d", c.Proxy.IdleConnections)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range reservedRoutes {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
		if mp := c.Proxy.MountPath; mp != "" && (p == mp || strings.HasPrefix(p, mp+"/")) {
			return fmt.Errorf("metrics.path %q is shadowed by proxy.mount_path %q", p, mp)
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields zero means "unset" because TOML cannot distinguish
// between an explicit 0 and an omitted key. A zero timeout therefore means
// the engine default, the same as -1.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Proxy.CookiePrefix == "" {
		c.Proxy.CookiePrefix = DefaultCookiePrefix
	}
	if c.Proxy.ConnectTimeoutMS == 0 {
		c.Proxy.ConnectTimeoutMS = -1
	}
	if c.Proxy.ReadTimeoutMS == 0 {
		c.Proxy.ReadTimeoutMS = -1
	}
	if c.Proxy.IdleConnections == 0 {
		c.Proxy.IdleConnections = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
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

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
