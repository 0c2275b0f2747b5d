// Package config handles TOML configuration loading, environment overrides and validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/legal-gateway/config.toml",
	"configs/config.toml",
}

// reservedPrefixes are route prefixes owned by the gateway itself.
var reservedPrefixes = []string{"/api", "/healthz", "/gateway/status"}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config   string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host     string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port     int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`

	LogFormat      string `kong:"help='Log format: json|text (overrides config).',env='LOG_FORMAT'"`
	TimeoutSeconds int    `kong:"help='Upstream timeout in seconds (overrides config).',env='UPSTREAM_TIMEOUT_SECONDS'"`

	AnalyzerOrigin      string `kong:"help='Document analyzer origin URL.',env='ANALYZER_ORIGIN'"`
	BackendOrigin       string `kong:"help='Core backend origin URL.',env='BACKEND_ORIGIN'"`
	LegalResearchOrigin string `kong:"help='Legal research service origin URL.',env='LEGAL_RESEARCH_ORIGIN'"`
	DraftingOrigin      string `kong:"help='Drafting assistant origin URL.',env='DRAFTING_ORIGIN'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Upstream UpstreamConfig `toml:"upstream"`
	Services ServicesConfig `toml:"services"`
	Identity IdentityConfig `toml:"identity"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"` // 0 means "use default" (3000)
	BodyMaxBytes int64  `toml:"body_max_bytes"`
}

// UpstreamConfig holds settings shared by every upstream connection.
type UpstreamConfig struct {
	TimeoutSeconds  int `toml:"timeout_seconds"`
	IdleConnections int `toml:"idle_connections"`
}

// ServicesConfig holds the origin URL of each backend service.
type ServicesConfig struct {
	AnalyzerURL      string `toml:"analyzer_url"`
	BackendURL       string `toml:"backend_url"`
	LegalResearchURL string `toml:"legal_research_url"`
	DraftingURL      string `toml:"drafting_url"`
}

// IdentityConfig controls how the caller identity is derived and labelled.
type IdentityConfig struct {
	Header      string `toml:"header"`
	DefaultUser string `toml:"default_user"`
	BearerUser  string `toml:"bearer_user"`
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

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables that are already set are left untouched. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load reads the TOML config file (if any) and applies CLI and environment overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/legal-gateway/config.toml then configs/config.toml; finding neither is
// fine and leaves every setting at its default.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	}
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
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
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
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		c.Log.Format = cli.LogFormat
	}
	if cli.TimeoutSeconds != 0 {
		c.Upstream.TimeoutSeconds = cli.TimeoutSeconds
	}
	if cli.AnalyzerOrigin != "" {
		c.Services.AnalyzerURL = cli.AnalyzerOrigin
	}
	if cli.BackendOrigin != "" {
		c.Services.BackendURL = cli.BackendOrigin
	}
	if cli.LegalResearchOrigin != "" {
		c.Services.LegalResearchURL = cli.LegalResearchOrigin
	}
	if cli.DraftingOrigin != "" {
		c.Services.DraftingURL = cli.DraftingOrigin
	}
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields zero means "unset" because TOML cannot distinguish between
// an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 100 * 1024 * 1024 // 100 MB, audio and video uploads
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 120
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Services.AnalyzerURL == "" {
		c.Services.AnalyzerURL = "http://localhost:8000"
	}
	if c.Services.BackendURL == "" {
		c.Services.BackendURL = "http://localhost:5000"
	}
	if c.Services.LegalResearchURL == "" {
		c.Services.LegalResearchURL = "http://localhost:8001"
	}
	if c.Services.DraftingURL == "" {
		c.Services.DraftingURL = "http://localhost:8002"
	}
	if c.Identity.Header == "" {
		c.Identity.Header = "X-User-Id"
	}
	if c.Identity.DefaultUser == "" {
		c.Identity.DefaultUser = "default_user"
	}
	if c.Identity.BearerUser == "" {
		c.Identity.BearerUser = "authenticated_user"
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

func (c *Config) validate() error {
	services := []struct {
		key string
		val string
	}{
		{"services.analyzer_url", c.Services.AnalyzerURL},
		{"services.backend_url", c.Services.BackendURL},
		{"services.legal_research_url", c.Services.LegalResearchURL},
		{"services.drafting_url", c.Services.DraftingURL},
	}
	for _, s := range services {
		if err := validateOrigin(s.key, s.val); err != nil {
			return err
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}

	if strings.TrimSpace(c.Identity.DefaultUser) == "" {
		return fmt.Errorf("identity.default_user must not be blank")
	}
	if strings.TrimSpace(c.Identity.BearerUser) == "" {
		return fmt.Errorf("identity.bearer_user must not be blank")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	if c.Metrics.Enabled {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range reservedPrefixes {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}
	return nil
}

func validateOrigin(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https; got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host; got %q", key, raw)
	}
	return nil
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
