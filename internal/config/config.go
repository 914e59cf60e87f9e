package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Registry RegistryConfig `toml:"registry"`
	Sync     SyncConfig     `toml:"sync"`
	Tools    ToolsConfig    `toml:"tools"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// RegistryConfig points at the control server's tool registry.
type RegistryConfig struct {
	URL               string  `toml:"url"`
	Key               string  `toml:"key"`
	Timeout           string  `toml:"timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// SyncConfig controls how tool descriptors are reconciled with the registry.
type SyncConfig struct {
	Enabled     bool   `toml:"enabled"`
	Concurrency int    `toml:"concurrency"`
	Schedule    string `toml:"schedule"` // 5-field cron, UTC; empty disables resync
	DryRun      bool   `toml:"dry_run"`
}

// ToolsConfig contains settings for the locally hosted tools.
type ToolsConfig struct {
	// PublicURL is the base used to build each tool's advertised endpoint.
	// Defaults to http://localhost:<server.port>.
	PublicURL string `toml:"public_url"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// CallTimeout returns the per-call registry timeout, falling back to the default
// when the configured value is empty or invalid.
func (r RegistryConfig) CallTimeout() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(r.Timeout))
	if err != nil || d <= 0 {
		return defaultRegistryTimeout
	}
	return d
}

// HasCredential reports whether a registry key is configured.
func (r RegistryConfig) HasCredential() bool {
	return strings.TrimSpace(r.Key) != ""
}

// ToolsBaseURL returns the base URL advertised for tool endpoints.
func (c *Config) ToolsBaseURL() string {
	if u := strings.TrimRight(strings.TrimSpace(c.Tools.PublicURL), "/"); u != "" {
		return u
	}
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

// Validate checks the configuration and returns a list of issues.
// A missing registry key is not an issue: sync reports it per tool.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}
	if !isAbsoluteURL(c.Registry.URL) {
		issues = append(issues, fmt.Sprintf("registry.url must be an absolute http(s) URL (got %q)", c.Registry.URL))
	}
	if t := strings.TrimSpace(c.Registry.Timeout); t != "" {
		if d, err := time.ParseDuration(t); err != nil || d <= 0 {
			issues = append(issues, fmt.Sprintf("registry.timeout must be a positive duration (got %q)", c.Registry.Timeout))
		}
	}
	if c.Registry.RequestsPerSecond < 0 {
		issues = append(issues, "registry.requests_per_second must not be negative")
	}
	if c.Sync.Concurrency < 1 {
		issues = append(issues, fmt.Sprintf("sync.concurrency must be at least 1 (got %d)", c.Sync.Concurrency))
	}
	if s := strings.TrimSpace(c.Sync.Schedule); s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			issues = append(issues, fmt.Sprintf("sync.schedule is not a valid cron expression: %v", err))
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "text", "logfmt", "json":
	default:
		issues = append(issues, fmt.Sprintf("logging.format must be text, logfmt or json (got %q)", c.Logging.Format))
	}
	if c.Tools.PublicURL != "" && !isAbsoluteURL(c.Tools.PublicURL) {
		issues = append(issues, fmt.Sprintf("tools.public_url must be an absolute http(s) URL (got %q)", c.Tools.PublicURL))
	}

	return issues
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies VIRE_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("VIRE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("VIRE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if u := os.Getenv("VIRE_REGISTRY_URL"); u != "" {
		config.Registry.URL = u
	}
	if key := os.Getenv("VIRE_REGISTRY_KEY"); key != "" {
		config.Registry.Key = key
	}
	if timeout := os.Getenv("VIRE_REGISTRY_TIMEOUT"); timeout != "" {
		config.Registry.Timeout = timeout
	}
	if enabled := os.Getenv("VIRE_SYNC_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Sync.Enabled = b
		}
	}
	if schedule := os.Getenv("VIRE_SYNC_SCHEDULE"); schedule != "" {
		config.Sync.Schedule = schedule
	}
	if concurrency := os.Getenv("VIRE_SYNC_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil {
			config.Sync.Concurrency = n
		}
	}
	if publicURL := os.Getenv("VIRE_TOOLS_PUBLIC_URL"); publicURL != "" {
		config.Tools.PublicURL = publicURL
	}
	if level := os.Getenv("VIRE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("VIRE_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
