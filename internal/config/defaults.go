package config

import "time"

const defaultRegistryTimeout = 10 * time.Second

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8888,
			Host: "localhost",
		},
		Registry: RegistryConfig{
			URL:     "http://localhost:7777",
			Timeout: defaultRegistryTimeout.String(),
		},
		Sync: SyncConfig{
			Enabled:     true,
			Concurrency: 1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			Outputs: []string{"console"},
		},
	}
}
