package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(data)
}

// Load parses configuration from YAML bytes, applies defaults and the
// environment overrides, then validates.
func Load(data []byte) (*Config, error) {
	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	if err := mapstructure.Decode(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Store.Root == "" {
		c.Store.Root = DefaultStoreRoot
	}
	if c.Download.MaxRetries == 0 {
		c.Download.MaxRetries = DefaultMaxRetries
	}
	if c.Download.InitialDelaySeconds == 0 {
		c.Download.InitialDelaySeconds = DefaultInitialDelaySecs
	}
	if c.Backend.Kind == "" {
		c.Backend.Kind = DefaultBackendKind
	}
	if c.Backend.CommandTimeoutSeconds == 0 {
		c.Backend.CommandTimeoutSeconds = DefaultCommandTimeoutSec
	}
	for i := range c.Drivers {
		if c.Drivers[i].Layout == "" {
			c.Drivers[i].Layout = "flat"
		}
	}
}

func (c *Config) applyEnvOverrides() {
	switch os.Getenv(EnvKeepStaging) {
	case "", "0", "false":
	default:
		c.Store.KeepStaging = true
	}
}
