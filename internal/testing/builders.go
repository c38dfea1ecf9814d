package testing

import (
	"github.com/spoolsmith/spoolsmith/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a new ConfigBuilder with sensible defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		cfg: config.Config{
			Store: config.StoreConfig{
				Root: "/tmp/spoolsmith-test-store",
			},
			Download: config.DownloadConfig{
				MaxRetries:          config.DefaultMaxRetries,
				InitialDelaySeconds: config.DefaultInitialDelaySecs,
			},
			Backend: config.BackendConfig{
				Kind:                  "cups",
				CommandTimeoutSeconds: config.DefaultCommandTimeoutSec,
			},
		},
	}
}

// WithStoreRoot sets the payload store root directory.
func (b *ConfigBuilder) WithStoreRoot(root string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Store.Root = root
	return newBuilder
}

// WithKeepStaging sets whether staging directories survive promotion.
func (b *ConfigBuilder) WithKeepStaging(keep bool) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Store.KeepStaging = keep
	return newBuilder
}

// WithBackend sets the platform backend kind.
func (b *ConfigBuilder) WithBackend(kind string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Backend.Kind = kind
	return newBuilder
}

// WithDriver adds a driver catalog entry with a flat layout and a PPD definition.
func (b *ConfigBuilder) WithDriver(uuid, url, sha256 string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Drivers = append(newBuilder.cfg.Drivers, config.DriverConfig{
		UUID:       uuid,
		URL:        url,
		SHA256:     sha256,
		Layout:     "flat",
		Definition: "driver.ppd",
	})
	return newBuilder
}

// WithNestedDriver adds a driver catalog entry using a nested layout.
func (b *ConfigBuilder) WithNestedDriver(uuid, url, sha256, subdir, definition string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Drivers = append(newBuilder.cfg.Drivers, config.DriverConfig{
		UUID:       uuid,
		URL:        url,
		SHA256:     sha256,
		Layout:     "nested",
		Subdir:     subdir,
		Definition: definition,
	})
	return newBuilder
}

// WithDevice adds a device bound to a driver UUID.
func (b *ConfigBuilder) WithDevice(name, address, driverUUID string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Devices = append(newBuilder.cfg.Devices, config.DeviceConfig{
		Name:    name,
		Address: address,
		Driver:  driverUUID,
	})
	return newBuilder
}

// WithS3Source configures an S3 payload source.
func (b *ConfigBuilder) WithS3Source(endpoint, region string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Sources.S3 = &config.S3Config{
		Endpoint: endpoint,
		Region:   region,
	}
	return newBuilder
}

// Build returns the constructed config.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.cfg // copy
	return &cfg
}

// clone creates a deep copy of the builder for immutability.
func (b *ConfigBuilder) clone() *ConfigBuilder {
	newCfg := b.cfg
	if len(b.cfg.Drivers) > 0 {
		newCfg.Drivers = make([]config.DriverConfig, len(b.cfg.Drivers))
		copy(newCfg.Drivers, b.cfg.Drivers)
	}
	if len(b.cfg.Devices) > 0 {
		newCfg.Devices = make([]config.DeviceConfig, len(b.cfg.Devices))
		copy(newCfg.Devices, b.cfg.Devices)
	}
	if b.cfg.Sources.S3 != nil {
		s3 := *b.cfg.Sources.S3
		newCfg.Sources.S3 = &s3
	}
	return &ConfigBuilder{cfg: newCfg}
}

// MinimalConfig returns a minimal valid config for simple tests.
func MinimalConfig() *config.Config {
	return NewConfigBuilder().Build()
}

// FullConfig returns a config with a driver and a bound device for integration tests.
func FullConfig(payloadURL, payloadSHA256 string) *config.Config {
	return NewConfigBuilder().
		WithDriver("acme_laser-mk3", payloadURL, payloadSHA256).
		WithDevice("lobby-printer", "192.168.10.40", "acme_laser-mk3").
		Build()
}
