package config

// Default values applied by LoadFile when the YAML omits them.
const (
	DefaultStoreRoot         = "/var/lib/spoolsmith/store"
	DefaultMaxRetries        = 2
	DefaultInitialDelaySecs  = 1
	DefaultCommandTimeoutSec = 120
	DefaultBackendKind       = "auto"
)

// EnvKeepStaging, when set to a non-empty value other than "0" or "false",
// forces keep_staging on regardless of the file setting. Operators use it to
// inspect a failing extraction without editing config.
const EnvKeepStaging = "SPOOLSMITH_KEEP_STAGING"

// Config is the root configuration.
type Config struct {
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Sources  SourcesConfig  `mapstructure:"sources" yaml:"sources,omitempty"`
	Backend  BackendConfig  `mapstructure:"backend" yaml:"backend"`
	Drivers  []DriverConfig `mapstructure:"drivers" yaml:"drivers,omitempty"`
	Devices  []DeviceConfig `mapstructure:"devices" yaml:"devices,omitempty"`
}

// StoreConfig locates the on-disk driver store.
type StoreConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
	// KeepStaging preserves per-run staging directories after a
	// successful install.
	KeepStaging bool `mapstructure:"keep_staging" yaml:"keep_staging,omitempty"`
}

// DownloadConfig tunes payload fetching.
type DownloadConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// InitialDelaySeconds is the first backoff delay; it doubles per retry.
	InitialDelaySeconds int `mapstructure:"initial_delay_seconds" yaml:"initial_delay_seconds"`
}

// SourcesConfig holds credentials for non-HTTP payload sources.
type SourcesConfig struct {
	S3 *S3Config `mapstructure:"s3" yaml:"s3,omitempty"`
}

// S3Config configures the s3:// payload source. Endpoint is optional and
// enables S3-compatible object stores.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
}

// BackendConfig selects the OS driver backend.
type BackendConfig struct {
	// Kind is auto, cups, or windows.
	Kind string `mapstructure:"kind" yaml:"kind"`
	// CommandTimeoutSeconds bounds each external command the backend runs.
	CommandTimeoutSeconds int `mapstructure:"command_timeout_seconds" yaml:"command_timeout_seconds,omitempty"`
}

// DriverConfig is one catalog entry: where a driver payload lives and how to
// interpret its extracted tree.
type DriverConfig struct {
	UUID   string `mapstructure:"uuid" yaml:"uuid"`
	URL    string `mapstructure:"url" yaml:"url"`
	SHA256 string `mapstructure:"sha256" yaml:"sha256"`
	// Layout is flat or nested; Subdir names the driver root for nested.
	Layout string `mapstructure:"layout" yaml:"layout,omitempty"`
	Subdir string `mapstructure:"subdir" yaml:"subdir,omitempty"`
	// Definition is the driver definition file (INF or PPD) relative to
	// the materialized store root.
	Definition string `mapstructure:"definition" yaml:"definition"`
}

// DeviceConfig is one install target.
type DeviceConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Address string `mapstructure:"address" yaml:"address"`
	Port    int    `mapstructure:"port" yaml:"port,omitempty"`
	URI     string `mapstructure:"uri" yaml:"uri,omitempty"`
	// Driver references a catalog entry by uuid.
	Driver    string `mapstructure:"driver" yaml:"driver"`
	QueueName string `mapstructure:"queue_name" yaml:"queue_name,omitempty"`
	PortName  string `mapstructure:"port_name" yaml:"port_name,omitempty"`
}

// DriverByUUID looks up a catalog entry.
func (c *Config) DriverByUUID(uuid string) (DriverConfig, bool) {
	for _, d := range c.Drivers {
		if d.UUID == uuid {
			return d, true
		}
	}
	return DriverConfig{}, false
}
