package wizard

import "github.com/spoolsmith/spoolsmith/internal/config"

// BuildConfig creates a Config struct from the wizard result.
func BuildConfig(result *WizardResult) *config.Config {
	cfg := &config.Config{
		Store: config.StoreConfig{
			Root:        result.StoreRoot,
			KeepStaging: result.KeepStaging,
		},
		Download: config.DownloadConfig{
			MaxRetries:          config.DefaultMaxRetries,
			InitialDelaySeconds: config.DefaultInitialDelaySecs,
		},
		Backend: config.BackendConfig{
			Kind:                  result.BackendKind,
			CommandTimeoutSeconds: config.DefaultCommandTimeoutSec,
		},
		Drivers: []config.DriverConfig{
			{
				UUID:       result.DriverUUID,
				URL:        result.DriverURL,
				SHA256:     result.DriverSHA256,
				Layout:     result.DriverLayout,
				Subdir:     result.DriverSubdir,
				Definition: result.DriverDefinition,
			},
		},
	}

	if result.AddDevice {
		cfg.Devices = []config.DeviceConfig{
			{
				Name:    result.DeviceName,
				Address: result.DeviceAddress,
				Driver:  result.DriverUUID,
			},
		}
	}

	return cfg
}
