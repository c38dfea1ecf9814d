package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *Config {
	return &Config{
		Store:    StoreConfig{Root: "/srv/drivers"},
		Download: DownloadConfig{MaxRetries: 2, InitialDelaySeconds: 1},
		Backend:  BackendConfig{Kind: "auto", CommandTimeoutSeconds: 120},
		Drivers: []DriverConfig{{
			UUID:       "acme_laser-mk3",
			URL:        "https://drivers.example.com/mk3.zip",
			SHA256:     strings.Repeat("a", 64),
			Layout:     "flat",
			Definition: "driver.ppd",
		}},
		Devices: []DeviceConfig{{
			Name:    "lobby",
			Address: "10.0.0.5",
			Driver:  "acme_laser-mk3",
		}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing store root",
			mutate:  func(c *Config) { c.Store.Root = "" },
			wantErr: "store.root is required",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Download.MaxRetries = -1 },
			wantErr: "must not be negative",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Backend.Kind = "lpd" },
			wantErr: "backend.kind",
		},
		{
			name:    "short driver uuid",
			mutate:  func(c *Config) { c.Drivers[0].UUID = "ab" },
			wantErr: "driver catalog validation failed",
		},
		{
			name: "duplicate driver uuid",
			mutate: func(c *Config) {
				c.Drivers = append(c.Drivers, c.Drivers[0])
			},
			wantErr: "duplicate uuid",
		},
		{
			name:    "bad driver url",
			mutate:  func(c *Config) { c.Drivers[0].URL = "ftp://x/y.zip" },
			wantErr: "driver catalog validation failed",
		},
		{
			name:    "bad digest",
			mutate:  func(c *Config) { c.Drivers[0].SHA256 = "nothex" },
			wantErr: "driver catalog validation failed",
		},
		{
			name:    "missing definition",
			mutate:  func(c *Config) { c.Drivers[0].Definition = "" },
			wantErr: "definition is required",
		},
		{
			name:    "nested without subdir",
			mutate:  func(c *Config) { c.Drivers[0].Layout = "nested" },
			wantErr: "requires subdir",
		},
		{
			name:    "unknown layout",
			mutate:  func(c *Config) { c.Drivers[0].Layout = "deep" },
			wantErr: "not flat or nested",
		},
		{
			name:    "device missing address",
			mutate:  func(c *Config) { c.Devices[0].Address = "" },
			wantErr: "address is required",
		},
		{
			name: "duplicate device name",
			mutate: func(c *Config) {
				c.Devices = append(c.Devices, c.Devices[0])
			},
			wantErr: "duplicate name",
		},
		{
			name:    "device references unknown driver",
			mutate:  func(c *Config) { c.Devices[0].Driver = "ghost-driver" },
			wantErr: "not found in catalog",
		},
		{
			name:    "device port out of range",
			mutate:  func(c *Config) { c.Devices[0].Port = 70000 },
			wantErr: "out of range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
