package config

import (
	"fmt"

	"github.com/spoolsmith/spoolsmith/internal/driverstore"
	"github.com/spoolsmith/spoolsmith/internal/fetch"
)

// ValidBackendKinds contains the recognized backend selections.
var ValidBackendKinds = map[string]bool{
	"auto":    true,
	"cups":    true,
	"windows": true,
}

// Validate checks the configuration for common errors and returns a detailed
// error if validation fails.
func (c *Config) Validate() error {
	if c.Store.Root == "" {
		return fmt.Errorf("store.root is required")
	}
	if c.Download.MaxRetries < 0 {
		return fmt.Errorf("download.max_retries must not be negative")
	}
	if !ValidBackendKinds[c.Backend.Kind] {
		return fmt.Errorf("backend.kind %q is not one of auto, cups, windows", c.Backend.Kind)
	}

	if err := c.validateDrivers(); err != nil {
		return fmt.Errorf("driver catalog validation failed: %w", err)
	}
	if err := c.validateDevices(); err != nil {
		return fmt.Errorf("device validation failed: %w", err)
	}
	return nil
}

func (c *Config) validateDrivers() error {
	seen := map[string]bool{}
	for i, d := range c.Drivers {
		if err := driverstore.ValidateDriverUUID(d.UUID); err != nil {
			return fmt.Errorf("drivers[%d]: %w", i, err)
		}
		if seen[d.UUID] {
			return fmt.Errorf("drivers[%d]: duplicate uuid %q", i, d.UUID)
		}
		seen[d.UUID] = true

		if _, err := fetch.ValidateURL(d.URL); err != nil {
			return fmt.Errorf("drivers[%d] (%s): %w", i, d.UUID, err)
		}
		if err := driverstore.ValidateDigest(d.SHA256); err != nil {
			return fmt.Errorf("drivers[%d] (%s): %w", i, d.UUID, err)
		}
		if d.Definition == "" {
			return fmt.Errorf("drivers[%d] (%s): definition is required", i, d.UUID)
		}
		switch d.Layout {
		case "flat":
		case "nested":
			if d.Subdir == "" {
				return fmt.Errorf("drivers[%d] (%s): nested layout requires subdir", i, d.UUID)
			}
		default:
			return fmt.Errorf("drivers[%d] (%s): layout %q is not flat or nested", i, d.UUID, d.Layout)
		}
	}
	return nil
}

func (c *Config) validateDevices() error {
	seen := map[string]bool{}
	for i, dev := range c.Devices {
		if dev.Name == "" {
			return fmt.Errorf("devices[%d]: name is required", i)
		}
		if seen[dev.Name] {
			return fmt.Errorf("devices[%d]: duplicate name %q", i, dev.Name)
		}
		seen[dev.Name] = true

		if dev.Address == "" {
			return fmt.Errorf("devices[%d] (%s): address is required", i, dev.Name)
		}
		if dev.Driver == "" {
			return fmt.Errorf("devices[%d] (%s): driver is required", i, dev.Name)
		}
		if _, ok := c.DriverByUUID(dev.Driver); !ok {
			return fmt.Errorf("devices[%d] (%s): driver %q not found in catalog", i, dev.Name, dev.Driver)
		}
		if dev.Port < 0 || dev.Port > 65535 {
			return fmt.Errorf("devices[%d] (%s): port %d out of range", i, dev.Name, dev.Port)
		}
	}
	return nil
}
