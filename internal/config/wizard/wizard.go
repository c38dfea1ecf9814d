package wizard

import (
	"context"
	"fmt"
)

// WizardResult holds all the answers from the interactive wizard.
type WizardResult struct {
	// Store
	StoreRoot   string
	KeepStaging bool

	// Backend
	BackendKind string

	// First driver catalog entry
	DriverUUID       string
	DriverURL        string
	DriverSHA256     string
	DriverLayout     string
	DriverSubdir     string
	DriverDefinition string

	// First device (optional)
	AddDevice     bool
	DeviceName    string
	DeviceAddress string
}

// RunWizard runs the interactive configuration wizard. The context is used
// for cancellation support (e.g. Ctrl+C).
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{}

	if err := runStoreGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("driver store: %w", err)
	}

	if err := runBackendGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}

	if err := runDriverGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("driver catalog: %w", err)
	}

	if err := runDeviceGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}

	return result, nil
}
