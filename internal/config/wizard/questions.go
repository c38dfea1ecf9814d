package wizard

import (
	"context"

	"github.com/charmbracelet/huh"

	"github.com/spoolsmith/spoolsmith/internal/config"
	"github.com/spoolsmith/spoolsmith/internal/driverstore"
	"github.com/spoolsmith/spoolsmith/internal/fetch"
)

// runStoreGroup prompts for the driver store location.
func runStoreGroup(ctx context.Context, result *WizardResult) error {
	result.StoreRoot = config.DefaultStoreRoot

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Driver Store Root").
				Description("Directory where payloads and extracted drivers are kept").
				Placeholder(config.DefaultStoreRoot).
				Value(&result.StoreRoot).
				Validate(validateStoreRoot),
			huh.NewConfirm().
				Title("Keep staging directories?").
				Description("Preserve per-run extraction workspaces for debugging").
				Value(&result.KeepStaging),
		).Title("Driver Store"),
	).RunWithContext(ctx)
}

// runBackendGroup prompts for the OS backend selection.
func runBackendGroup(ctx context.Context, result *WizardResult) error {
	result.BackendKind = config.DefaultBackendKind

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Driver Backend").
				Description("Which print subsystem binds queues").
				Options(BackendOptions...).
				Value(&result.BackendKind),
		).Title("Backend"),
	).RunWithContext(ctx)
}

// runDriverGroup prompts for the first driver catalog entry.
func runDriverGroup(ctx context.Context, result *WizardResult) error {
	result.DriverLayout = "flat"

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Driver UUID").
				Description("Stable identifier, 8-64 characters of [A-Za-z0-9_-]").
				Placeholder("acme_laser-mk3").
				Value(&result.DriverUUID).
				Validate(validateDriverUUID),
			huh.NewInput().
				Title("Payload URL").
				Description("http, https, or s3 URL of the driver zip").
				Placeholder("https://drivers.example.com/mk3.zip").
				Value(&result.DriverURL).
				Validate(validatePayloadURL),
			huh.NewInput().
				Title("Payload SHA-256").
				Description("Expected digest, 64 hex characters").
				Value(&result.DriverSHA256).
				Validate(validateDigest),
			huh.NewInput().
				Title("Definition File").
				Description("Driver definition (INF or PPD) relative to the store root").
				Placeholder("driver.ppd").
				Value(&result.DriverDefinition).
				Validate(validateDefinition),
			huh.NewSelect[string]().
				Title("Archive Layout").
				Description("Where the driver root sits inside the zip").
				Options(LayoutOptions...).
				Value(&result.DriverLayout),
		).Title("Driver Catalog"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	if result.DriverLayout == "nested" {
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Nested Subdirectory").
					Description("Directory inside the archive holding the driver files").
					Value(&result.DriverSubdir).
					Validate(validateSubdir),
			).Title("Driver Catalog"),
		).RunWithContext(ctx)
	}
	return nil
}

// runDeviceGroup optionally prompts for a first device.
func runDeviceGroup(ctx context.Context, result *WizardResult) error {
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Add a device now?").
				Description("You can add more devices to the config later").
				Value(&result.AddDevice),
		).Title("Devices"),
	).RunWithContext(ctx)
	if err != nil || !result.AddDevice {
		return err
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Device Name").
				Placeholder("lobby").
				Value(&result.DeviceName).
				Validate(validateDeviceName),
			huh.NewInput().
				Title("Device Address").
				Description("IP address or hostname of the printer").
				Placeholder("10.0.0.5").
				Value(&result.DeviceAddress).
				Validate(validateDeviceAddress),
		).Title("Devices"),
	).RunWithContext(ctx)
}

func validateStoreRoot(s string) error {
	if s == "" {
		return errStoreRootRequired
	}
	return nil
}

func validateDriverUUID(s string) error {
	return driverstore.ValidateDriverUUID(s)
}

func validatePayloadURL(s string) error {
	_, err := fetch.ValidateURL(s)
	return err
}

func validateDigest(s string) error {
	return driverstore.ValidateDigest(s)
}

func validateDefinition(s string) error {
	if s == "" {
		return errDefinitionRequired
	}
	return nil
}

func validateSubdir(s string) error {
	if s == "" {
		return errSubdirRequired
	}
	return nil
}

func validateDeviceName(s string) error {
	if s == "" {
		return errDeviceNameRequired
	}
	return nil
}

func validateDeviceAddress(s string) error {
	if s == "" {
		return errDeviceAddressRequired
	}
	return nil
}
