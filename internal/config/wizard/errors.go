package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errStoreRootRequired     = errors.New("store root is required")
	errDefinitionRequired    = errors.New("definition file is required")
	errSubdirRequired        = errors.New("subdirectory is required for nested layout")
	errDeviceNameRequired    = errors.New("device name is required")
	errDeviceAddressRequired = errors.New("device address is required")
)
