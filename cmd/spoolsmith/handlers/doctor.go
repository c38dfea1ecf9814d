package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/spoolsmith/spoolsmith/internal/ui/tui"
	"github.com/spoolsmith/spoolsmith/internal/util/prerequisites"
)

// Factory function variables for doctor - can be replaced in tests.
var (
	// runDoctorTUI runs the interactive doctor view.
	runDoctorTUI = tui.RunDoctorTUI

	// renderDoctorOnce renders the doctor report for non-interactive output.
	renderDoctorOnce = tui.RenderDoctorOnce
)

// Doctor checks that the external tools the platform backend shells out to
// are available on PATH.
//
// The backend kind comes from the --backend flag when set, otherwise from
// the configuration file when one is present, otherwise auto-detection.
func Doctor(ctx context.Context, configPath, backendFlag string) error {
	kind, err := resolveBackendKind(configPath, backendFlag)
	if err != nil {
		return err
	}

	if isTerminal() {
		return runDoctorTUI(func() *prerequisites.CheckResults {
			return checkBackendPrereqs(kind)
		})
	}

	results := checkBackendPrereqs(kind)
	fmt.Println(renderDoctorOnce(results))
	return results.Error()
}

// resolveBackendKind picks the backend whose tooling doctor should check.
func resolveBackendKind(configPath, backendFlag string) (string, error) {
	if backendFlag != "" {
		return backendFlag, nil
	}

	// A missing config file is fine for doctor; fall back to auto-detect.
	if configPath == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return "auto", nil
		}
		configPath = defaultConfigFile
	}

	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg.Backend.Kind, nil
}
