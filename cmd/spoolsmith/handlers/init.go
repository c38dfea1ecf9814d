package handlers

import (
	"context"
	"fmt"

	"github.com/spoolsmith/spoolsmith/internal/config/wizard"
)

// Factory function variables for init - can be replaced in tests.
var (
	// runWizard runs the interactive configuration wizard.
	runWizard = wizard.RunWizard

	// confirmOverwrite asks before clobbering an existing config file.
	confirmOverwrite = wizard.ConfirmOverwriteIfExists

	// writeConfig writes the config to a file.
	writeConfig = wizard.WriteConfig
)

// Init runs the configuration wizard and writes the result to a file.
func Init(ctx context.Context, outputPath string) error {
	ok, err := confirmOverwrite(outputPath)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Aborted.")
		return nil
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	cfg := wizard.BuildConfig(result)

	if err := writeConfig(cfg, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath)
	return nil
}

// printWelcome prints the welcome message.
func printWelcome() {
	fmt.Println()
	fmt.Println("spoolsmith - print driver installation")
	fmt.Println("======================================")
	fmt.Println()
	fmt.Println("This wizard creates a configuration with the driver store,")
	fmt.Println("one driver catalog entry, and an optional first device.")
	fmt.Println()
}

// printInitSuccess outputs completion message and next steps for the user.
func printInitSuccess(outputPath string) {
	fmt.Println()
	fmt.Printf("Configuration written to: %s\n", outputPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  spoolsmith doctor     # verify platform tools")
	fmt.Println("  spoolsmith install    # install the configured device")
}
