package commands

import (
	"github.com/spf13/cobra"

	"github.com/spoolsmith/spoolsmith/cmd/spoolsmith/handlers"
)

// Init returns the command for interactively creating a configuration.
//
// This command guides users through creating a configuration YAML file
// using an interactive wizard with text inputs and single-select prompts.
//
// Flags:
//
//	--output, -o: Path to output file (default "spoolsmith.yaml")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a configuration file",
		Long: `Interactively create a spoolsmith configuration file.

This command guides you through configuring the driver store and your
first driver step by step. It will ask about:

  - Driver store location
  - Platform backend (CUPS, Windows, or auto-detect)
  - Driver identity, payload URL, and SHA-256 digest
  - Payload layout and driver definition file
  - An optional first device

Every answer is validated as you type, so the generated file always
passes 'spoolsmith install' configuration checks.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "spoolsmith.yaml", "Output file path")

	return cmd
}
