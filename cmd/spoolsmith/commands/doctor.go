package commands

import (
	"github.com/spf13/cobra"

	"github.com/spoolsmith/spoolsmith/cmd/spoolsmith/handlers"
)

// Doctor returns the command for diagnosing the local environment.
//
// This command checks that the external tools the configured platform
// backend shells out to are present on PATH.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file (default: spoolsmith.yaml)
//	--backend: Check tools for a specific backend instead of the configured one
func Doctor() *cobra.Command {
	var configPath string
	var backend string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that required platform tools are available",
		Long: `Check the local environment for the tools spoolsmith needs.

The platform backend shells out to OS print tooling (lpadmin, lpstat
and lpinfo for CUPS; powershell.exe on Windows). Doctor verifies each
tool is on PATH and reports its version where available.

Examples:
  # Check tools for the backend in spoolsmith.yaml
  spoolsmith doctor

  # Check tools for a specific backend
  spoolsmith doctor --backend cups`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), configPath, backend)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: spoolsmith.yaml)")
	cmd.Flags().StringVar(&backend, "backend", "", "Backend to check (auto, cups, windows)")

	return cmd
}
