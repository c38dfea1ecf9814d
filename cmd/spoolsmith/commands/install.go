package commands

import (
	"github.com/spf13/cobra"

	"github.com/spoolsmith/spoolsmith/cmd/spoolsmith/handlers"
)

// Install returns the command for installing drivers onto devices.
//
// This command runs the full acquisition pipeline for each target device:
// download, verify, extract, stage, register, and queue binding.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file (default: spoolsmith.yaml)
//	--device, -d: Install only the named device
//	--all: Install every device in the configuration
//	--reinstall: Rebind queues even if the driver is already present
//	--no-tui: Force plain log output even on a terminal
//	--keep-staging: Preserve staging directories after promotion
func Install() *cobra.Command {
	var opts handlers.InstallOptions

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install drivers onto configured devices",
		Long: `Install print drivers onto network devices.

For each target device this downloads the driver payload into the local
store (skipping the download on a cache hit), verifies its digest,
extracts it, stages the driver with the OS print subsystem, and binds
a queue and port for the device.

If no config file is specified, it looks for spoolsmith.yaml in the
current directory. Use 'spoolsmith init' to create a configuration file.

Examples:
  # Install the single configured device
  spoolsmith install

  # Install one device by name
  spoolsmith install -d lobby-printer

  # Install every configured device in parallel
  spoolsmith install --all

  # Rebind an already-installed device
  spoolsmith install -d lobby-printer --reinstall`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Install(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: spoolsmith.yaml)")
	cmd.Flags().StringVarP(&opts.Device, "device", "d", "", "Install only the named device")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Install every device in the configuration")
	cmd.Flags().BoolVar(&opts.Reinstall, "reinstall", false, "Rebind queues even if already installed")
	cmd.Flags().BoolVar(&opts.NoTUI, "no-tui", false, "Force plain log output")
	cmd.Flags().BoolVar(&opts.KeepStaging, "keep-staging", false, "Preserve staging directories after promotion")

	return cmd
}
