// Package main is the entry point for the spoolsmith CLI.
//
// spoolsmith is a command-line tool for acquiring print driver packages
// and installing them onto network print devices. It downloads payloads
// into a content-addressed store, verifies and extracts them, stages the
// driver with the OS print subsystem, and binds a queue and port on the
// target device.
//
// Commands: init, install, doctor, version.
//
// For detailed usage information, run:
//
//	spoolsmith --help
package main

import (
	"fmt"
	"os"

	"github.com/spoolsmith/spoolsmith/cmd/spoolsmith/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
