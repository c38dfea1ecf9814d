// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/mattn/go-isatty"

	"github.com/spoolsmith/spoolsmith/internal/config"
	"github.com/spoolsmith/spoolsmith/internal/driverstore"
	"github.com/spoolsmith/spoolsmith/internal/execute"
	"github.com/spoolsmith/spoolsmith/internal/fetch"
	"github.com/spoolsmith/spoolsmith/internal/install"
	"github.com/spoolsmith/spoolsmith/internal/platform/driverops"
	"github.com/spoolsmith/spoolsmith/internal/platform/s3"
	"github.com/spoolsmith/spoolsmith/internal/ui/tui"
	"github.com/spoolsmith/spoolsmith/internal/util/async"
	"github.com/spoolsmith/spoolsmith/internal/util/prerequisites"
)

const defaultConfigFile = "spoolsmith.yaml"

// InstallOptions carries the install command's flag values.
type InstallOptions struct {
	ConfigPath  string
	Device      string
	All         bool
	Reinstall   bool
	NoTUI       bool
	KeepStaging bool
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads config from file.
	loadConfigFile = config.LoadFile

	// newBackend creates the platform driver backend.
	newBackend = driverops.New

	// newS3Source creates an S3 payload source.
	newS3Source = func(ctx context.Context, c *config.S3Config) (fetch.Source, error) {
		return s3.NewClient(ctx, c.Endpoint, c.Region, c.AccessKey, c.SecretKey)
	}

	// checkBackendPrereqs runs prerequisite checks for a backend kind.
	checkBackendPrereqs = prerequisites.CheckForBackend

	// isTerminal reports whether stdout is an interactive terminal.
	isTerminal = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	// runInstallTUI runs the interactive install dashboard.
	runInstallTUI = tui.RunInstallTUI
)

// Install runs the driver acquisition pipeline for one or all configured
// devices.
//
// The handler wires the pipeline from configuration:
//  1. Loads and validates the configuration file
//  2. Verifies the platform tools the backend shells out to are on PATH
//  3. Builds the payload store, fetcher (with an optional S3 source), and
//     OS backend
//  4. Runs one install job per target device, interactively on a terminal
//     or with structured log output otherwise
//
// With --all, devices are installed in parallel and output is always the
// log stream; the interactive dashboard tracks exactly one job.
func Install(ctx context.Context, opts InstallOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	devices, err := selectDevices(cfg, opts)
	if err != nil {
		return err
	}

	if err := checkPrerequisites(cfg.Backend.Kind); err != nil {
		return err
	}

	logger := newLogger()
	orch, err := buildOrchestrator(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}

	if len(devices) == 1 && !opts.NoTUI && isTerminal() {
		return installInteractive(ctx, orch, cfg, devices[0], opts)
	}
	return installParallel(ctx, orch, cfg, devices, opts)
}

// loadConfig loads and validates the configuration file. If configPath is
// empty, it looks for spoolsmith.yaml in the current directory.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		configPath = defaultConfigFile
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("no config file found: %w\nRun 'spoolsmith init' to create one", err)
		}
	}

	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// selectDevices resolves the target device list from the flags.
func selectDevices(cfg *config.Config, opts InstallOptions) ([]config.DeviceConfig, error) {
	if len(cfg.Devices) == 0 {
		return nil, fmt.Errorf("no devices configured; add a devices entry or run 'spoolsmith init'")
	}

	if opts.Device != "" {
		for _, d := range cfg.Devices {
			if d.Name == opts.Device {
				return []config.DeviceConfig{d}, nil
			}
		}
		return nil, fmt.Errorf("device %q not found in configuration", opts.Device)
	}

	if opts.All || len(cfg.Devices) == 1 {
		return cfg.Devices, nil
	}

	return nil, fmt.Errorf("%d devices configured; pick one with --device or pass --all", len(cfg.Devices))
}

// checkPrerequisites verifies required platform tools are available.
func checkPrerequisites(backendKind string) error {
	results := checkBackendPrereqs(backendKind)

	for _, r := range results.Results {
		if r.Found {
			version := r.Version
			if version == "" {
				version = "unknown version"
			}
			log.Printf("  Found %s (%s)", r.Tool.Name, version)
		}
	}

	if err := results.Error(); err != nil {
		return fmt.Errorf("prerequisites check failed: %w", err)
	}
	return nil
}

// buildOrchestrator wires the store, fetcher, and backend into an
// orchestrator. The emitter is attached per run, so the orchestrator
// returned here is a factory input rather than a ready pipeline.
func buildOrchestrator(ctx context.Context, cfg *config.Config, opts InstallOptions, logger logr.Logger) (*pipelineParts, error) {
	store := driverstore.New(cfg.Store.Root)
	if err := store.EnsureRoot(); err != nil {
		return nil, err
	}

	fetchOpts := []fetch.Option{
		fetch.WithRetryBudget(cfg.Download.MaxRetries, time.Duration(cfg.Download.InitialDelaySeconds)*time.Second),
	}
	if cfg.Sources.S3 != nil {
		src, err := newS3Source(ctx, cfg.Sources.S3)
		if err != nil {
			return nil, fmt.Errorf("configuring s3 source: %w", err)
		}
		fetchOpts = append(fetchOpts, fetch.WithSource("s3", src))
	}
	fetcher := fetch.New(store, fetchOpts...)

	runner := &execute.Executor{Timeout: time.Duration(cfg.Backend.CommandTimeoutSeconds) * time.Second}
	backend, err := newBackend(driverops.Kind(cfg.Backend.Kind), runner)
	if err != nil {
		return nil, err
	}

	return &pipelineParts{
		store:       store,
		fetcher:     fetcher,
		backend:     backend,
		log:         logger,
		keepStaging: opts.KeepStaging || cfg.Store.KeepStaging,
	}, nil
}

// pipelineParts holds the wired pipeline dependencies minus the emitter,
// which differs between the interactive and log output paths.
type pipelineParts struct {
	store       *driverstore.Store
	fetcher     install.PayloadFetcher
	backend     driverops.Backend
	log         logr.Logger
	keepStaging bool
}

func (p *pipelineParts) orchestrator(emitter install.Emitter) *install.Orchestrator {
	return install.NewOrchestrator(p.store, p.fetcher, p.backend, emitter, p.log,
		install.WithKeepStaging(p.keepStaging))
}

// installInteractive runs a single job behind the Bubble Tea dashboard.
func installInteractive(ctx context.Context, parts *pipelineParts, cfg *config.Config, dev config.DeviceConfig, opts InstallOptions) error {
	req, err := buildRequest(cfg, dev, opts)
	if err != nil {
		return err
	}

	bus := install.NewBus(parts.log)
	events, cancel := bus.Subscribe()
	defer cancel()

	orch := parts.orchestrator(bus)

	runErr := make(chan error, 1)
	go func() {
		_, err := orch.Run(ctx, req)
		runErr <- err
		cancel()
	}()

	if err := runInstallTUI(ctx, events, dev.Name, dev.Driver); err != nil {
		return err
	}
	return <-runErr
}

// installParallel runs one job per device with structured log output.
func installParallel(ctx context.Context, parts *pipelineParts, cfg *config.Config, devices []config.DeviceConfig, opts InstallOptions) error {
	emitter := install.LogEmitter{Log: parts.log}
	orch := parts.orchestrator(emitter)

	tasks := make([]async.Task, 0, len(devices))
	for _, dev := range devices {
		req, err := buildRequest(cfg, dev, opts)
		if err != nil {
			return err
		}
		tasks = append(tasks, async.Task{
			Name: dev.Name,
			Func: func(ctx context.Context) error {
				_, err := orch.Run(ctx, req)
				return err
			},
		})
	}

	return async.RunParallel(ctx, tasks)
}

// buildRequest resolves a device and its catalog entry into an install
// request.
func buildRequest(cfg *config.Config, dev config.DeviceConfig, opts InstallOptions) (install.Request, error) {
	driver, ok := cfg.DriverByUUID(dev.Driver)
	if !ok {
		return install.Request{}, fmt.Errorf("device %q references unknown driver %q", dev.Name, dev.Driver)
	}

	mode := install.ModeInstall
	if opts.Reinstall {
		mode = install.ModeReinstall
	}

	return install.Request{
		DeviceName:     dev.Name,
		DeviceAddr:     dev.Address,
		DevicePort:     dev.Port,
		DeviceURI:      dev.URI,
		DriverUUID:     driver.UUID,
		PayloadURL:     driver.URL,
		PayloadSHA256:  driver.SHA256,
		Layout:         driverstore.Layout(driver.Layout),
		LayoutSubdir:   driver.Subdir,
		DefinitionFile: driver.Definition,
		Mode:           mode,
		QueueName:      dev.QueueName,
		PortName:       dev.PortName,
		KeepStaging:    opts.KeepStaging,
	}, nil
}

// newLogger builds a logr.Logger that writes key-value lines to stderr.
func newLogger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			log.Printf("%s: %s", prefix, args)
		} else {
			log.Print(args)
		}
	}, funcr.Options{})
}
