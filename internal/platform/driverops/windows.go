//go:build windows

package driverops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/spoolsmith/spoolsmith/internal/execute"
	"github.com/spoolsmith/spoolsmith/internal/util/netutil"
)

var (
	modwinspool                    = windows.NewLazySystemDLL("winspool.drv")
	procGetPrinterDriverDirectoryW = modwinspool.NewProc("GetPrinterDriverDirectoryW")

	modsetupapi          = windows.NewLazySystemDLL("setupapi.dll")
	procSetupCopyOEMInfW = modsetupapi.NewProc("SetupCopyOEMInfW")
)

// spostPath tells SetupCopyOEMInf that the source media location is a
// filesystem path.
const spostPath = 1

// WindowsBackend stages INF drivers through the setup API and manages
// ports and queues via the PrintManagement PowerShell cmdlets.
type WindowsBackend struct {
	runner execute.Runner

	dial func(ctx context.Context, host string, port int, timeout time.Duration) error
}

func newWindowsBackend(runner execute.Runner) (Backend, error) {
	return &WindowsBackend{runner: runner, dial: netutil.CheckPort}, nil
}

func (b *WindowsBackend) Name() string { return "windows" }

// Probe checks the spooler service and device reachability.
func (b *WindowsBackend) Probe(ctx context.Context, dev Device) error {
	res, err := b.powershell(ctx, "(Get-Service -Name Spooler).Status")
	if err != nil {
		return fmt.Errorf("querying spooler service: %w", err)
	}
	if !strings.Contains(res.Stdout, "Running") {
		return fmt.Errorf("print spooler is not running (status %q)", strings.TrimSpace(res.Stdout))
	}

	if dev.Host == "" {
		return fmt.Errorf("device %q has no host address", dev.Name)
	}
	port := dev.Port
	if port == 0 {
		port = netutil.RawPrintPort
	}
	if err := b.dial(ctx, dev.Host, port, 10*time.Second); err != nil {
		return fmt.Errorf("device %s unreachable on port %d: %w", dev.Host, port, err)
	}
	return nil
}

// StageDriver copies the INF at defPath into the system driver store via
// SetupCopyOEMInf and returns the published oemNN.inf identity. The INF's
// containing directory is the source media, so SYS/DLL/CAT files next to it
// travel with the INF.
func (b *WindowsBackend) StageDriver(_ context.Context, defPath string) (StagedDriver, error) {
	info, err := os.Stat(defPath)
	if err != nil {
		return StagedDriver{}, fmt.Errorf("%w: %s", ErrDefinitionNotFound, defPath)
	}
	if info.IsDir() {
		return StagedDriver{}, fmt.Errorf("%w: %s is a directory", ErrDefinitionNotFound, defPath)
	}

	abs, err := filepath.Abs(defPath)
	if err != nil {
		return StagedDriver{}, fmt.Errorf("resolving definition path: %w", err)
	}

	published, err := setupCopyOEMInf(abs)
	if err != nil {
		return StagedDriver{}, fmt.Errorf("staging %s: %w", filepath.Base(abs), err)
	}

	// The published name must exist under the system INF directory, or the
	// staging did not actually take.
	infDir := filepath.Join(os.Getenv("SystemRoot"), "INF")
	publishedPath := filepath.Join(infDir, published)
	if _, err := os.Stat(publishedPath); err != nil {
		return StagedDriver{}, fmt.Errorf("%w: %s", ErrStageInconsistent, publishedPath)
	}

	driverDir, dirErr := printerDriverDirectory()

	ev := []string{
		"source media: " + filepath.Dir(abs),
		"published inf: " + publishedPath,
	}
	if dirErr == nil {
		ev = append(ev, "driver directory: "+driverDir)
	}

	return StagedDriver{PublishedID: published, Evidence: ev}, nil
}

// RegisterDriver adds the staged driver to the spooler under driverName.
func (b *WindowsBackend) RegisterDriver(ctx context.Context, driverName string, staged StagedDriver) error {
	infDir := filepath.Join(os.Getenv("SystemRoot"), "INF")
	cmd := fmt.Sprintf("Add-PrinterDriver -Name %s -InfPath %s",
		psQuote(driverName), psQuote(filepath.Join(infDir, staged.PublishedID)))
	if _, err := b.powershell(ctx, cmd); err != nil {
		return fmt.Errorf("registering driver %q: %w", driverName, err)
	}
	return nil
}

// EnsurePort creates the TCP/IP port if it does not already exist.
func (b *WindowsBackend) EnsurePort(ctx context.Context, portName string, dev Device) (string, error) {
	if dev.Host == "" {
		return "", fmt.Errorf("device %q has no host address", dev.Name)
	}
	cmd := fmt.Sprintf(
		"if (-not (Get-PrinterPort -Name %[1]s -ErrorAction SilentlyContinue)) { Add-PrinterPort -Name %[1]s -PrinterHostAddress %[2]s }",
		psQuote(portName), psQuote(dev.Host))
	if _, err := b.powershell(ctx, cmd); err != nil {
		return "", fmt.Errorf("ensuring port %q: %w", portName, err)
	}
	return portName, nil
}

// EnsureQueue creates the queue or rebinds an existing one onto the driver.
func (b *WindowsBackend) EnsureQueue(ctx context.Context, queueName, portID, driverName string) error {
	cmd := fmt.Sprintf(
		"if (Get-Printer -Name %[1]s -ErrorAction SilentlyContinue) { Set-Printer -Name %[1]s -DriverName %[2]s -PortName %[3]s } else { Add-Printer -Name %[1]s -DriverName %[2]s -PortName %[3]s }",
		psQuote(queueName), psQuote(driverName), psQuote(portID))
	if _, err := b.powershell(ctx, cmd); err != nil {
		return fmt.Errorf("binding queue %q: %w", queueName, err)
	}
	return nil
}

// VerifyQueue reads the queue back and checks its driver binding.
func (b *WindowsBackend) VerifyQueue(ctx context.Context, queueName, driverName string) error {
	cmd := fmt.Sprintf("(Get-Printer -Name %s).DriverName", psQuote(queueName))
	res, err := b.powershell(ctx, cmd)
	if err != nil {
		return fmt.Errorf("queue %q not present: %w", queueName, err)
	}
	if got := strings.TrimSpace(res.Stdout); got != driverName {
		return fmt.Errorf("queue %q bound to driver %q, want %q", queueName, got, driverName)
	}
	return nil
}

func (b *WindowsBackend) powershell(ctx context.Context, command string) (execute.Result, error) {
	return b.runner.Run(ctx, "powershell.exe",
		"-NoProfile", "-NonInteractive", "-Command", command)
}

// psQuote single-quotes a value for PowerShell, doubling embedded quotes.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// setupCopyOEMInf publishes the INF into the driver store and returns the
// oemNN.inf name the system assigned to it.
func setupCopyOEMInf(infPath string) (string, error) {
	src, err := windows.UTF16PtrFromString(infPath)
	if err != nil {
		return "", err
	}
	media, err := windows.UTF16PtrFromString(filepath.Dir(infPath))
	if err != nil {
		return "", err
	}

	buf := make([]uint16, windows.MAX_PATH)
	var component *uint16

	ret, _, callErr := procSetupCopyOEMInfW.Call(
		uintptr(unsafe.Pointer(src)),
		uintptr(unsafe.Pointer(media)),
		spostPath,
		0,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
		0,
		uintptr(unsafe.Pointer(&component)),
	)
	if ret == 0 {
		return "", fmt.Errorf("SetupCopyOEMInf: %w", callErr)
	}

	dest := windows.UTF16ToString(buf)
	return filepath.Base(dest), nil
}

// printerDriverDirectory asks the spooler where staged driver payloads live.
// The first call intentionally passes no buffer; the spooler answers with
// ERROR_INSUFFICIENT_BUFFER and the required size, and the call is retried
// exactly once with a buffer of that size. Any other failure, or a second
// undersized answer, is terminal.
func printerDriverDirectory() (string, error) {
	var needed uint32

	ret, _, callErr := procGetPrinterDriverDirectoryW.Call(
		0, 0, 1, 0, 0,
		uintptr(unsafe.Pointer(&needed)),
	)
	if ret != 0 {
		return "", fmt.Errorf("GetPrinterDriverDirectory: unexpected success with empty buffer")
	}
	if callErr != windows.ERROR_INSUFFICIENT_BUFFER {
		return "", fmt.Errorf("GetPrinterDriverDirectory: %w", callErr)
	}
	if needed == 0 {
		return "", fmt.Errorf("GetPrinterDriverDirectory: zero buffer size reported")
	}

	buf := make([]uint16, (needed+1)/2)
	ret, _, callErr = procGetPrinterDriverDirectoryW.Call(
		0, 0, 1,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(needed),
		uintptr(unsafe.Pointer(&needed)),
	)
	if ret == 0 {
		return "", fmt.Errorf("GetPrinterDriverDirectory (retry): %w", callErr)
	}

	return windows.UTF16ToString(buf), nil
}
