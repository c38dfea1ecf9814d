package driverops

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spoolsmith/spoolsmith/internal/execute"
	"github.com/spoolsmith/spoolsmith/internal/util/netutil"
)

// DefaultModelDir is where CUPS looks for locally installed PPD models.
const DefaultModelDir = "/usr/share/cups/model"

// modelSubdir namespaces staged PPDs so they never collide with
// distribution-shipped models.
const modelSubdir = "spoolsmith"

// CUPSBackend drives the CUPS scheduler through lpadmin, lpinfo and lpstat.
type CUPSBackend struct {
	runner   execute.Runner
	modelDir string

	// dial is swapped in tests to avoid real sockets.
	dial func(ctx context.Context, host string, port int, timeout time.Duration) error
}

// NewCUPSBackend returns a backend using the default model directory.
func NewCUPSBackend(runner execute.Runner) *CUPSBackend {
	return &CUPSBackend{
		runner:   runner,
		modelDir: DefaultModelDir,
		dial:     netutil.CheckPort,
	}
}

func (b *CUPSBackend) Name() string { return "cups" }

// Probe confirms the scheduler is running and the device answers on its raw
// print port.
func (b *CUPSBackend) Probe(ctx context.Context, dev Device) error {
	if _, err := b.runner.Run(ctx, "lpstat", "-r"); err != nil {
		return fmt.Errorf("cups scheduler not ready: %w", err)
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

// StageDriver copies the PPD at defPath into the model directory. The
// published identity is the model path relative to the model root, which is
// what lpadmin's -m flag expects.
func (b *CUPSBackend) StageDriver(_ context.Context, defPath string) (StagedDriver, error) {
	info, err := os.Stat(defPath)
	if err != nil {
		return StagedDriver{}, fmt.Errorf("%w: %s", ErrDefinitionNotFound, defPath)
	}
	if info.IsDir() {
		return StagedDriver{}, fmt.Errorf("%w: %s is a directory", ErrDefinitionNotFound, defPath)
	}

	destDir := filepath.Join(b.modelDir, modelSubdir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return StagedDriver{}, fmt.Errorf("creating model directory: %w", err)
	}

	base := filepath.Base(defPath)
	dest := filepath.Join(destDir, base)
	if err := copyRegularFile(defPath, dest); err != nil {
		return StagedDriver{}, fmt.Errorf("copying model %s: %w", base, err)
	}

	// Read back the copy. A success without a readable artifact means the
	// staging did not actually take.
	if _, err := os.Stat(dest); err != nil {
		return StagedDriver{}, fmt.Errorf("%w: %s", ErrStageInconsistent, dest)
	}

	return StagedDriver{
		PublishedID: modelSubdir + "/" + base,
		Evidence: []string{
			"source media: " + filepath.Dir(defPath),
			"staged model: " + dest,
		},
	}, nil
}

// RegisterDriver confirms the staged model is visible to the scheduler.
// CUPS binds drivers at queue creation, so registration here is a read-back
// of the model listing rather than a separate install step.
func (b *CUPSBackend) RegisterDriver(ctx context.Context, driverName string, staged StagedDriver) error {
	res, err := b.runner.Run(ctx, "lpinfo", "-m")
	if err != nil {
		return fmt.Errorf("listing driver models: %w", err)
	}
	if !strings.Contains(res.Stdout, staged.PublishedID) {
		return fmt.Errorf("model %s not listed by scheduler for driver %q", staged.PublishedID, driverName)
	}
	return nil
}

// EnsurePort derives the device URI queues bind against. CUPS has no
// standalone port objects, so the URI itself is the port identity.
func (b *CUPSBackend) EnsurePort(_ context.Context, _ string, dev Device) (string, error) {
	if dev.URI != "" {
		return dev.URI, nil
	}
	if dev.Host == "" {
		return "", fmt.Errorf("device %q has no host address", dev.Name)
	}
	port := dev.Port
	if port == 0 {
		port = netutil.RawPrintPort
	}
	return "socket://" + net.JoinHostPort(dev.Host, fmt.Sprint(port)), nil
}

// EnsureQueue creates or updates the queue. lpadmin -p is idempotent, so
// re-running an install converges the queue onto the current driver.
func (b *CUPSBackend) EnsureQueue(ctx context.Context, queueName, portID, driverName string) error {
	_, err := b.runner.Run(ctx, "lpadmin",
		"-p", queueName,
		"-E",
		"-v", portID,
		"-m", driverName,
	)
	if err != nil {
		return fmt.Errorf("binding queue %s: %w", queueName, err)
	}
	return nil
}

// VerifyQueue reads the queue back through lpstat.
func (b *CUPSBackend) VerifyQueue(ctx context.Context, queueName, _ string) error {
	res, err := b.runner.Run(ctx, "lpstat", "-p", queueName)
	if err != nil {
		return fmt.Errorf("queue %s not present: %w", queueName, err)
	}
	if strings.Contains(res.Stdout, "disabled") {
		return fmt.Errorf("queue %s exists but is disabled", queueName)
	}
	return nil
}

func copyRegularFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
