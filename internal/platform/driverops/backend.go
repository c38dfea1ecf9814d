package driverops

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/spoolsmith/spoolsmith/internal/execute"
)

var (
	// ErrUnsupportedPlatform is returned when no backend exists for the
	// current operating system.
	ErrUnsupportedPlatform = errors.New("no driver backend for this platform")

	// ErrDefinitionNotFound is returned when the driver definition file
	// named by the job does not exist in the materialized tree.
	ErrDefinitionNotFound = errors.New("driver definition file not found")

	// ErrStageInconsistent is returned when the OS reported a successful
	// staging but the published artifact cannot be found afterwards.
	ErrStageInconsistent = errors.New("staging reported success but published artifact is missing")
)

// Device identifies the print device a job targets.
type Device struct {
	// Name is the queue-facing device name.
	Name string
	// Host is the device's network address (IP or hostname).
	Host string
	// Port is the raw print port, 9100 when zero.
	Port int
	// URI overrides the derived device URI when set.
	URI string
}

// StagedDriver is the outcome of a successful StageDriver call. PublishedID
// is the identity the OS assigned to the staged driver (an oemNN.inf name on
// Windows, a model path under the CUPS model directory) and is what later
// registration and queue binding refer to.
type StagedDriver struct {
	PublishedID string
	Evidence    []string
}

// Backend is the OS-facing half of the installation pipeline. All methods
// take a context and return an explicit error; implementations must not
// retain the context past the call.
type Backend interface {
	// Name identifies the backend in logs and events.
	Name() string

	// Probe checks that the device is reachable and the local print
	// subsystem is ready to accept work.
	Probe(ctx context.Context, dev Device) error

	// StageDriver copies the driver definition at defPath into the OS
	// driver store and returns the published identity. The definition's
	// containing directory is treated as the source media, so sibling
	// payload files staged next to it are picked up together.
	StageDriver(ctx context.Context, defPath string) (StagedDriver, error)

	// RegisterDriver makes the staged driver available for queue binding
	// under driverName.
	RegisterDriver(ctx context.Context, driverName string, staged StagedDriver) error

	// EnsurePort creates or updates the port binding for the device and
	// returns the port identity queues bind against.
	EnsurePort(ctx context.Context, portName string, dev Device) (string, error)

	// EnsureQueue creates or updates the print queue, binding it to the
	// given port and registered driver.
	EnsureQueue(ctx context.Context, queueName, portID, driverName string) error

	// VerifyQueue confirms the queue exists and is bound to the expected
	// driver. It is the final read-back check of a job.
	VerifyQueue(ctx context.Context, queueName, driverName string) error
}

// Kind selects a backend implementation.
type Kind string

const (
	KindAuto    Kind = "auto"
	KindCUPS    Kind = "cups"
	KindWindows Kind = "windows"
)

// New returns the backend for kind, resolving KindAuto from the running
// platform. The runner executes all external commands the backend issues.
func New(kind Kind, runner execute.Runner) (Backend, error) {
	if kind == "" || kind == KindAuto {
		switch runtime.GOOS {
		case "windows":
			kind = KindWindows
		default:
			kind = KindCUPS
		}
	}
	switch kind {
	case KindCUPS:
		return NewCUPSBackend(runner), nil
	case KindWindows:
		return newWindowsBackend(runner)
	default:
		return nil, fmt.Errorf("unknown driver backend %q: %w", kind, ErrUnsupportedPlatform)
	}
}
