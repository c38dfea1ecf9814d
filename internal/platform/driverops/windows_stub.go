//go:build !windows

package driverops

import (
	"fmt"

	"github.com/spoolsmith/spoolsmith/internal/execute"
)

func newWindowsBackend(execute.Runner) (Backend, error) {
	return nil, fmt.Errorf("windows driver backend: %w", ErrUnsupportedPlatform)
}
