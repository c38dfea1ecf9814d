// Package execute runs external OS commands with captured output and an
// enforced overall timeout. OS-facing steps (queue binding, port management,
// driver registration) shell out through this package so their evidence
// (stdout, stderr, exit status) can be attached to failure events.
package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single command execution unless the caller's
// context is stricter.
const DefaultTimeout = 2 * time.Minute

// waitDelay is how long after context cancellation the process gets to exit
// before it is forcibly killed. The subsequent Wait is unconditional, so a
// timed-out command never leaves an orphaned process.
const waitDelay = 5 * time.Second

// Result captures everything a command produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CommandError reports a command that ran but failed (non-zero exit or
// timeout). It carries the captured output as evidence.
type CommandError struct {
	Command string
	Result  Result
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed (exit %d): %v", e.Command, e.Result.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Runner runs external commands. The interface exists so OS backends can be
// tested with a fake runner.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// Executor is the real Runner backed by os/exec.
type Executor struct {
	// Timeout bounds each Run call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// New returns an Executor with the default timeout.
func New() *Executor {
	return &Executor{Timeout: DefaultTimeout}
}

// Run executes the command and captures its output. On timeout the process
// is killed and reaped before Run returns.
func (e *Executor) Run(ctx context.Context, name string, args ...string) (Result, error) {
	timeout := e.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	display := name
	if len(args) > 0 {
		display = name + " " + strings.Join(args, " ")
	}

	if runErr == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(runErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case ctx.Err() != nil:
		result.ExitCode = -1
		runErr = fmt.Errorf("timed out after %v: %w", timeout, ctx.Err())
	default:
		result.ExitCode = -1
	}

	return result, &CommandError{Command: display, Result: result, Err: runErr}
}
