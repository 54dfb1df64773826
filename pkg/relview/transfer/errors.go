package transfer

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// ExitError reports a transfer subprocess that exited non-zero or was
// killed by a signal. It is the error kind the CLI maps to its
// external-failure exit code.
type ExitError struct {
	// Cmd is the command line that failed.
	Cmd string

	// ExitCode is the process exit code, or -1 when killed by a signal.
	ExitCode int

	// Signal names the terminating signal, empty for a plain exit.
	Signal string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("%s killed by signal %s", e.Cmd, e.Signal)
	}
	return fmt.Sprintf("%s exited with code %d", e.Cmd, e.ExitCode)
}

// wrapExit converts an exec error into an ExitError, passing through
// errors that carry no exit status (e.g. command not found).
func wrapExit(cmdline string, err error) error {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("%s: %w", cmdline, err)
	}

	out := &ExitError{Cmd: cmdline, ExitCode: exitErr.ExitCode()}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		out.Signal = ws.Signal().String()
	}
	return out
}
