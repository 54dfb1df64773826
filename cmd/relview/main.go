// Package main provides the entry point for the relview release mirror CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Cnily03/release-viewer/pkg/relview/transfer"
)

// Process exit codes.
const (
	exitOK         = 0
	exitUsage      = 1
	exitInternal   = 2
	exitSubprocess = 13
	exitInterrupt  = 130
)

// errInternal marks unexpected failures that are not the user's fault.
var errInternal = errors.New("internal error")

func main() {
	os.Exit(run())
}

func run() int {
	err := Execute()
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitCode(err)
}

// exitCode maps an error to the process exit code: interrupted runs,
// failed external subprocesses and internal errors each get their own
// code; everything else is a usage or validation problem.
func exitCode(err error) int {
	var exitErr *transfer.ExitError
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupt
	case errors.As(err, &exitErr):
		return exitSubprocess
	case errors.Is(err, errInternal):
		return exitInternal
	default:
		return exitUsage
	}
}
