package cmd

import (
	"fmt"
	"os"
)

// Semantic exit codes for the CLI.
const (
	ExitFailure       = 1
	ExitConfigInvalid = 3
	ExitAuthFailed    = 4
)

// ExitWithCodeStderr writes a fatal error to stderr and exits. Used for
// failures before or outside the logger's lifetime.
func ExitWithCodeStderr(code int, msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
	}
	os.Exit(code)
}
