// Package main provides the bucket-check CLI, which validates that a
// repository is a clean Scoop bucket: the expected layout is present, no
// files from the main Python project or other package managers leaked in,
// and every manifest is well formed.
//
// Usage:
//
//	bucket-check [root] [flags]
//	bucket-check version
//
// Exit codes:
//   - 0 : all checks passed
//   - 1 : at least one check failed (warnings count in --strict mode)
//   - 2 : usage, configuration or root errors
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bucket-check/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// ExitError carries the process exit code out of a command.
type ExitError struct {
	Code int
	Err  error // nil when the report already told the story
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func main() {
	// a missing .env is the normal case
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup config.LookupFunc) int {
	cmd := newRootCmd(stdout, stderr, lookup)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var xe *ExitError
	if errors.As(err, &xe) {
		if xe.Err != nil {
			fmt.Fprintln(stderr, "bucket-check:", xe.Err)
		}
		return xe.Code
	}
	// cobra argument and flag errors
	fmt.Fprintln(stderr, "bucket-check:", err)
	fmt.Fprintln(stderr, "Run 'bucket-check --help' for usage.")
	return 2
}
