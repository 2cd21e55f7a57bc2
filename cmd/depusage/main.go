package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	apperrors "depusage/internal/errors"
)

// Process exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitFindings = 2
)

// findingsError signals that --fail-on-findings tripped.
type findingsError struct {
	variants []string
}

func (e *findingsError) Error() string {
	return fmt.Sprintf("dependency findings in %d variant(s): %v", len(e.variants), e.variants)
}

func main() {
	// A missing .env is fine; variables already in the environment win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command tree and maps the outcome to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	defer closeLogger()

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var findings *findingsError
	if errors.As(err, &findings) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFindings
	}

	logger.Debug("Command failed", "code", apperrors.CodeOf(err), "error", err.Error())
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitError
}
