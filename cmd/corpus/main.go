package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/alnah/go-accent-corpus/internal/cli"
	"github.com/alnah/go-accent-corpus/internal/config"
	"github.com/alnah/go-accent-corpus/internal/features"
	"github.com/alnah/go-accent-corpus/internal/ffmpeg"
	"github.com/alnah/go-accent-corpus/internal/interrupt"
	"github.com/alnah/go-accent-corpus/internal/metadata"
	"github.com/alnah/go-accent-corpus/internal/segment"
	"github.com/alnah/go-accent-corpus/internal/table"
	"github.com/alnah/go-accent-corpus/internal/validtimes"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitIntegrity  = 5
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels ctx so the stage can save progress; a second
	// one within the window exits at once.
	handler, ctx := interrupt.New(context.Background())
	defer handler.Stop()

	env := cli.DefaultEnv()
	rootCmd := cli.RootCmd(env, fmt.Sprintf("%s (commit: %s)", version, commit))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		handler.Stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2).
	if isCobraUsageError(err) || errors.Is(err, cli.ErrUnknownSource) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, config.ErrNotFound) ||
		errors.Is(err, cli.ErrExtractorMissing) || errors.Is(err, cli.ErrSettingMissing) {
		return ExitSetup
	}

	// Validation and schema errors (ExitValidation = 4).
	if errors.Is(err, config.ErrInvalid) || errors.Is(err, table.ErrMissingColumns) ||
		errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, validtimes.ErrMalformedTimeToken) ||
		errors.Is(err, segment.ErrInvalidSource) {
		return ExitValidation
	}

	// Data integrity errors (ExitIntegrity = 5).
	if errors.Is(err, metadata.ErrCardinalityViolation) || errors.Is(err, features.ErrInsufficientGroups) ||
		errors.Is(err, features.ErrFeatureLength) || errors.Is(err, features.ErrEmptyDataset) ||
		errors.Is(err, cli.ErrAuditFailed) {
		return ExitIntegrity
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"unknown command",        // Subcommand doesn't exist
	"unknown flag",           // Flag doesn't exist
	"unknown shorthand",      // Short flag doesn't exist
	"flag needs an argument", // Flag provided without value
	"invalid argument",       // Invalid flag value type
	"accepts ",               // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",      // Too few arguments
	"requires at most",       // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
