package smoketest

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/gestura/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging configures the logger to write to stdout and, when logFile is
// set, to that file as well.
func SetupLogging(logFile string, verbose bool) error {
	level := "info"
	if verbose {
		level = "debug"
	}

	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}

	if err := logger.Init(logger.WithWriter(w), logger.WithLevel(level)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the smoke test tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Gestura Smoke Test
==================

Submits augmentation runs to a running gestura service, waits for them to
finish and checks that every run returns the samples it asked for.

Usage:
  go run ./cmd/smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -chain string
        Chain every run uses (default "AVC")
  -runs int
        Number of runs to submit (default 20)
  -exemplars int
        Exemplars per run (default 6)
  -points int
        Points per exemplar (default 32)
  -reps int
        Repetitions per exemplar (default 50)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -poll duration
        Delay between status polls (default 100ms)
  -output string
        File for the samples of the first run
  -log string
        Log file for test output
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Smoke test with default settings
  go run ./cmd/smoke

  # Many small Gaussian runs
  go run ./cmd/smoke -chain Gaussian -runs 500 -reps 5 -workers 32
`)
}
