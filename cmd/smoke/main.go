package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/gestura/internal/smoketest"
)

// Default configuration constants.
const (
	defaultRuns        = 20
	defaultExemplars   = 6
	defaultPoints      = 32
	defaultReps        = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultPoll        = 100 * time.Millisecond
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		chain      = flag.String("chain", "AVC", "Chain every run uses")
		runs       = flag.Int("runs", defaultRuns, "Number of runs to submit")
		exemplars  = flag.Int("exemplars", defaultExemplars, "Exemplars per run")
		points     = flag.Int("points", defaultPoints, "Points per exemplar")
		reps       = flag.Int("reps", defaultReps, "Repetitions per exemplar")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		poll       = flag.Duration("poll", defaultPoll, "Delay between status polls")
		outputFile = flag.String("output", "", "File for the samples of the first run")
		logFile    = flag.String("log", "", "Log file for test output")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoketest.ShowHelp()
		return
	}

	if err := smoketest.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &smoketest.Config{
		BaseURL:      *baseURL,
		Runs:         *runs,
		Exemplars:    *exemplars,
		Points:       *points,
		Repetitions:  *reps,
		Chain:        *chain,
		Workers:      *workers,
		Timeout:      *timeout,
		PollInterval: *poll,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
	}

	if _, err := smoketest.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Smoke test failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
