package smoketest

import "time"

// Config holds configuration for a smoke test against a running service.
type Config struct {
	BaseURL      string        // Base URL of the service
	Runs         int           // Number of runs to submit
	Exemplars    int           // Exemplars per run
	Points       int           // Points per exemplar
	Repetitions  int           // Repetitions per exemplar
	Chain        string        // Chain every run uses
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between status polls
	OutputFile   string        // Optional file for the samples of the first run
	Verbose      bool          // Log every run as it finishes
}

// Stats holds smoke test statistics.
type Stats struct {
	RunsSubmitted  int
	RunsDuplicate  int
	RunsSucceeded  int
	RunsFailed     int
	RunsRejected   int
	SamplesFetched int
	SamplesSkipped int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// outcome is what the smoke test observed for one run.
type outcome struct {
	id        string
	requestID string
	status    string
	samples   int
	skipped   int
	err       error
}
