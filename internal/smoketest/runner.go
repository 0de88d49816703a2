package smoketest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/gestura/internal/domain/types"
	"github.com/okian/gestura/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// File permission constants.
const (
	directoryPermission = 0750
	canvasScale         = 100
)

// submission pairs a request with the run the service created for it.
type submission struct {
	req   types.SubmitRunRequest
	runID string
}

// Run executes the complete smoke test and returns its statistics. It fails
// when any run fails or when returned samples do not match their request.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	log := logger.Get().Named("smoketest")
	stats := &Stats{StartTime: time.Now()}
	c := newClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout)

	log.Info(ctx, "starting gestura smoke test",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("chain", cfg.Chain),
		logger.Int("runs", cfg.Runs),
		logger.Int("exemplars", cfg.Exemplars),
		logger.Int("repetitions", cfg.Repetitions),
		logger.Int("workers", cfg.Workers),
	)

	if err := checkHealth(ctx, c); err != nil {
		return stats, err
	}

	subs := buildSubmissions(cfg)
	if err := submitAll(ctx, c, cfg, subs, stats); err != nil {
		return stats, err
	}
	if err := checkDuplicate(ctx, c, subs); err != nil {
		return stats, err
	}

	outcomes, err := awaitAll(ctx, c, cfg, subs)
	if err != nil {
		return stats, err
	}

	var failures []error
	for _, o := range outcomes {
		if o.id == "" {
			continue
		}
		switch {
		case o.err != nil:
			stats.RunsFailed++
			failures = append(failures, o.err)
		default:
			stats.RunsSucceeded++
			stats.SamplesFetched += o.samples
			stats.SamplesSkipped += o.skipped
		}
		if cfg.Verbose {
			log.Info(ctx, "run finished",
				logger.String("run", o.id),
				logger.String("status", o.status),
				logger.Int("samples", o.samples),
			)
		}
	}

	if cfg.OutputFile != "" && stats.RunsSucceeded > 0 {
		for _, s := range subs {
			if s.runID == "" {
				continue
			}
			if err := saveSamples(ctx, c, s.runID, cfg.OutputFile); err != nil {
				log.Warn(ctx, "failed to save samples", logger.Error(err))
			}
			break
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)

	if len(failures) > 0 {
		return stats, errors.Join(failures...)
	}
	return stats, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg.BaseURL == "":
		return fmt.Errorf("%w: base url is empty", ErrInvalidConfig)
	case cfg.Runs < 1:
		return fmt.Errorf("%w: runs %d must be >= 1", ErrInvalidConfig, cfg.Runs)
	case cfg.Exemplars < 1:
		return fmt.Errorf("%w: exemplars %d must be >= 1", ErrInvalidConfig, cfg.Exemplars)
	case cfg.Points < 3:
		return fmt.Errorf("%w: points %d must be >= 3", ErrInvalidConfig, cfg.Points)
	case cfg.Repetitions < 1:
		return fmt.Errorf("%w: repetitions %d must be >= 1", ErrInvalidConfig, cfg.Repetitions)
	case cfg.Workers < 1:
		return fmt.Errorf("%w: workers %d must be >= 1", ErrInvalidConfig, cfg.Workers)
	case cfg.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// checkHealth verifies the service is running.
func checkHealth(ctx context.Context, c *client) error {
	status, err := c.getJSON(ctx, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: /healthz answered %d", ErrUnhealthy, status)
	}
	return nil
}

// buildSubmissions generates one request per run. Run i uses seed i+1 so a
// failing smoke test can be replayed.
func buildSubmissions(cfg *Config) []*submission {
	subs := make([]*submission, cfg.Runs)
	for i := range subs {
		rng := rand.New(rand.NewPCG(uint64(i), 0))
		subs[i] = &submission{req: types.SubmitRunRequest{
			RequestID:   uuid.NewString(),
			Chain:       cfg.Chain,
			Repetitions: cfg.Repetitions,
			Seed:        uint64(i + 1),
			Exemplars:   exemplars(rng, cfg.Exemplars, cfg.Points, canvasScale),
		}}
	}
	return subs
}

// submitAll posts every submission concurrently. Rejected runs (429) keep an
// empty runID and are counted, not treated as failures.
func submitAll(ctx context.Context, c *client, cfg *Config, subs []*submission, stats *Stats) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, s := range subs {
		g.Go(func() error {
			var view types.RunView
			status, err := c.postJSON(gctx, "/runs", s.req, &view)
			if err != nil {
				return fmt.Errorf("submit %s: %w", s.req.RequestID, err)
			}

			mu.Lock()
			defer mu.Unlock()
			switch status {
			case http.StatusAccepted:
				stats.RunsSubmitted++
				s.runID = view.ID
			case http.StatusOK:
				stats.RunsDuplicate++
				s.runID = view.ID
			case http.StatusTooManyRequests:
				stats.RunsRejected++
			default:
				return fmt.Errorf("%w: submit %s answered %d", ErrUnexpectedStatus, s.req.RequestID, status)
			}
			return nil
		})
	}
	return g.Wait()
}

// checkDuplicate resubmits the first accepted request and expects the same run back.
func checkDuplicate(ctx context.Context, c *client, subs []*submission) error {
	for _, s := range subs {
		if s.runID == "" {
			continue
		}
		var view types.RunView
		status, err := c.postJSON(ctx, "/runs", s.req, &view)
		if err != nil {
			return fmt.Errorf("resubmit %s: %w", s.req.RequestID, err)
		}
		if status != http.StatusOK || view.ID != s.runID {
			return fmt.Errorf("%w: resubmitting %s answered %d with run %q, want 200 with %q",
				ErrVerification, s.req.RequestID, status, view.ID, s.runID)
		}
		return nil
	}
	return nil
}

// awaitAll polls every accepted run until it finishes and verifies its samples.
func awaitAll(ctx context.Context, c *client, cfg *Config, subs []*submission) ([]outcome, error) {
	out := make([]outcome, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, s := range subs {
		if s.runID == "" {
			continue
		}
		g.Go(func() error {
			o, err := await(gctx, c, cfg.PollInterval, s)
			if err != nil {
				return err
			}
			out[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func await(ctx context.Context, c *client, every time.Duration, s *submission) (outcome, error) {
	o := outcome{id: s.runID, requestID: s.req.RequestID}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var view types.RunView
	for {
		status, err := c.getJSON(ctx, "/runs/"+s.runID, &view)
		if err != nil {
			return o, fmt.Errorf("poll %s: %w", s.runID, err)
		}
		if status != http.StatusOK {
			return o, fmt.Errorf("%w: poll %s answered %d", ErrUnexpectedStatus, s.runID, status)
		}
		if view.Status != "queued" && view.Status != "running" {
			break
		}
		select {
		case <-ctx.Done():
			return o, ctx.Err()
		case <-ticker.C:
		}
	}

	o.status = view.Status
	if view.Status != "succeeded" {
		o.err = fmt.Errorf("run %s ended %s: %s", s.runID, view.Status, view.Error)
		return o, nil
	}

	var samples types.SamplesView
	status, err := c.getJSON(ctx, "/runs/"+s.runID+"/samples", &samples)
	if err != nil {
		return o, fmt.Errorf("samples %s: %w", s.runID, err)
	}
	if status != http.StatusOK {
		return o, fmt.Errorf("%w: samples %s answered %d", ErrUnexpectedStatus, s.runID, status)
	}
	o.samples = samples.Count
	o.skipped = len(samples.Skipped)
	o.err = verify(s.req, samples)
	return o, nil
}

// verify checks the sample count, labels and ordering against the request.
func verify(req types.SubmitRunRequest, got types.SamplesView) error {
	want := len(req.Exemplars) * req.Repetitions
	if got.Count+len(got.Skipped) != want {
		return fmt.Errorf("%w: run %s returned %d samples and %d skipped, want %d in total",
			ErrVerification, got.RunID, got.Count, len(got.Skipped), want)
	}
	if got.Count != len(got.Samples) {
		return fmt.Errorf("%w: run %s reports %d samples but carries %d", ErrVerification, got.RunID, got.Count, len(got.Samples))
	}
	if req.Seed != 0 && got.Seed != req.Seed {
		return fmt.Errorf("%w: run %s used seed %d, want %d", ErrVerification, got.RunID, got.Seed, req.Seed)
	}
	if len(got.Skipped) > 0 {
		return nil
	}
	for i, s := range got.Samples {
		if label := req.Exemplars[i/req.Repetitions].Label; s.Label != label {
			return fmt.Errorf("%w: run %s sample %d is labeled %q, want %q", ErrVerification, got.RunID, i, s.Label, label)
		}
		if len(s.Points) == 0 {
			return fmt.Errorf("%w: run %s sample %d is empty", ErrVerification, got.RunID, i)
		}
	}
	return nil
}

// saveSamples writes the samples of one run to filename as JSON.
func saveSamples(ctx context.Context, c *client, runID, filename string) error {
	var samples types.SamplesView
	if _, err := c.getJSON(ctx, "/runs/"+runID+"/samples", &samples); err != nil {
		return err
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal samples: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	logger.Get().Info(ctx, "samples saved to file", logger.String("filename", filename))
	return nil
}

// logStats prints the final test statistics.
func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var samplesPerSecond float64
	if stats.Duration > 0 {
		samplesPerSecond = float64(stats.SamplesFetched) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("runsSubmitted", stats.RunsSubmitted),
		logger.Int("runsDuplicate", stats.RunsDuplicate),
		logger.Int("runsRejected", stats.RunsRejected),
		logger.Int("runsSucceeded", stats.RunsSucceeded),
		logger.Int("runsFailed", stats.RunsFailed),
		logger.Int("samplesFetched", stats.SamplesFetched),
		logger.Int("samplesSkipped", stats.SamplesSkipped),
		logger.Duration("duration", stats.Duration),
		logger.Float64("samplesPerSecond", samplesPerSecond),
	)
}
