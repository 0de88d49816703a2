// Package types contains the request and response shapes of the HTTP API.
package types

import (
	"time"

	"github.com/okian/gestura/internal/domain/augment"
	"github.com/okian/gestura/internal/domain/model"
	"github.com/okian/gestura/internal/domain/pipeline"
	"github.com/okian/gestura/internal/domain/trajectory"
)

// SubmitRunRequest is the body of POST /runs.
type SubmitRunRequest struct {
	RequestID       string                `json:"request_id,omitempty"`
	Chain           string                `json:"chain"`
	Repetitions     int                   `json:"repetitions,omitempty"`
	Seed            uint64                `json:"seed,omitempty"`
	NormalizePoints int                   `json:"normalize_points,omitempty"`
	Exemplars       []trajectory.Exemplar `json:"exemplars"`
}

// RunView is the public state of a run.
type RunView struct {
	ID          string     `json:"id"`
	RequestID   string     `json:"request_id,omitempty"`
	Chain       string     `json:"chain"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Total       int        `json:"total"`
	Repetitions int        `json:"repetitions"`
	Seed        uint64     `json:"seed,omitempty"`
	Error       string     `json:"error,omitempty"`
	Skipped     int        `json:"skipped"`
	Retries     int        `json:"retries"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// NewRunView projects a run onto its public view.
func NewRunView(r *model.Run) RunView {
	v := RunView{
		ID:          r.ID,
		RequestID:   r.RequestID,
		Chain:       r.Chain,
		Status:      string(r.Status),
		Progress:    r.Progress,
		Total:       r.Total,
		Repetitions: r.Repetitions,
		Seed:        r.Seed,
		Error:       r.Error,
		Skipped:     len(r.Skipped),
		Retries:     r.Retries,
		CreatedAt:   r.CreatedAt,
	}
	if !r.StartedAt.IsZero() {
		t := r.StartedAt
		v.StartedAt = &t
	}
	if !r.FinishedAt.IsZero() {
		t := r.FinishedAt
		v.FinishedAt = &t
	}
	return v
}

// SamplesView is the body of GET /runs/{id}/samples.
type SamplesView struct {
	RunID   string                  `json:"run_id"`
	Seed    uint64                  `json:"seed"`
	Count   int                     `json:"count"`
	Samples []trajectory.Sample     `json:"samples"`
	Skipped []augment.SkippedSample `json:"skipped,omitempty"`
}

// ChainInfo describes one chain in GET /chains.
type ChainInfo = pipeline.Info

// Stats is the body of GET /stats.
type Stats struct {
	Runs             map[string]int `json:"runs"`
	StoredRuns       int            `json:"stored_runs"`
	ActiveRuns       int            `json:"active_runs"`
	QueueSize        int            `json:"queue_size"`
	QueueCapacity    int            `json:"queue_capacity"`
	Workers          int            `json:"workers"`
	SamplesGenerated int64          `json:"samples_generated"`
	Uptime           string         `json:"uptime"`
}
