// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/gestura/internal/domain/augment"
	"github.com/okian/gestura/internal/domain/trajectory"
)

// ErrInvalidTransition is returned when a run is moved to a status it cannot
// reach from its current one.
var ErrInvalidTransition = errors.New("invalid run status transition")

// RunStatus is the lifecycle state of an augmentation run.
type RunStatus string

// Run statuses.
const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s RunStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether a run in status s may move to next.
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case StatusQueued:
		return next == StatusRunning || next == StatusCancelled
	case StatusRunning:
		return next.IsTerminal()
	}
	return false
}

// Run is one submitted augmentation request and its outcome.
type Run struct {
	ID              string
	RequestID       string // client idempotency key, optional
	Chain           string
	Repetitions     int
	Seed            uint64 // requested seed; replaced by the effective seed once running finishes
	NormalizePoints int
	Exemplars       []trajectory.Exemplar

	Status   RunStatus
	Progress int
	Total    int
	Error    string
	Retries  int
	Skipped  []augment.SkippedSample
	Samples  []trajectory.Sample

	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// Transition moves the run to next, stamping StartedAt or FinishedAt with now.
func (r *Run) Transition(next RunStatus, now time.Time) error {
	if !r.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	if next == StatusRunning {
		r.StartedAt = now
	}
	if next.IsTerminal() {
		r.FinishedAt = now
	}
	return nil
}

// Clone returns a copy that shares the immutable exemplar and sample data.
func (r *Run) Clone() *Run {
	c := *r
	return &c
}

// Job is what flows through the queue: a reference to a stored run.
type Job struct {
	RunID      string
	EnqueuedAt time.Time
}
