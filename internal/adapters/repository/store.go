// Package repository stores augmentation runs.
package repository

import (
	"context"

	"github.com/okian/gestura/internal/domain/model"
)

// Store provides read/write access to runs. Every run handed out is a copy;
// changes go through Update.
type Store interface {
	// Create adds a new run. Returns ErrConflict if the id is taken and
	// ErrStoreFull if the store is at capacity with unfinished runs.
	Create(ctx context.Context, run *model.Run) error

	// Get returns the run with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Run, error)

	// Update applies fn to the stored run under the store lock and returns
	// the updated copy. If fn fails the run is left unchanged.
	Update(ctx context.Context, id string, fn func(*model.Run) error) (*model.Run, error)

	// Delete removes a run. Returns ErrNotFound if it is unknown.
	Delete(ctx context.Context, id string) error

	// List returns every run ordered by creation, oldest first.
	List(ctx context.Context) []*model.Run

	// CountByStatus returns how many runs are in each status.
	CountByStatus(ctx context.Context) map[model.RunStatus]int

	// Count returns the number of stored runs.
	Count(ctx context.Context) int
}
