package repository

import "errors"

// Sentinel kinds for run store errors.
var (
	ErrNotFound  = errors.New("run not found")
	ErrConflict  = errors.New("run already exists")
	ErrStoreFull = errors.New("run store is full")
)
