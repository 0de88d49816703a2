package service

import (
	"errors"

	"github.com/okian/gestura/internal/adapters/repository"
)

// Sentinel errors returned by the service. The HTTP layer maps them to
// status codes.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrNotReady        = errors.New("run has no samples")
	ErrBackpressure    = errors.New("too many pending runs")
	ErrAlreadyFinished = errors.New("run already finished")
	ErrNotFound        = repository.ErrNotFound

	// errCancelledByClient and errShuttingDown are the causes recorded on a
	// cancelled run.
	errCancelledByClient = errors.New("cancelled by client")
	errShuttingDown      = errors.New("service shutting down")
)
