package transform

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrInvalidTrajectory marks an input a transform cannot work on, such as
	// an empty trajectory handed to spatial resampling.
	ErrInvalidTrajectory = errors.New("invalid trajectory")
	ErrInvalidParams     = errors.New("invalid transform params")
)
