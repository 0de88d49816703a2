package augment

import (
	"errors"

	"github.com/okian/gestura/internal/domain/transform"
)

// Sentinel kinds for augmentation errors.
var (
	// ErrInvalidConfig marks a request rejected before any work started.
	ErrInvalidConfig = errors.New("invalid augmentation config")
	// ErrCancelled is returned when the caller's context ends a run early.
	ErrCancelled = errors.New("augmentation cancelled")
	// ErrSampleFailed wraps the cause of a sample failure under the Abort policy.
	ErrSampleFailed = errors.New("sample failed")
	// ErrInvalidTrajectory is the transform error for an empty or unusable trajectory.
	ErrInvalidTrajectory = transform.ErrInvalidTrajectory
)
