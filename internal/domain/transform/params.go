// Package transform implements the stateless geometric transforms applied to
// gesture trajectories during augmentation.
//
// Every transform takes an explicit random source and the Params bounds, and
// returns a new trajectory; inputs are never modified.
package transform

import (
	"fmt"
	"math"
)

// Default bounds, tuned for trajectories in canvas pixel units.
const (
	DefaultNoiseSigma          = 0.8
	DefaultScaleLower          = 0.8
	DefaultScaleUpper          = 1.2
	DefaultResampleMin         = 5
	DefaultPerspectiveMinAngle = -30
	DefaultPerspectiveMaxAngle = 30
	DefaultRotationMinAngle    = -20
	DefaultRotationMaxAngle    = 20
	DefaultSkipProbability     = 0.3
	DefaultNormalizePoints     = 64
)

// Params bounds the random parameters drawn by each transform. Angles are
// integer degrees; the draw range is [min, max), or exactly min when the two
// are equal.
type Params struct {
	NoiseSigma          float64 `json:"noise_sigma"`
	ScaleLower          float64 `json:"scaling_lower_bound"`
	ScaleUpper          float64 `json:"scaling_upper_bound"`
	ResampleMin         int     `json:"resample_min_points"`
	PerspectiveMinAngle int     `json:"perspective_min_angle"`
	PerspectiveMaxAngle int     `json:"perspective_max_angle"`
	RotationMinAngle    int     `json:"rotation_min_angle"`
	RotationMaxAngle    int     `json:"rotation_max_angle"`
	SkipProbability     float64 `json:"skip_frame_chance"`
}

// DefaultParams returns the stock augmentation bounds.
func DefaultParams() Params {
	return Params{
		NoiseSigma:          DefaultNoiseSigma,
		ScaleLower:          DefaultScaleLower,
		ScaleUpper:          DefaultScaleUpper,
		ResampleMin:         DefaultResampleMin,
		PerspectiveMinAngle: DefaultPerspectiveMinAngle,
		PerspectiveMaxAngle: DefaultPerspectiveMaxAngle,
		RotationMinAngle:    DefaultRotationMinAngle,
		RotationMaxAngle:    DefaultRotationMaxAngle,
		SkipProbability:     DefaultSkipProbability,
	}
}

// Validate reports the first malformed bound, wrapped in ErrInvalidParams.
func (p Params) Validate() error {
	switch {
	case math.IsNaN(p.NoiseSigma) || math.IsInf(p.NoiseSigma, 0) || p.NoiseSigma < 0:
		return fmt.Errorf("%w: noise sigma %v must be a finite value >= 0", ErrInvalidParams, p.NoiseSigma)
	case !(p.ScaleLower > 0) || math.IsInf(p.ScaleUpper, 0):
		return fmt.Errorf("%w: scaling bounds must be positive and finite", ErrInvalidParams)
	case p.ScaleLower > p.ScaleUpper:
		return fmt.Errorf("%w: scaling lower bound %v exceeds upper bound %v", ErrInvalidParams, p.ScaleLower, p.ScaleUpper)
	case p.ResampleMin < 1:
		return fmt.Errorf("%w: resample minimum %d must be >= 1", ErrInvalidParams, p.ResampleMin)
	case p.PerspectiveMinAngle > p.PerspectiveMaxAngle:
		return fmt.Errorf("%w: perspective angle range [%d, %d) is empty", ErrInvalidParams, p.PerspectiveMinAngle, p.PerspectiveMaxAngle)
	case p.RotationMinAngle > p.RotationMaxAngle:
		return fmt.Errorf("%w: rotation angle range [%d, %d) is empty", ErrInvalidParams, p.RotationMinAngle, p.RotationMaxAngle)
	case math.IsNaN(p.SkipProbability) || p.SkipProbability < 0 || p.SkipProbability > 1:
		return fmt.Errorf("%w: skip probability %v must be within [0, 1]", ErrInvalidParams, p.SkipProbability)
	}
	return nil
}

// ResampleRange returns the half-open target length range [lo, hi) that
// SpatialResample draws from for an input of n points.
func (p Params) ResampleRange(n int) (lo, hi int) {
	return p.ResampleMin, 2 * n
}
