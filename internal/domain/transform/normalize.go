package transform

import (
	"math"

	"github.com/okian/gestura/internal/domain/trajectory"
	"gonum.org/v1/gonum/stat"
)

// Standardize shifts each axis to zero mean and scales it to unit population
// variance. An axis with zero variance is only centred.
func Standardize(t trajectory.Trajectory) trajectory.Trajectory {
	if len(t) == 0 {
		return trajectory.Trajectory{}
	}
	xs, ys := t.Axes()
	return trajectory.FromAxes(standardizeAxis(xs), standardizeAxis(ys))
}

func standardizeAxis(v []float64) []float64 {
	mean, variance := stat.PopMeanVariance(v, nil)
	sd := math.Sqrt(variance)
	if sd == 0 {
		sd = 1
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = (x - mean) / sd
	}
	return out
}

// Normalize standardizes t and resamples it to n points, giving recordings
// of different sizes and lengths a common frame.
func Normalize(t trajectory.Trajectory, n int) (trajectory.Trajectory, error) {
	return ResampleTo(Standardize(t), n)
}
