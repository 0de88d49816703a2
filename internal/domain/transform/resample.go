package transform

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/gestura/internal/domain/trajectory"
	"gonum.org/v1/gonum/dsp/fourier"
)

// CheckResample reports whether SpatialResample can run on t: the input must
// be non-empty and the target range [ResampleMin, 2·len) must be non-empty.
func CheckResample(t trajectory.Trajectory, p Params) error {
	if len(t) == 0 {
		return fmt.Errorf("%w: spatial resampling needs at least one point", ErrInvalidTrajectory)
	}
	if lo, hi := p.ResampleRange(len(t)); lo >= hi {
		return fmt.Errorf("%w: resample target range [%d, %d) is empty for %d points",
			ErrInvalidTrajectory, lo, hi, len(t))
	}
	return nil
}

// SpatialResample resamples t to a point count drawn uniformly from the
// integers in [ResampleMin, 2·len(t)).
func SpatialResample(rng *rand.Rand, t trajectory.Trajectory, p Params) (trajectory.Trajectory, error) {
	if err := CheckResample(t, p); err != nil {
		return nil, err
	}
	lo, hi := p.ResampleRange(len(t))
	return ResampleTo(t, lo+rng.IntN(hi-lo))
}

// ResampleTo band-limits t to n points, each axis independently, using the
// Fourier method: the spectrum is truncated or zero-padded to n bins and
// inverted. Resampling to len(t) returns t up to rounding.
func ResampleTo(t trajectory.Trajectory, n int) (trajectory.Trajectory, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("%w: cannot resample an empty trajectory", ErrInvalidTrajectory)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: resample target %d must be >= 1", ErrInvalidTrajectory, n)
	}
	xs, ys := t.Axes()
	return trajectory.FromAxes(resampleAxis(xs, n), resampleAxis(ys, n)), nil
}

func resampleAxis(seq []float64, num int) []float64 {
	nx := len(seq)
	spectrum := fourier.NewFFT(nx).Coefficients(nil, seq)

	out := make([]complex128, num/2+1)
	n := min(num, nx)
	nyq := n/2 + 1
	copy(out[:nyq], spectrum[:nyq])
	// An even-length band edge holds the Nyquist bin, which is shared between
	// the positive and negative halves and has to be split or merged.
	if n%2 == 0 {
		switch {
		case num < nx:
			out[n/2] *= 2
		case nx < num:
			out[n/2] *= 0.5
		}
	}

	res := fourier.NewFFT(num).Sequence(nil, out)
	scale := 1 / float64(nx)
	for i := range res {
		res[i] *= scale
	}
	return res
}
