package transform

import (
	"math"
	"math/rand/v2"

	"github.com/okian/gestura/internal/domain/trajectory"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// AddGaussianNoise adds an independent N(0, sigma) draw to every coordinate.
func AddGaussianNoise(rng *rand.Rand, t trajectory.Trajectory, p Params) trajectory.Trajectory {
	noise := distuv.Normal{Mu: 0, Sigma: p.NoiseSigma, Src: rng}
	out := make(trajectory.Trajectory, len(t))
	for i, pt := range t {
		out[i] = trajectory.Point{X: pt.X + noise.Rand(), Y: pt.Y + noise.Rand()}
	}
	return out
}

// Scale stretches the trajectory about its centroid by independent factors
// for x and y drawn from [ScaleLower, ScaleUpper).
func Scale(rng *rand.Rand, t trajectory.Trajectory, p Params) trajectory.Trajectory {
	factor := distuv.Uniform{Min: p.ScaleLower, Max: p.ScaleUpper, Src: rng}
	sx := factor.Rand()
	sy := factor.Rand()
	return ScaleBy(t, sx, sy)
}

// ScaleBy stretches the trajectory about its centroid by sx and sy.
func ScaleBy(t trajectory.Trajectory, sx, sy float64) trajectory.Trajectory {
	c := t.Centroid()
	out := make(trajectory.Trajectory, len(t))
	for i, pt := range t {
		out[i] = trajectory.Point{X: (pt.X-c)*sx + c, Y: (pt.Y-c)*sy + c}
	}
	return out
}

// SkipFrames drops each point independently with probability
// SkipProbability. Surviving points keep their order. The result may be
// empty.
func SkipFrames(rng *rand.Rand, t trajectory.Trajectory, p Params) trajectory.Trajectory {
	out := make(trajectory.Trajectory, 0, len(t))
	for _, pt := range t {
		if rng.Float64() >= p.SkipProbability {
			out = append(out, pt)
		}
	}
	return out
}

// PerspectiveChange tilts the trajectory in 3D about the y and x axes by
// angles drawn from the perspective bounds and projects it back onto the
// plane.
func PerspectiveChange(rng *rand.Rand, t trajectory.Trajectory, p Params) trajectory.Trajectory {
	yDeg := drawAngle(rng, p.PerspectiveMinAngle, p.PerspectiveMaxAngle)
	xDeg := drawAngle(rng, p.PerspectiveMinAngle, p.PerspectiveMaxAngle)
	return PerspectiveBy(t, float64(yDeg), float64(xDeg))
}

// PerspectiveBy rotates about the y axis by yDeg, then about the fixed x axis
// by xDeg. Points are lifted to (x, y, 1) around the centroid, multiplied by
// Rx·Ry, and the third coordinate is dropped without a perspective divide.
func PerspectiveBy(t trajectory.Trajectory, yDeg, xDeg float64) trajectory.Trajectory {
	var m mat.Dense
	m.Mul(rotX(xDeg), rotY(yDeg))
	return applyHomogeneous(t, &m, false)
}

// Rotate spins the trajectory in the plane by an angle drawn from the
// rotation bounds.
func Rotate(rng *rand.Rand, t trajectory.Trajectory, p Params) trajectory.Trajectory {
	deg := drawAngle(rng, p.RotationMinAngle, p.RotationMaxAngle)
	return RotateBy(t, float64(deg))
}

// RotateBy spins the trajectory about its centroid by deg degrees. The
// rotated homogeneous point is divided by its third coordinate before that
// coordinate is dropped.
func RotateBy(t trajectory.Trajectory, deg float64) trajectory.Trajectory {
	return applyHomogeneous(t, rotZ(deg), true)
}

// applyHomogeneous centres t on its centroid, lifts each point to (x, y, 1),
// maps it through m and shifts the result back.
func applyHomogeneous(t trajectory.Trajectory, m mat.Matrix, divide bool) trajectory.Trajectory {
	n := len(t)
	if n == 0 {
		return trajectory.Trajectory{}
	}
	c := t.Centroid()
	lifted := make([]float64, 0, 3*n)
	for _, pt := range t {
		lifted = append(lifted, pt.X-c, pt.Y-c, 1)
	}
	var res mat.Dense
	res.Mul(mat.NewDense(n, 3, lifted), m.T())

	out := make(trajectory.Trajectory, n)
	for i := 0; i < n; i++ {
		x, y := res.At(i, 0), res.At(i, 1)
		if divide {
			w := res.At(i, 2)
			x /= w
			y /= w
		}
		out[i] = trajectory.Point{X: x + c, Y: y + c}
	}
	return out
}

// drawAngle returns an integer angle in [lo, hi), or lo when the range is
// degenerate.
func drawAngle(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func rotX(deg float64) *mat.Dense {
	s, c := math.Sincos(radians(deg))
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

func rotY(deg float64) *mat.Dense {
	s, c := math.Sincos(radians(deg))
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

func rotZ(deg float64) *mat.Dense {
	s, c := math.Sincos(radians(deg))
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}
