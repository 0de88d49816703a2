package smoketest

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/gestura/internal/domain/trajectory"
)

// shape draws a closed or open stroke through n points in the unit square.
type shape func(n int) trajectory.Trajectory

var shapes = []struct {
	name string
	draw shape
}{
	{"circle", func(n int) trajectory.Trajectory {
		out := make(trajectory.Trajectory, n)
		for i := range out {
			a := 2 * math.Pi * float64(i) / float64(n)
			out[i] = trajectory.Point{X: 0.5 + 0.5*math.Cos(a), Y: 0.5 + 0.5*math.Sin(a)}
		}
		return out
	}},
	{"zigzag", func(n int) trajectory.Trajectory {
		out := make(trajectory.Trajectory, n)
		for i := range out {
			out[i] = trajectory.Point{X: float64(i) / float64(n-1), Y: float64(i % 2)}
		}
		return out
	}},
	{"check", func(n int) trajectory.Trajectory {
		out := make(trajectory.Trajectory, n)
		knee := n / 3
		for i := range out {
			if i <= knee {
				t := float64(i) / float64(knee)
				out[i] = trajectory.Point{X: 0.3 * t, Y: 0.6 + 0.4*t}
				continue
			}
			t := float64(i-knee) / float64(n-1-knee)
			out[i] = trajectory.Point{X: 0.3 + 0.7*t, Y: 1 - t}
		}
		return out
	}},
}

// exemplars builds count exemplars of points points each, cycling through the
// known shapes and scaling them to a canvas of side scale. Each exemplar gets
// a small deterministic wobble so repeated shapes differ.
func exemplars(rng *rand.Rand, count, points int, scale float64) []trajectory.Exemplar {
	out := make([]trajectory.Exemplar, count)
	for i := range out {
		s := shapes[i%len(shapes)]
		pts := s.draw(points)
		for j := range pts {
			pts[j].X = pts[j].X*scale + rng.NormFloat64()
			pts[j].Y = pts[j].Y*scale + rng.NormFloat64()
		}
		out[i] = trajectory.Exemplar{Label: fmt.Sprintf("%s-%d", s.name, i/len(shapes)), Points: pts}
	}
	return out
}
