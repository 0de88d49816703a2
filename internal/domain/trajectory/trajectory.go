// Package trajectory contains the point-sequence types shared by the
// augmentation packages.
package trajectory

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Point is a single 2D sample of a drawn stroke.
type Point struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as a two-element array [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a two-element array [x, y].
func (p *Point) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	if len(xy) != 2 {
		return errors.New("point: expected [x, y]")
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Trajectory is an ordered sequence of points; order is the stroke's
// temporal order.
type Trajectory []Point

// Clone returns an independent copy. A nil trajectory clones to an empty one.
func (t Trajectory) Clone() Trajectory {
	out := make(Trajectory, len(t))
	copy(out, t)
	return out
}

// Equal reports exact coordinate equality.
func (t Trajectory) Equal(o Trajectory) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// Flatten returns the coordinates as x0, y0, x1, y1, ...
func (t Trajectory) Flatten() []float64 {
	out := make([]float64, 0, 2*len(t))
	for _, p := range t {
		out = append(out, p.X, p.Y)
	}
	return out
}

// Axes splits the trajectory into its x and y columns.
func (t Trajectory) Axes() (xs, ys []float64) {
	xs = make([]float64, len(t))
	ys = make([]float64, len(t))
	for i, p := range t {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return xs, ys
}

// FromAxes zips x and y columns into a trajectory. The shorter column wins.
func FromAxes(xs, ys []float64) Trajectory {
	n := min(len(xs), len(ys))
	out := make(Trajectory, n)
	for i := 0; i < n; i++ {
		out[i] = Point{X: xs[i], Y: ys[i]}
	}
	return out
}

// Centroid is the scalar mean of every coordinate value, x and y pooled
// together, not the per-axis centre of mass. Callers subtract it from both
// axes. Returns 0 for an empty trajectory.
func (t Trajectory) Centroid() float64 {
	if len(t) == 0 {
		return 0
	}
	return stat.Mean(t.Flatten(), nil)
}

// Shift adds d to both coordinates of every point, returning a new trajectory.
func (t Trajectory) Shift(d float64) Trajectory {
	out := make(Trajectory, len(t))
	for i, p := range t {
		out[i] = Point{X: p.X + d, Y: p.Y + d}
	}
	return out
}

// Exemplar is a recorded, unaugmented gesture with its class label.
type Exemplar struct {
	Label  string     `json:"label"`
	Points Trajectory `json:"points"`
}

// Sample is one augmented variant of an exemplar. Label always equals the
// label of the exemplar it came from.
type Sample struct {
	Label  string     `json:"label"`
	Points Trajectory `json:"points"`
}
