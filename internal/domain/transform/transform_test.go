package transform_test

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/okian/gestura/internal/domain/trajectory"
	"github.com/okian/gestura/internal/domain/transform"
	. "github.com/smartystreets/goconvey/convey"
)

// approx compares trajectories coordinate by coordinate within 1e-9.
// Trajectory has an exact Equal method, which cmp would prefer over the float
// comparer, so trajectories are flattened first.
var approx = cmp.Options{
	cmp.Transformer("flatten", func(t trajectory.Trajectory) []float64 { return t.Flatten() }),
	cmpopts.EquateApprox(0, 1e-9),
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func circle() trajectory.Trajectory {
	return trajectory.Trajectory{
		{X: 10, Y: 0}, {X: 7, Y: 7}, {X: 0, Y: 10}, {X: -7, Y: 7},
		{X: -10, Y: 0}, {X: -7, Y: -7}, {X: 0, Y: -10}, {X: 7, Y: -7},
	}
}

func TestAddGaussianNoise(t *testing.T) {
	Convey("Given an eight point trajectory", t, func() {
		src := circle()
		p := transform.DefaultParams()

		Convey("When adding noise", func() {
			out := transform.AddGaussianNoise(newRand(1), src, p)

			Convey("Then the length is preserved and values move", func() {
				So(out, ShouldHaveLength, len(src))
				So(out.Equal(src), ShouldBeFalse)
			})

			Convey("And the input is untouched", func() {
				So(src.Equal(circle()), ShouldBeTrue)
			})
		})

		Convey("When sigma is zero", func() {
			p.NoiseSigma = 0
			out := transform.AddGaussianNoise(newRand(1), src, p)

			Convey("Then the trajectory is unchanged", func() {
				So(out.Equal(src), ShouldBeTrue)
			})
		})

		Convey("When the same seed is used twice", func() {
			a := transform.AddGaussianNoise(newRand(7), src, p)
			b := transform.AddGaussianNoise(newRand(7), src, p)

			Convey("Then the draws repeat", func() {
				So(a.Equal(b), ShouldBeTrue)
			})
		})
	})
}

func TestApproxComparison(t *testing.T) {
	Convey("Given trajectories that differ only by rounding noise", t, func() {
		a := trajectory.Trajectory{{X: 0, Y: 1}, {X: 1, Y: 2}}
		b := trajectory.Trajectory{{X: 6.123233995736757e-17, Y: 1}, {X: 1 + 1e-15, Y: 2}}

		Convey("Then they compare equal within tolerance", func() {
			So(a.Equal(b), ShouldBeFalse)
			So(cmp.Diff(a, b, approx), ShouldBeEmpty)
		})

		Convey("And real differences are still reported", func() {
			So(cmp.Diff(a, trajectory.Trajectory{{X: 0, Y: 1}, {X: 1.001, Y: 2}}, approx), ShouldNotBeEmpty)
			So(cmp.Diff(a, a[:1], approx), ShouldNotBeEmpty)
		})
	})
}

func TestScale(t *testing.T) {
	Convey("Given a trajectory", t, func() {
		src := trajectory.Trajectory{{X: 0, Y: 0}, {X: 2, Y: 4}, {X: 4, Y: 8}}

		Convey("When scaling by one on both axes", func() {
			out := transform.ScaleBy(src, 1, 1)

			Convey("Then the trajectory is unchanged", func() {
				So(cmp.Diff(src, out, approx), ShouldBeEmpty)
			})
		})

		Convey("When scaling by two on x only", func() {
			out := transform.ScaleBy(src, 2, 1)

			Convey("Then x moves away from the pooled centroid", func() {
				// pooled centroid is 3
				So(cmp.Diff(trajectory.Trajectory{{X: -3, Y: 0}, {X: 1, Y: 4}, {X: 5, Y: 8}}, out, approx), ShouldBeEmpty)
			})
		})

		Convey("When the random bounds collapse to a single factor", func() {
			p := transform.DefaultParams()
			p.ScaleLower, p.ScaleUpper = 1.5, 1.5
			out := transform.Scale(newRand(3), src, p)

			Convey("Then it matches the deterministic variant", func() {
				So(out, ShouldHaveLength, len(src))
				So(cmp.Diff(transform.ScaleBy(src, 1.5, 1.5), out, approx), ShouldBeEmpty)
			})
		})
	})
}

func TestSkipFrames(t *testing.T) {
	Convey("Given a numbered trajectory", t, func() {
		src := make(trajectory.Trajectory, 50)
		for i := range src {
			src[i] = trajectory.Point{X: float64(i), Y: float64(-i)}
		}
		p := transform.DefaultParams()

		Convey("When skipping with the default probability", func() {
			out := transform.SkipFrames(newRand(11), src, p)

			Convey("Then survivors are a subsequence in the original order", func() {
				So(len(out), ShouldBeLessThanOrEqualTo, len(src))
				for i := 1; i < len(out); i++ {
					So(out[i].X, ShouldBeGreaterThan, out[i-1].X)
					So(out[i].Y, ShouldEqual, -out[i].X)
				}
			})
		})

		Convey("When the skip probability is zero", func() {
			p.SkipProbability = 0
			out := transform.SkipFrames(newRand(11), src, p)

			Convey("Then every point survives", func() {
				So(out.Equal(src), ShouldBeTrue)
			})
		})

		Convey("When the skip probability is one", func() {
			p.SkipProbability = 1
			out := transform.SkipFrames(newRand(11), src, p)

			Convey("Then the trajectory is emptied", func() {
				So(out, ShouldHaveLength, 0)
			})
		})
	})
}

func TestRotate(t *testing.T) {
	Convey("Given a trajectory", t, func() {
		src := circle()

		Convey("When rotating by zero degrees", func() {
			out := transform.RotateBy(src, 0)

			Convey("Then the original comes back", func() {
				So(cmp.Diff(src, out, approx), ShouldBeEmpty)
			})
		})

		Convey("When rotating a centred segment by 90 degrees", func() {
			out := transform.RotateBy(trajectory.Trajectory{{X: 1, Y: 0}, {X: -1, Y: 0}}, 90)

			Convey("Then it turns counter-clockwise", func() {
				So(cmp.Diff(trajectory.Trajectory{{X: 0, Y: 1}, {X: 0, Y: -1}}, out, approx), ShouldBeEmpty)
			})
		})

		Convey("When the random angle range is degenerate at zero", func() {
			p := transform.DefaultParams()
			p.RotationMinAngle, p.RotationMaxAngle = 0, 0
			out := transform.Rotate(newRand(5), src, p)

			Convey("Then the trajectory is unchanged", func() {
				So(cmp.Diff(src, out, approx), ShouldBeEmpty)
			})
		})

		Convey("When rotating randomly", func() {
			out := transform.Rotate(newRand(5), src, transform.DefaultParams())

			Convey("Then the length is preserved", func() {
				So(out, ShouldHaveLength, len(src))
			})
		})
	})
}

func TestPerspectiveChange(t *testing.T) {
	Convey("Given a trajectory", t, func() {
		src := circle()

		Convey("When both angles are zero", func() {
			out := transform.PerspectiveBy(src, 0, 0)

			Convey("Then the original comes back", func() {
				So(cmp.Diff(src, out, approx), ShouldBeEmpty)
			})
		})

		Convey("When pitching a centred segment by 90 degrees", func() {
			out := transform.PerspectiveBy(trajectory.Trajectory{{X: 1, Y: 1}, {X: -1, Y: -1}}, 0, 90)

			Convey("Then the lifted unit z lands on y and z is dropped", func() {
				So(cmp.Diff(trajectory.Trajectory{{X: 1, Y: -1}, {X: -1, Y: -1}}, out, approx), ShouldBeEmpty)
			})
		})

		Convey("When applying yaw then pitch of 90 degrees each", func() {
			out := transform.PerspectiveBy(trajectory.Trajectory{{X: 2, Y: -2}, {X: -2, Y: 2}}, 90, 90)

			Convey("Then the yaw is applied first", func() {
				So(cmp.Diff(trajectory.Trajectory{{X: 1, Y: 2}, {X: 1, Y: -2}}, out, approx), ShouldBeEmpty)
			})
		})

		Convey("When tilting randomly", func() {
			out := transform.PerspectiveChange(newRand(9), src, transform.DefaultParams())

			Convey("Then the length is preserved", func() {
				So(out, ShouldHaveLength, len(src))
			})
		})
	})
}

func TestParamsValidate(t *testing.T) {
	Convey("Given the default params", t, func() {
		p := transform.DefaultParams()

		Convey("Then they are valid", func() {
			So(p.Validate(), ShouldBeNil)
		})

		Convey("When the scaling bounds are inverted", func() {
			p.ScaleLower, p.ScaleUpper = 1.2, 0.8

			Convey("Then validation fails with ErrInvalidParams", func() {
				So(p.Validate(), ShouldWrap, transform.ErrInvalidParams)
			})
		})

		Convey("When the skip probability exceeds one", func() {
			p.SkipProbability = 1.5
			So(p.Validate(), ShouldWrap, transform.ErrInvalidParams)
		})

		Convey("When sigma is negative", func() {
			p.NoiseSigma = -1
			So(p.Validate(), ShouldWrap, transform.ErrInvalidParams)
		})

		Convey("When the rotation range is inverted", func() {
			p.RotationMinAngle, p.RotationMaxAngle = 10, -10
			So(p.Validate(), ShouldWrap, transform.ErrInvalidParams)
		})

		Convey("When the resample minimum is zero", func() {
			p.ResampleMin = 0
			So(p.Validate(), ShouldWrap, transform.ErrInvalidParams)
		})
	})
}
