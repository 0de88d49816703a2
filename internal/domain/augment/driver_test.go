package augment_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/okian/gestura/internal/domain/augment"
	"github.com/okian/gestura/internal/domain/pipeline"
	"github.com/okian/gestura/internal/domain/trajectory"
	"github.com/okian/gestura/internal/domain/transform"
	"github.com/okian/gestura/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func ring(n int) trajectory.Trajectory {
	out := make(trajectory.Trajectory, n)
	for i := range out {
		a := 2 * math.Pi * float64(i) / float64(n)
		out[i] = trajectory.Point{X: 200 + 50*math.Cos(a), Y: 200 + 50*math.Sin(a)}
	}
	return out
}

func line(n int) trajectory.Trajectory {
	out := make(trajectory.Trajectory, n)
	for i := range out {
		out[i] = trajectory.Point{X: float64(10 * i), Y: float64(5 * i)}
	}
	return out
}

func exemplars() []trajectory.Exemplar {
	return []trajectory.Exemplar{
		{Label: "circle", Points: ring(8)},
		{Label: "line", Points: line(4)},
	}
}

type progressLog struct {
	mu     sync.Mutex
	values []int
	totals []int
}

func (p *progressLog) record(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, done)
	p.totals = append(p.totals, total)
}

func newDriver(opts ...augment.Option) *augment.Driver {
	return augment.NewDriver(append([]augment.Option{augment.WithLogger(logger.Nop())}, opts...)...)
}

func TestAugmentGaussian(t *testing.T) {
	Convey("Given a circle and a line with the Gaussian chain and five repetitions", t, func() {
		d := newDriver()
		var progress progressLog

		res, err := d.Augment(context.Background(), augment.Request{
			Exemplars:   exemplars(),
			Chain:       "Gaussian",
			Repetitions: 5,
			Seed:        1,
		}, progress.record)

		Convey("Then ten samples are produced in exemplar order", func() {
			So(err, ShouldBeNil)
			So(res.Samples, ShouldHaveLength, 10)
			for i, s := range res.Samples {
				if i < 5 {
					So(s.Label, ShouldEqual, "circle")
					So(s.Points, ShouldHaveLength, 8)
				} else {
					So(s.Label, ShouldEqual, "line")
					So(s.Points, ShouldHaveLength, 4)
				}
			}
			So(res.Skipped, ShouldBeEmpty)
			So(res.Seed, ShouldEqual, uint64(1))
		})

		Convey("Then every sample differs from its exemplar", func() {
			So(err, ShouldBeNil)
			src := exemplars()
			for i, s := range res.Samples {
				So(s.Points.Equal(src[i/5].Points), ShouldBeFalse)
			}
		})

		Convey("Then progress counts from one to ten", func() {
			So(progress.values, ShouldResemble, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
			for _, total := range progress.totals {
				So(total, ShouldEqual, 10)
			}
		})
	})
}

func TestAugmentNone(t *testing.T) {
	Convey("Given the None chain", t, func() {
		src := exemplars()
		res, err := newDriver().Augment(context.Background(), augment.Request{
			Exemplars:   src,
			Chain:       "none",
			Repetitions: 3,
		}, nil)

		Convey("Then every sample equals its exemplar", func() {
			So(err, ShouldBeNil)
			So(res.Samples, ShouldHaveLength, 6)
			for i, s := range res.Samples {
				So(s.Points.Equal(src[i/3].Points), ShouldBeTrue)
			}
			So(res.Seed, ShouldNotEqual, uint64(0))
		})
	})
}

func TestAugmentDeterminism(t *testing.T) {
	Convey("Given a fixed seed and the AVC chain", t, func() {
		req := augment.Request{
			Exemplars: []trajectory.Exemplar{
				{Label: "circle", Points: ring(16)},
				{Label: "zigzag", Points: line(12)},
			},
			Chain:       "AVC",
			Repetitions: 20,
			Seed:        99,
		}

		Convey("When run with one worker and with four", func() {
			seq, errSeq := newDriver(augment.WithWorkers(1)).Augment(context.Background(), req, nil)
			var progress progressLog
			par, errPar := newDriver(augment.WithWorkers(4)).Augment(context.Background(), req, progress.record)

			Convey("Then the outputs are identical", func() {
				So(errSeq, ShouldBeNil)
				So(errPar, ShouldBeNil)
				So(par.Samples, ShouldResemble, seq.Samples)
				So(par.Retries, ShouldEqual, seq.Retries)
			})

			Convey("And parallel progress is still strictly increasing", func() {
				So(progress.values, ShouldHaveLength, 40)
				for i, v := range progress.values {
					So(v, ShouldEqual, i+1)
				}
			})
		})

		Convey("When a random seed is chosen", func() {
			req.Seed = 0
			first, err := newDriver().Augment(context.Background(), req, nil)
			So(err, ShouldBeNil)

			Convey("Then replaying the reported seed reproduces the run", func() {
				req.Seed = first.Seed
				second, err := newDriver().Augment(context.Background(), req, nil)
				So(err, ShouldBeNil)
				So(second.Samples, ShouldResemble, first.Samples)
			})
		})

		Convey("Then AVC output lengths respect the resample minimum", func() {
			res, err := newDriver().Augment(context.Background(), req, nil)
			So(err, ShouldBeNil)
			for _, s := range res.Samples {
				So(len(s.Points), ShouldBeGreaterThanOrEqualTo, transform.DefaultResampleMin)
			}
		})
	})
}

func TestAugmentFailurePolicy(t *testing.T) {
	Convey("Given a chain that always empties the trajectory", t, func() {
		p := transform.DefaultParams()
		p.SkipProbability = 1
		req := augment.Request{Exemplars: exemplars(), Chain: "AVC", Repetitions: 4, Seed: 3}

		Convey("When the policy is Abort", func() {
			res, err := newDriver(augment.WithParams(p)).Augment(context.Background(), req, nil)

			Convey("Then the run fails with the sample error and no result", func() {
				So(res, ShouldBeNil)
				So(err, ShouldWrap, augment.ErrSampleFailed)
				So(errors.Is(err, augment.ErrInvalidTrajectory), ShouldBeTrue)
			})
		})

		Convey("When the policy is Skip", func() {
			var progress progressLog
			res, err := newDriver(
				augment.WithParams(p),
				augment.WithFailurePolicy(augment.Skip),
				augment.WithMaxAttempts(2),
			).Augment(context.Background(), req, progress.record)

			Convey("Then no samples are produced and every one is reported", func() {
				So(err, ShouldBeNil)
				So(res.Samples, ShouldBeEmpty)
				So(res.Skipped, ShouldHaveLength, 8)
				So(res.Skipped[0].Label, ShouldEqual, "circle")
				So(res.Skipped[7].Label, ShouldEqual, "line")
				So(res.Skipped[5].Exemplar, ShouldEqual, 1)
				So(res.Skipped[5].Repetition, ShouldEqual, 1)
				So(res.Skipped[0].Error, ShouldContainSubstring, pipeline.StageResample)
				So(res.Retries, ShouldEqual, 8)
				So(progress.values, ShouldBeEmpty)
			})
		})
	})
}

func TestAugmentCancellation(t *testing.T) {
	Convey("Given a context cancelled before the run", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := newDriver().Augment(ctx, augment.Request{Exemplars: exemplars(), Chain: "Gaussian", Repetitions: 5}, nil)

		Convey("Then ErrCancelled is returned without a result", func() {
			So(res, ShouldBeNil)
			So(err, ShouldWrap, augment.ErrCancelled)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given a run cancelled from its progress listener", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var progress progressLog

		res, err := newDriver(augment.WithWorkers(2)).Augment(ctx, augment.Request{
			Exemplars:   exemplars(),
			Chain:       "Simple",
			Repetitions: 500,
		}, func(done, total int) {
			progress.record(done, total)
			if done == 3 {
				cancel()
			}
		})

		Convey("Then the run stops with ErrCancelled", func() {
			So(res, ShouldBeNil)
			So(err, ShouldWrap, augment.ErrCancelled)
			So(len(progress.values), ShouldBeGreaterThanOrEqualTo, 3)
			So(len(progress.values), ShouldBeLessThan, 1000)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a driver with default params", t, func() {
		d := newDriver()
		valid := augment.Request{Exemplars: exemplars(), Chain: "AVC", Repetitions: 2}

		Convey("Then a well-formed request resolves its chain", func() {
			chain, err := d.Validate(valid)
			So(err, ShouldBeNil)
			So(chain.ID(), ShouldEqual, pipeline.AVC)
		})

		Convey("When the chain is unknown", func() {
			valid.Chain = "Elastic"
			_, err := d.Validate(valid)
			So(err, ShouldWrap, augment.ErrInvalidConfig)
			So(errors.Is(err, pipeline.ErrUnknownChain), ShouldBeTrue)
		})

		Convey("When repetitions are zero", func() {
			valid.Repetitions = 0
			_, err := d.Validate(valid)
			So(err, ShouldWrap, augment.ErrInvalidConfig)
		})

		Convey("When there are no exemplars", func() {
			valid.Exemplars = nil
			_, err := d.Validate(valid)
			So(err, ShouldWrap, augment.ErrInvalidConfig)
		})

		Convey("When a label is blank", func() {
			valid.Exemplars = []trajectory.Exemplar{{Label: " ", Points: ring(8)}}
			_, err := d.Validate(valid)
			So(err, ShouldWrap, augment.ErrInvalidConfig)
		})

		Convey("When an exemplar has no points", func() {
			valid.Exemplars = []trajectory.Exemplar{{Label: "dot"}}
			_, err := d.Validate(valid)
			So(err, ShouldWrap, augment.ErrInvalidConfig)
			So(errors.Is(err, augment.ErrInvalidTrajectory), ShouldBeTrue)
		})

		Convey("When an exemplar is too short to resample", func() {
			valid.Exemplars = []trajectory.Exemplar{{Label: "tick", Points: line(2)}}
			_, err := d.Validate(valid)
			So(err, ShouldWrap, augment.ErrInvalidConfig)

			Convey("Then chains without resampling still accept it", func() {
				valid.Chain = "Simple"
				_, err := d.Validate(valid)
				So(err, ShouldBeNil)
			})
		})

		Convey("When normalize points is negative", func() {
			valid.NormalizePoints = -1
			_, err := d.Validate(valid)
			So(err, ShouldWrap, augment.ErrInvalidConfig)
		})

		Convey("When normalize points exceed the limit", func() {
			valid.Chain = "Gaussian"
			valid.Repetitions = 10000
			valid.NormalizePoints = 1 << 40
			_, err := d.Validate(valid)

			Convey("Then the request is rejected before any allocation", func() {
				So(err, ShouldWrap, augment.ErrInvalidConfig)
				So(err.Error(), ShouldContainSubstring, "limit of 4096")
			})
		})
	})

	Convey("Given a driver capped at 100 output points", t, func() {
		d := newDriver(augment.WithMaxOutputPoints(100), augment.WithMaxNormalizePoints(64))
		req := augment.Request{Exemplars: exemplars(), Chain: "Gaussian"}

		Convey("Then a run of exactly 100 points is accepted", func() {
			req.Repetitions = 10 // 2 exemplars * 5 points * 10
			req.NormalizePoints = 5
			_, err := d.Validate(req)
			So(err, ShouldBeNil)
		})

		Convey("Then a run of 108 raw points is rejected", func() {
			req.Repetitions = 9 // (8 + 4) * 9
			_, err := d.Validate(req)
			So(err, ShouldWrap, augment.ErrInvalidConfig)
			So(err.Error(), ShouldContainSubstring, "108 points")
		})

		Convey("Then AVC counts samples at their longest resampled length", func() {
			req.Chain = "AVC"
			req.Repetitions = 6 // (15 + 7) * 6 = 132
			_, err := d.Validate(req)
			So(err, ShouldWrap, augment.ErrInvalidConfig)
			So(err.Error(), ShouldContainSubstring, "132 points")
		})

		Convey("Then a huge repetition count does not overflow the bound", func() {
			req.Repetitions = math.MaxInt
			_, err := d.Validate(req)
			So(err, ShouldWrap, augment.ErrInvalidConfig)
		})

		Convey("Then normalize points above their own cap are rejected", func() {
			req.Repetitions = 1
			req.NormalizePoints = 65
			_, err := d.Validate(req)
			So(err, ShouldWrap, augment.ErrInvalidConfig)
		})
	})

	Convey("Given malformed params", t, func() {
		p := transform.DefaultParams()
		p.ScaleLower = 2
		_, err := newDriver(augment.WithParams(p)).Validate(augment.Request{Exemplars: exemplars(), Chain: "Simple", Repetitions: 1})

		Convey("Then both config and params kinds are reported", func() {
			So(err, ShouldWrap, augment.ErrInvalidConfig)
			So(errors.Is(err, transform.ErrInvalidParams), ShouldBeTrue)
		})
	})

	Convey("Given an unknown failure policy", t, func() {
		_, err := newDriver(augment.WithFailurePolicy("retry")).Validate(augment.Request{Exemplars: exemplars(), Chain: "None", Repetitions: 1})
		So(err, ShouldWrap, augment.ErrInvalidConfig)
	})
}

func TestParseFailurePolicy(t *testing.T) {
	Convey("Given policy names", t, func() {
		p, err := augment.ParseFailurePolicy("")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, augment.Abort)

		p, err = augment.ParseFailurePolicy("SKIP")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, augment.Skip)

		_, err = augment.ParseFailurePolicy("ignore")
		So(err, ShouldWrap, augment.ErrInvalidConfig)
	})
}

func TestNormalizePoints(t *testing.T) {
	Convey("Given a run that normalizes to 64 points", t, func() {
		res, err := newDriver().Augment(context.Background(), augment.Request{
			Exemplars:       exemplars(),
			Chain:           "Simple",
			Repetitions:     2,
			NormalizePoints: transform.DefaultNormalizePoints,
		}, nil)

		Convey("Then every sample has 64 points", func() {
			So(err, ShouldBeNil)
			for _, s := range res.Samples {
				So(s.Points, ShouldHaveLength, 64)
			}
		})
	})
}

func TestPackageAugment(t *testing.T) {
	Convey("Given the single-call entry point", t, func() {
		var progress progressLog
		samples, err := augment.Augment(context.Background(), exemplars(), "Gaussian", 5, progress.record)

		Convey("Then it behaves like a default driver", func() {
			So(err, ShouldBeNil)
			So(samples, ShouldHaveLength, 10)
			So(progress.values[len(progress.values)-1], ShouldEqual, 10)
		})

		Convey("And a bad request yields no samples", func() {
			samples, err := augment.Augment(context.Background(), exemplars(), "Gaussian", 0, nil)
			So(samples, ShouldBeNil)
			So(err, ShouldWrap, augment.ErrInvalidConfig)
		})
	})
}
