package service_test

import (
	"context"
	"testing"
	"time"

	service "github.com/okian/gestura/internal/app"
	"github.com/okian/gestura/internal/config"
	"github.com/okian/gestura/internal/domain/augment"
	"github.com/okian/gestura/internal/domain/types"
	"github.com/okian/gestura/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init(logger.WithLevel("error"))
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should not be started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Started(), ShouldBeFalse)
		})
	})

	Convey("Given a new service built from a loaded config", t, func() {
		cfg := config.New(context.Background())
		cfg.WorkerCount = 3
		svc := service.New(service.WithConfig(cfg))

		Convey("Then the pool size is taken from it", func() {
			So(svc.GetStats(context.Background()).Workers, ShouldEqual, 3)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		// Ensure service is stopped after test
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.Started(), ShouldBeTrue)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stats describe an idle service", func() {
				stats := svc.GetStats(ctx)
				So(stats.Workers, ShouldEqual, 2)
				So(stats.StoredRuns, ShouldEqual, 0)
				So(stats.ActiveRuns, ShouldEqual, 0)
			})
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.Started(), ShouldBeFalse)
				_, err := svc.Run(ctx, "any")
				So(err, ShouldWrap, service.ErrNotStarted)
			})

			Convey("And stopping again is a no-op", func() {
				svc.Stop()
				So(svc.Started(), ShouldBeFalse)
			})
		})
	})
}

func TestService_OutputLimits(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service capped at 4000 output points", t, func() {
		svc := service.New(service.WithOutputLimits(64, 4000))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		req := types.SubmitRunRequest{Chain: "Gaussian", Exemplars: squares(2, 10), Repetitions: 50}

		Convey("When the run stays within the cap", func() {
			run, _, err := svc.Submit(ctx, req)

			Convey("Then it is accepted", func() {
				So(err, ShouldBeNil)
				So(run.Total, ShouldEqual, 100)
			})
		})

		Convey("When the run would produce more points", func() {
			req.Repetitions = 51
			_, _, err := svc.Submit(ctx, req)

			Convey("Then it is rejected and nothing is stored", func() {
				So(err, ShouldWrap, augment.ErrInvalidConfig)
				So(err.Error(), ShouldContainSubstring, "limit of 4000")
				runs, listErr := svc.Runs(ctx)
				So(listErr, ShouldBeNil)
				So(runs, ShouldBeEmpty)
			})
		})

		Convey("When the normalized length is over its own cap", func() {
			req.NormalizePoints = 65
			_, _, err := svc.Submit(ctx, req)

			Convey("Then it is rejected", func() {
				So(err, ShouldWrap, augment.ErrInvalidConfig)
			})
		})
	})
}

func TestService_SubmitValidation(t *testing.T) {
	ctx := context.Background()
	valid := types.SubmitRunRequest{Chain: "Gaussian", Exemplars: squares(1, 8)}

	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("When submitting", func() {
			_, _, err := svc.Submit(ctx, valid)

			Convey("Then it is rejected", func() {
				So(err, ShouldWrap, service.ErrNotStarted)
			})
		})
	})

	Convey("Given a started service with a repetition limit", t, func() {
		svc := service.New(service.WithRepetitions(10, 20))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the chain is unknown", func() {
			req := valid
			req.Chain = "Elastic"
			_, _, err := svc.Submit(ctx, req)

			Convey("Then the request is an invalid config", func() {
				So(err, ShouldWrap, augment.ErrInvalidConfig)
			})
		})

		Convey("When too many repetitions are asked for", func() {
			req := valid
			req.Repetitions = 21
			_, _, err := svc.Submit(ctx, req)

			Convey("Then the request is an invalid config", func() {
				So(err, ShouldWrap, augment.ErrInvalidConfig)
				So(err.Error(), ShouldContainSubstring, "limit of 20")
			})
		})

		Convey("When the normalized length is absurd", func() {
			req := valid
			req.NormalizePoints = 1 << 40
			_, _, err := svc.Submit(ctx, req)

			Convey("Then the request is an invalid config", func() {
				So(err, ShouldWrap, augment.ErrInvalidConfig)
				So(err.Error(), ShouldContainSubstring, "limit of 4096")
			})
		})

		Convey("When no repetitions are given", func() {
			run, dup, err := svc.Submit(ctx, valid)

			Convey("Then the default is applied", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
				So(run.Repetitions, ShouldEqual, 10)
				So(run.Total, ShouldEqual, 10)
				So(run.Chain, ShouldEqual, "Gaussian")
			})
		})
	})
}
