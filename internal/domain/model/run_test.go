package model_test

import (
	"testing"
	"time"

	model "github.com/okian/gestura/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRunStatus(t *testing.T) {
	convey.Convey("Given the run statuses", t, func() {
		convey.Convey("Then only finished statuses are terminal", func() {
			convey.So(model.StatusQueued.IsTerminal(), convey.ShouldBeFalse)
			convey.So(model.StatusRunning.IsTerminal(), convey.ShouldBeFalse)
			convey.So(model.StatusSucceeded.IsTerminal(), convey.ShouldBeTrue)
			convey.So(model.StatusFailed.IsTerminal(), convey.ShouldBeTrue)
			convey.So(model.StatusCancelled.IsTerminal(), convey.ShouldBeTrue)
		})

		convey.Convey("Then a queued run may start or be cancelled", func() {
			convey.So(model.StatusQueued.CanTransition(model.StatusRunning), convey.ShouldBeTrue)
			convey.So(model.StatusQueued.CanTransition(model.StatusCancelled), convey.ShouldBeTrue)
			convey.So(model.StatusQueued.CanTransition(model.StatusSucceeded), convey.ShouldBeFalse)
		})

		convey.Convey("Then a running run may finish in any terminal status", func() {
			convey.So(model.StatusRunning.CanTransition(model.StatusSucceeded), convey.ShouldBeTrue)
			convey.So(model.StatusRunning.CanTransition(model.StatusFailed), convey.ShouldBeTrue)
			convey.So(model.StatusRunning.CanTransition(model.StatusCancelled), convey.ShouldBeTrue)
			convey.So(model.StatusRunning.CanTransition(model.StatusQueued), convey.ShouldBeFalse)
		})

		convey.Convey("Then finished runs never move again", func() {
			for _, s := range []model.RunStatus{model.StatusSucceeded, model.StatusFailed, model.StatusCancelled} {
				convey.So(s.CanTransition(model.StatusRunning), convey.ShouldBeFalse)
				convey.So(s.CanTransition(model.StatusCancelled), convey.ShouldBeFalse)
			}
		})
	})
}

func TestRunTransition(t *testing.T) {
	convey.Convey("Given a queued run", t, func() {
		run := &model.Run{ID: "run-1", Status: model.StatusQueued}
		start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		convey.Convey("When it starts and succeeds", func() {
			convey.So(run.Transition(model.StatusRunning, start), convey.ShouldBeNil)
			convey.So(run.Transition(model.StatusSucceeded, start.Add(time.Second)), convey.ShouldBeNil)

			convey.Convey("Then both timestamps are stamped", func() {
				convey.So(run.StartedAt, convey.ShouldEqual, start)
				convey.So(run.FinishedAt, convey.ShouldEqual, start.Add(time.Second))
				convey.So(run.Status, convey.ShouldEqual, model.StatusSucceeded)
			})

			convey.Convey("And a further transition is rejected", func() {
				err := run.Transition(model.StatusCancelled, start)
				convey.So(err, convey.ShouldWrap, model.ErrInvalidTransition)
				convey.So(run.Status, convey.ShouldEqual, model.StatusSucceeded)
			})
		})

		convey.Convey("When it is cancelled before starting", func() {
			convey.So(run.Transition(model.StatusCancelled, start), convey.ShouldBeNil)

			convey.Convey("Then it never started", func() {
				convey.So(run.StartedAt.IsZero(), convey.ShouldBeTrue)
				convey.So(run.FinishedAt, convey.ShouldEqual, start)
			})
		})

		convey.Convey("When it is cloned", func() {
			c := run.Clone()
			c.Status = model.StatusRunning
			c.Progress = 5

			convey.Convey("Then the original is unaffected", func() {
				convey.So(run.Status, convey.ShouldEqual, model.StatusQueued)
				convey.So(run.Progress, convey.ShouldEqual, 0)
			})
		})
	})
}
