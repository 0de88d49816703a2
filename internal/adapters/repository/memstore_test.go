package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/gestura/internal/adapters/repository"
	"github.com/okian/gestura/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func queued(id string) *model.Run {
	return &model.Run{ID: id, Chain: "AVC", Status: model.StatusQueued}
}

func finish(s repository.Store, id string, at time.Time) {
	_, err := s.Update(context.Background(), id, func(r *model.Run) error {
		if err := r.Transition(model.StatusRunning, at); err != nil {
			return err
		}
		return r.Transition(model.StatusSucceeded, at)
	})
	So(err, ShouldBeNil)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := repository.NewMemoryStore(ctx)
		defer s.Close()

		Convey("When creating a run", func() {
			So(s.Create(ctx, queued("run-1")), ShouldBeNil)

			Convey("Then it can be read back", func() {
				r, err := s.Get(ctx, "run-1")
				So(err, ShouldBeNil)
				So(r.Chain, ShouldEqual, "AVC")
				So(s.Count(ctx), ShouldEqual, 1)
			})

			Convey("And a second create with the same id conflicts", func() {
				err := s.Create(ctx, queued("run-1"))
				So(err, ShouldWrap, repository.ErrConflict)
			})

			Convey("And copies handed out do not alias the stored run", func() {
				r, _ := s.Get(ctx, "run-1")
				r.Progress = 99
				again, _ := s.Get(ctx, "run-1")
				So(again.Progress, ShouldEqual, 0)
			})
		})

		Convey("When reading an unknown run", func() {
			_, err := s.Get(ctx, "missing")

			Convey("Then ErrNotFound is returned", func() {
				So(err, ShouldWrap, repository.ErrNotFound)
				So(s.Delete(ctx, "missing"), ShouldWrap, repository.ErrNotFound)
				_, err = s.Update(ctx, "missing", func(*model.Run) error { return nil })
				So(err, ShouldWrap, repository.ErrNotFound)
			})
		})

		Convey("When an update fails", func() {
			So(s.Create(ctx, queued("run-1")), ShouldBeNil)
			boom := errors.New("boom")
			_, err := s.Update(ctx, "run-1", func(r *model.Run) error {
				r.Progress = 10
				return boom
			})

			Convey("Then the stored run is unchanged", func() {
				So(err, ShouldEqual, boom)
				r, _ := s.Get(ctx, "run-1")
				So(r.Progress, ShouldEqual, 0)
			})
		})

		Convey("When several runs exist", func() {
			for i := 1; i <= 3; i++ {
				So(s.Create(ctx, queued(fmt.Sprintf("run-%d", i))), ShouldBeNil)
			}
			finish(s, "run-2", time.Now())

			Convey("Then listing keeps creation order and statuses are counted", func() {
				list := s.List(ctx)
				So(list, ShouldHaveLength, 3)
				So(list[0].ID, ShouldEqual, "run-1")
				So(list[2].ID, ShouldEqual, "run-3")
				counts := s.CountByStatus(ctx)
				So(counts[model.StatusQueued], ShouldEqual, 2)
				So(counts[model.StatusSucceeded], ShouldEqual, 1)
			})

			Convey("And deleting one removes it from the listing", func() {
				So(s.Delete(ctx, "run-2"), ShouldBeNil)
				list := s.List(ctx)
				So(list, ShouldHaveLength, 2)
				So(list[1].ID, ShouldEqual, "run-3")
			})
		})
	})

	Convey("Given a store capped at two runs", t, func() {
		s := repository.NewMemoryStore(ctx, repository.WithMaxRuns(2), repository.WithRetention(0))
		defer s.Close()
		So(s.Create(ctx, queued("a")), ShouldBeNil)
		So(s.Create(ctx, queued("b")), ShouldBeNil)

		Convey("When both are unfinished", func() {
			err := s.Create(ctx, queued("c"))

			Convey("Then the store is full", func() {
				So(err, ShouldWrap, repository.ErrStoreFull)
			})
		})

		Convey("When one has finished", func() {
			finish(s, "b", time.Now())
			err := s.Create(ctx, queued("c"))

			Convey("Then it is evicted to make room", func() {
				So(err, ShouldBeNil)
				_, err := s.Get(ctx, "b")
				So(err, ShouldWrap, repository.ErrNotFound)
				So(s.Count(ctx), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a store with one minute retention", t, func() {
		clock := &fakeClock{now: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
		s := repository.NewMemoryStore(ctx,
			repository.WithRetention(time.Minute),
			repository.WithSweepInterval(time.Hour),
			repository.WithClock(clock.Now),
		)
		defer s.Close()

		So(s.Create(ctx, queued("old")), ShouldBeNil)
		So(s.Create(ctx, queued("pending")), ShouldBeNil)
		finish(s, "old", clock.Now())

		Convey("When less than the retention has passed", func() {
			clock.Advance(30 * time.Second)

			Convey("Then nothing is swept", func() {
				So(s.Sweep(), ShouldEqual, 0)
			})
		})

		Convey("When the retention has passed", func() {
			clock.Advance(2 * time.Minute)

			Convey("Then only the finished run is swept", func() {
				So(s.Sweep(), ShouldEqual, 1)
				_, err := s.Get(ctx, "pending")
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given concurrent updates", t, func() {
		s := repository.NewMemoryStore(ctx)
		defer s.Close()
		So(s.Create(ctx, queued("run")), ShouldBeNil)

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.Update(ctx, "run", func(r *model.Run) error {
					r.Progress++
					return nil
				})
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			r, _ := s.Get(ctx, "run")
			So(r.Progress, ShouldEqual, 100)
		})
	})
}
