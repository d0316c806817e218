package pulsim

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRealizationPool(t *testing.T) {
	Convey("Given a pool of two workers", t, func() {
		pool := newRealizationPool(2)

		Convey("Histograms from every job are summed per evaluation time", func() {
			jobs := make([]realizationJob, 10)
			for i := range jobs {
				jobs[i] = realizationJob{
					Index: i,
					Fn: func() ([]OutcomeCounter, error) {
						return []OutcomeCounter{
							{"00": 1},
							{"01": 2},
						}, nil
					},
				}
			}

			total, err := pool.run(context.Background(), jobs, 2)
			So(err, ShouldBeNil)
			So(total[0]["00"], ShouldEqual, 10.0)
			So(total[1]["01"], ShouldEqual, 20.0)
		})

		Convey("The first failure aborts the run", func() {
			boom := errors.New("solver diverged")
			var executed int32
			jobs := make([]realizationJob, 50)
			for i := range jobs {
				i := i
				jobs[i] = realizationJob{
					Index: i,
					Fn: func() ([]OutcomeCounter, error) {
						atomic.AddInt32(&executed, 1)
						if i == 3 {
							return nil, boom
						}
						return []OutcomeCounter{{"0": 1}}, nil
					},
				}
			}

			_, err := pool.run(context.Background(), jobs, 1)
			So(err, ShouldEqual, boom)
			So(atomic.LoadInt32(&executed), ShouldBeLessThan, int32(50))
		})

		Convey("A cancelled context stops the run", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			jobs := []realizationJob{{Fn: func() ([]OutcomeCounter, error) {
				return []OutcomeCounter{{"0": 1}}, nil
			}}}
			_, err := pool.run(ctx, jobs, 1)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Worker counts are clamped to at least one", t, func() {
		pool := newRealizationPool(0)
		So(pool.workers, ShouldEqual, 1)

		jobs := []realizationJob{{Fn: func() ([]OutcomeCounter, error) {
			return []OutcomeCounter{{"1": 1}}, nil
		}}}
		total, err := pool.run(context.Background(), jobs, 1)
		So(err, ShouldBeNil)
		So(total[0]["1"], ShouldEqual, 1.0)
	})
}
