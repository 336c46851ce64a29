package worker_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/vqs/internal/adapters/mq/queue"
	worker "github.com/okian/vqs/internal/adapters/mq/worker"
	"github.com/okian/vqs/internal/domain/model"
	"github.com/okian/vqs/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job {
	return mq.jobs
}

type mockSearcher struct {
	mu       sync.Mutex
	calls    []string
	panicOn  string
	failOn   string
	blockFor time.Duration
}

func (ms *mockSearcher) Search(ctx context.Context, keyword string, limit int) types.Result {
	ms.mu.Lock()
	ms.calls = append(ms.calls, keyword)
	ms.mu.Unlock()

	if ms.blockFor > 0 {
		time.Sleep(ms.blockFor)
	}
	if keyword == ms.panicOn {
		panic("boom")
	}
	if keyword == ms.failOn {
		return types.Failed(keyword, "no candidates found for keyword")
	}
	videos := make([]model.ScoredVideo, limit)
	for i := range videos {
		videos[i] = model.ScoredVideo{Score: 90 - i, Rank: i + 1}
	}
	return types.Result{Success: true, Keyword: keyword, Videos: videos, Stats: &model.BatchStats{Count: limit}}
}

func (ms *mockSearcher) callCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.calls)
}

func awaitReply(replies <-chan queue.Reply) (queue.Reply, bool) {
	select {
	case r := <-replies:
		return r, true
	case <-time.After(2 * time.Second):
		return queue.Reply{}, false
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		q := newMockQueue()
		s := &mockSearcher{panicOn: "explode", failOn: "nothing"}
		w := worker.NewInMemoryWorker(q, s, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		replies := make(chan queue.Reply, 4)

		convey.Convey("When a job is processed", func() {
			q.jobs <- queue.Job{ID: "j1", Keyword: "cooking", Limit: 3, Index: 2, Reply: replies}
			r, ok := awaitReply(replies)

			convey.Convey("Then the reply should carry the search result", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(r.JobID, convey.ShouldEqual, "j1")
				convey.So(r.Index, convey.ShouldEqual, 2)
				convey.So(r.Result.Success, convey.ShouldBeTrue)
				convey.So(r.Result.Videos, convey.ShouldHaveLength, 3)
			})
		})

		convey.Convey("When the search fails", func() {
			q.jobs <- queue.Job{ID: "j2", Keyword: "nothing", Limit: 3, Reply: replies}
			r, ok := awaitReply(replies)

			convey.Convey("Then the failure should be forwarded", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(r.Result.Success, convey.ShouldBeFalse)
				convey.So(r.Result.Message, convey.ShouldEqual, "no candidates found for keyword")
			})
		})

		convey.Convey("When the search panics", func() {
			q.jobs <- queue.Job{ID: "j3", Keyword: "explode", Reply: replies}
			r, ok := awaitReply(replies)

			convey.Convey("Then the worker should answer with an internal error and keep running", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(r.Result.Success, convey.ShouldBeFalse)
				convey.So(strings.HasPrefix(r.Result.Message, "internal error:"), convey.ShouldBeTrue)
				convey.So(r.Result.Videos, convey.ShouldNotBeNil)

				q.jobs <- queue.Job{ID: "j4", Keyword: "after", Limit: 1, Reply: replies}
				next, ok := awaitReply(replies)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(next.Result.Success, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a job has no reply channel", func() {
			q.jobs <- queue.Job{ID: "j5", Keyword: "fire-and-forget", Limit: 1}

			convey.Convey("Then it should still be searched", func() {
				deadline := time.Now().Add(2 * time.Second)
				for s.callCount() == 0 && time.Now().Before(deadline) {
					time.Sleep(time.Millisecond)
				}
				convey.So(s.callCount(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
			defer stop()
			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it should stop cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		s := &mockSearcher{blockFor: 5 * time.Millisecond}
		pool := worker.NewPool(4, q, s, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("Then it should report its size", func() {
			convey.So(pool.Size(), convey.ShouldEqual, 4)
		})

		convey.Convey("When many jobs are submitted", func() {
			const jobs = 20
			replies := make(chan queue.Reply, jobs)
			for i := 0; i < jobs; i++ {
				convey.So(q.Enqueue(ctx, queue.Job{ID: "job", Keyword: "kw", Limit: 1, Index: i, Reply: replies}), convey.ShouldBeTrue)
			}

			seen := make(map[int]bool)
			for i := 0; i < jobs; i++ {
				r, ok := awaitReply(replies)
				convey.So(ok, convey.ShouldBeTrue)
				seen[r.Index] = true
			}

			convey.Convey("Then every job should be answered exactly once", func() {
				convey.So(seen, convey.ShouldHaveLength, jobs)
				convey.So(s.callCount(), convey.ShouldEqual, jobs)
			})
		})

		convey.Convey("When the pool shuts down with work still queued", func() {
			replies := make(chan queue.Reply, 8)
			for i := 0; i < 8; i++ {
				q.Enqueue(ctx, queue.Job{Keyword: "kw", Limit: 1, Index: i, Reply: replies})
			}
			err := pool.Shutdown(context.Background())

			convey.Convey("Then the queue should be drained before workers exit", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(len(replies), convey.ShouldEqual, 8)
				convey.So(pool.Processed(), convey.ShouldEqual, 8)
			})
		})
	})

	convey.Convey("Given a pool that was never started", t, func() {
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(0, q, &mockSearcher{}, nil)

		convey.Convey("Then shutdown should return immediately", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})
}
