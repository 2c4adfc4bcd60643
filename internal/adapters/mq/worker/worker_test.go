package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/agon/internal/adapters/mq/queue"
	"github.com/okian/agon/internal/adapters/mq/worker"
	"github.com/okian/agon/internal/domain/model"
	"github.com/okian/agon/internal/domain/scoring"
	"github.com/okian/agon/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const testAddress = "0x2222222222222222222222222222222222222222"

type fakeFetcher struct {
	convs []model.Conversation
	err   error
}

func (f *fakeFetcher) Conversations(_ context.Context, _ string) ([]model.Conversation, error) {
	return f.convs, f.err
}

type fakeRecorder struct {
	mu     sync.Mutex
	scores map[string]float64
	err    error
}

func (f *fakeRecorder) RecordScore(_ context.Context, id string, score float64) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scores == nil {
		f.scores = make(map[string]float64)
	}
	f.scores[id] = score
	return nil
}

func (f *fakeRecorder) recorded(id string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scores[id]
	return s, ok
}

type fakeInvalidator struct {
	mu        sync.Mutex
	addresses []string
}

func (f *fakeInvalidator) InvalidateUser(address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses = append(f.addresses, address)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestWorker(t *testing.T) {
	_ = logger.Init()
	scorer := scoring.NewHeuristicScorer(
		scoring.WithLatencyRange(time.Millisecond, 2*time.Millisecond),
	)

	Convey("Given a worker over a queue with one pending conversation", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		fetcher := &fakeFetcher{convs: []model.Conversation{{
			ID:      "conv-1",
			Address: testAddress,
			Status:  model.EvalPending,
			Messages: []model.Message{
				{Seq: 1, Role: "user", Content: "a riddle, please"},
			},
		}}}
		recorder := &fakeRecorder{}
		inv := &fakeInvalidator{}

		w := worker.NewWorker(q, fetcher, scorer, recorder, worker.WithInvalidator(inv))
		go w.Run(ctx)
		defer func() { _ = w.Shutdown(context.Background()) }()

		Convey("When the job is processed", func() {
			So(q.Enqueue(ctx, queue.Job{ConversationID: "conv-1", Address: testAddress}), ShouldBeTrue)

			Convey("Then the score is recorded and the user cache invalidated", func() {
				So(waitFor(func() bool {
					_, ok := recorder.recorded("conv-1")
					return ok
				}), ShouldBeTrue)
				score, _ := recorder.recorded("conv-1")
				So(score, ShouldBeGreaterThanOrEqualTo, 0)
				So(score, ShouldBeLessThanOrEqualTo, model.MaxScore)
				So(waitFor(func() bool {
					inv.mu.Lock()
					defer inv.mu.Unlock()
					return len(inv.addresses) == 1
				}), ShouldBeTrue)
			})
		})

		Convey("When the conversation is already evaluated", func() {
			fetcher.convs[0].Status = model.EvalEvaluated
			So(q.Enqueue(ctx, queue.Job{ConversationID: "conv-1", Address: testAddress}), ShouldBeTrue)

			Convey("Then no score is re-recorded", func() {
				time.Sleep(50 * time.Millisecond)
				_, ok := recorder.recorded("conv-1")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When recording the score fails", func() {
			recorder.err = errors.New("paused")
			So(q.Enqueue(ctx, queue.Job{ConversationID: "conv-1", Address: testAddress}), ShouldBeTrue)

			Convey("Then the submission is released for retry", func() {
				So(waitFor(func() bool {
					return q.Enqueue(ctx, queue.Job{ConversationID: "conv-1", Address: testAddress})
				}), ShouldBeTrue)
			})
		})
	})

	Convey("Given a worker pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		fetcher := &fakeFetcher{}
		for i := 0; i < 5; i++ {
			id := "conv-" + string(rune('a'+i))
			fetcher.convs = append(fetcher.convs, model.Conversation{
				ID: id, Address: testAddress, Status: model.EvalPending,
				Messages: []model.Message{{Seq: 1, Role: "user", Content: id}},
			})
		}
		recorder := &fakeRecorder{}
		pool := worker.NewPool(3, q, fetcher, scorer, recorder)
		pool.Start(ctx)
		defer pool.Stop()

		Convey("When several jobs are enqueued", func() {
			for _, c := range fetcher.convs {
				So(q.Enqueue(ctx, queue.Job{ConversationID: c.ID, Address: testAddress}), ShouldBeTrue)
			}

			Convey("Then every conversation gets scored once", func() {
				So(waitFor(func() bool {
					recorder.mu.Lock()
					defer recorder.mu.Unlock()
					return len(recorder.scores) == len(fetcher.convs)
				}), ShouldBeTrue)
			})
		})
	})
}
