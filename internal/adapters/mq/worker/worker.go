// Package worker runs the asynchronous evaluation loop: pending
// conversations are pulled off the queue, scored by the opaque evaluator,
// and the result is written back to the ledger authority.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/agon/internal/adapters/mq/queue"
	"github.com/okian/agon/internal/domain/model"
	"github.com/okian/agon/internal/domain/scoring"
	"github.com/okian/agon/pkg/logger"
	"github.com/okian/agon/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 4
	workerShutdownTimeout = 5 * time.Second
)

// Fetcher reads a user's conversations from the authority.
type Fetcher interface {
	Conversations(ctx context.Context, address string) ([]model.Conversation, error)
}

// Recorder writes an evaluation result to the authority.
type Recorder interface {
	RecordScore(ctx context.Context, conversationID string, score float64) error
}

// Invalidator drops cached state for a user after their record changed.
type Invalidator interface {
	InvalidateUser(address string)
}

// Source defines how workers receive and release jobs.
type Source interface {
	Dequeue(ctx context.Context) <-chan queue.Job
	Forget(ctx context.Context, conversationID string)
}

// Worker processes evaluation jobs until stopped.
type Worker struct {
	source      Source
	fetcher     Fetcher
	scorer      scoring.Scorer
	recorder    Recorder
	invalidator Invalidator
	name        string

	shutdown chan struct{}
	done     chan struct{}
	log      logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(source Source, fetcher Fetcher, scorer scoring.Scorer, recorder Recorder, opts ...Option) *Worker {
	w := &Worker{
		source:   source,
		fetcher:  fetcher,
		scorer:   scorer,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		log:      logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes jobs until ctx is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				metrics.RecordEvalError()
				// Release the id so the submission can be retried.
				w.source.Forget(ctx, job.ConversationID)
				w.log.Error(ctx, "evaluation failed",
					logger.String("conversation", job.ConversationID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting up to the shutdown timeout.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordEvalLatency(float64(time.Since(start).Milliseconds()))
	}()

	convs, err := w.fetcher.Conversations(ctx, job.Address)
	if err != nil {
		return fmt.Errorf("fetch conversations for %s: %w", job.Address, err)
	}
	var target *model.Conversation
	for i := range convs {
		if convs[i].ID == job.ConversationID {
			target = &convs[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("conversation %s not found for %s", job.ConversationID, job.Address)
	}
	if target.Evaluated() {
		// Already scored on the authority; nothing to redo.
		return nil
	}

	result, err := w.scorer.Score(ctx, scoring.Input{
		ConversationID: target.ID,
		Address:        target.Address,
		Messages:       target.Messages,
	})
	if err != nil {
		return fmt.Errorf("score conversation %s: %w", target.ID, err)
	}

	if err := w.recorder.RecordScore(ctx, target.ID, result.Score); err != nil {
		return fmt.Errorf("record score for %s: %w", target.ID, err)
	}

	if w.invalidator != nil {
		w.invalidator.InvalidateUser(job.Address)
	}
	metrics.RecordEvalProcessed()
	return nil
}

// Pool manages a fixed set of evaluation workers.
type Pool struct {
	workers []*Worker
	log     logger.Logger
}

// NewPool creates count workers over the shared source.
func NewPool(count int, source Source, fetcher Fetcher, scorer scoring.Scorer, recorder Recorder, opts ...Option) *Pool {
	if count < 1 {
		count = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*Worker, count),
		log:     logger.Get().Named("worker-pool"),
	}
	for i := 0; i < count; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewWorker(source, fetcher, scorer, recorder, workerOpts...)
	}
	metrics.UpdateWorkerActiveCount(count)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop shuts every worker down, bounded by the shutdown timeout each.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.log.Warn(ctx, "worker stop timed out", logger.String("worker", w.name))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
}
