// Package queue buffers evaluation jobs between the ingestion surface and
// the evaluation workers. Submissions are deduplicated by conversation id
// so one interaction is evaluated at most once per process.
package queue

import (
	"context"
	"sync"

	"github.com/okian/agon/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 10_000
)

// Job is one pending evaluation.
type Job struct {
	ConversationID string
	Address        string
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. Returns false when the queue is full, closed, or
	// the conversation was already submitted.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue returns a channel delivering jobs until the queue closes.
	Dequeue(ctx context.Context) <-chan Job

	// Forget removes a conversation id from the seen set so a failed
	// evaluation can be resubmitted.
	Forget(ctx context.Context, conversationID string)

	// Len returns the current number of buffered jobs.
	Len(ctx context.Context) int

	// Close stops the queue; no further jobs are accepted.
	Close() error
}

// InMemoryQueue implements Queue with a bounded channel and a seen set.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.Mutex
	seen   map[string]struct{}
	closed bool
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateEvalQueueCapacity(q.capacity)
	metrics.UpdateEvalQueueDepth(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordEvalEnqueueError()
		return false
	}
	if _, dup := q.seen[j.ConversationID]; dup {
		return false
	}

	select {
	case q.jobs <- j:
		q.seen[j.ConversationID] = struct{}{}
		metrics.UpdateEvalQueueDepth(len(q.jobs))
		return true
	case <-ctx.Done():
		metrics.RecordEvalEnqueueError()
		return false
	default:
		metrics.RecordEvalEnqueueError()
		return false
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.UpdateEvalQueueDepth(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Forget implements Queue.
func (q *InMemoryQueue) Forget(_ context.Context, conversationID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.seen, conversationID)
}

// Len implements Queue.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.jobs)
}

// Close implements Queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}
