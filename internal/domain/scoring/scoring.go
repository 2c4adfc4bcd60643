// Package scoring defines the contract for evaluating finished
// conversations. The scoring model itself is opaque to the rest of the
// system: anything satisfying Scorer that yields a bounded numeric score
// can be plugged in.
package scoring

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/agon/internal/domain/model"
)

// Default evaluator configuration constants.
const (
	defaultMinLatency = 80 * time.Millisecond
	defaultMaxLatency = 150 * time.Millisecond
	defaultRandomSeed = 42
	lengthWeight      = 0.6
	varietyWeight     = 0.4
)

// Input carries the conversation fields the evaluator needs.
type Input struct {
	ConversationID string
	Address        string
	Messages       []model.Message
}

// Result is the bounded evaluation outcome for a conversation.
type Result struct {
	ConversationID string
	Score          float64 // 0..model.MaxScore
}

// Scorer evaluates a conversation. Implementations may call out to an
// external model and should honor ctx for cancellation.
type Scorer interface {
	Score(ctx context.Context, in Input) (Result, error)
}

// Option applies a configuration option to the HeuristicScorer.
type Option func(*HeuristicScorer)

// WithLatencyRange sets the simulated evaluation latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *HeuristicScorer) {
		if minLatency > 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithSeed makes the simulated latency deterministic for tests.
func WithSeed(seed int64) Option {
	return func(s *HeuristicScorer) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible latency, not crypto
	}
}

// HeuristicScorer implements Scorer with a deterministic stand-in for the
// external evaluation model. The score depends only on the transcript, so
// re-evaluating the same conversation yields the same result.
type HeuristicScorer struct {
	minLatency time.Duration
	maxLatency time.Duration

	// rngMu guards rng: one scorer instance is shared by the whole worker
	// pool and *rand.Rand is not safe for concurrent use.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewHeuristicScorer creates an evaluator with configuration options.
func NewHeuristicScorer(opts ...Option) *HeuristicScorer {
	s := &HeuristicScorer{
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // reproducible latency, not crypto
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score evaluates the conversation transcript.
func (s *HeuristicScorer) Score(ctx context.Context, in Input) (Result, error) {
	if in.ConversationID == "" {
		return Result{}, fmt.Errorf("missing conversation id")
	}

	// Simulate external model latency.
	s.rngMu.Lock()
	jitter := s.rng.Int63n(int64(s.maxLatency - s.minLatency))
	s.rngMu.Unlock()
	latency := s.minLatency + time.Duration(jitter)
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("evaluation cancelled: %w", ctx.Err())
	case <-time.After(latency):
	}

	var userChars, userMessages int
	h := fnv.New64a()
	for _, m := range in.Messages {
		if m.Role == "user" {
			userChars += len(m.Content)
			userMessages++
		}
		_, _ = h.Write([]byte(m.Content))
	}

	// Length component saturates, variety component is a stable hash spread.
	length := math.Min(1, float64(userChars)/1000) * model.MaxScore
	variety := float64(h.Sum64()%1000) / 1000 * model.MaxScore
	score := lengthWeight*length + varietyWeight*variety
	score = math.Max(0, math.Min(model.MaxScore, score))

	return Result{ConversationID: in.ConversationID, Score: score}, nil
}
