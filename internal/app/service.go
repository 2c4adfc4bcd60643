// Package service provides the core business service that implements
// the dependencies required by the HTTP API. Reads are cache-first with
// rate-limited refresh against the ledger authority; an unreachable
// authority degrades answers to stale or default values instead of
// failing the caller.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/agon/internal/adapters/cache"
	"github.com/okian/agon/internal/adapters/ledger"
	evalqueue "github.com/okian/agon/internal/adapters/mq/queue"
	workerpool "github.com/okian/agon/internal/adapters/mq/worker"
	"github.com/okian/agon/internal/domain/model"
	"github.com/okian/agon/internal/domain/ratelimit"
	"github.com/okian/agon/internal/domain/scoring"
	"github.com/okian/agon/internal/epoch"
	"github.com/okian/agon/pkg/logger"
	"github.com/okian/agon/pkg/metrics"
)

const (
	epochKey     = "current"
	characterKey = "current"
)

// Snapshot is the public competition state view. Stale marks answers
// served from an expired cache entry; Degraded marks a default answer
// fabricated because neither the authority nor the cache could serve.
type Snapshot struct {
	Epoch    model.Epoch      `json:"epoch"`
	Phase    model.EpochPhase `json:"phase"`
	Stale    bool             `json:"stale"`
	Degraded bool             `json:"degraded,omitempty"`
}

// CharacterView pairs the weekly descriptor with its presence flag so a
// "no character yet" answer is distinguishable from a missing cache.
type CharacterView struct {
	Character model.Character `json:"character"`
	Set       bool            `json:"set"`
	Stale     bool            `json:"stale"`
	Degraded  bool            `json:"degraded,omitempty"`
}

// ConversationsView carries a user's interactions plus the staleness flag.
type ConversationsView struct {
	Conversations []model.Conversation `json:"conversations"`
	Stale         bool                 `json:"stale"`
	Degraded      bool                 `json:"degraded,omitempty"`
}

// EligibilityView wraps the eligibility verdict with staleness.
type EligibilityView struct {
	Eligibility model.Eligibility `json:"eligibility"`
	Stale       bool              `json:"stale"`
	Degraded    bool              `json:"degraded,omitempty"`
}

// Service implements the API dependencies for the competition read layer.
type Service struct {
	mu sync.RWMutex

	gateway    ledger.Gateway
	controller *epoch.Controller

	epochCache         *cache.Store[model.Epoch]
	participantCache   *cache.Store[model.Participant]
	conversationsCache *cache.Store[[]model.Conversation]
	characterCache     *cache.Store[CharacterView]

	limiter ratelimit.Limiter
	queue   *evalqueue.InMemoryQueue
	scorer  scoring.Scorer
	workers *workerpool.Pool

	fee         int64
	quota       int
	workerCount int
	queueSize   int
	cacheTTL    time.Duration
	refreshGap  time.Duration
	scoringMin  time.Duration
	scoringMax  time.Duration
	now         func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service over the gateway with default configuration.
func New(gw ledger.Gateway, opts ...Option) *Service {
	s := &Service{
		gateway:     gw,
		fee:         10_000,
		quota:       3,
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10_000,
		cacheTTL:    30 * time.Second,
		refreshGap:  5 * time.Second,
		scoringMin:  80 * time.Millisecond,
		scoringMax:  150 * time.Millisecond,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting competition service...")

	s.epochCache = cache.New(
		cache.WithTTL[model.Epoch](s.cacheTTL),
		cache.WithKind[model.Epoch]("epoch"),
	)
	s.participantCache = cache.New(
		cache.WithTTL[model.Participant](s.cacheTTL),
		cache.WithKind[model.Participant]("participant"),
	)
	s.conversationsCache = cache.New(
		cache.WithTTL[[]model.Conversation](s.cacheTTL),
		cache.WithKind[[]model.Conversation]("conversations"),
	)
	s.characterCache = cache.New(
		cache.WithTTL[CharacterView](s.cacheTTL),
		cache.WithKind[CharacterView]("character"),
	)

	if s.limiter == nil {
		s.limiter = ratelimit.NewIntervalLimiter(
			ratelimit.WithInterval(s.refreshGap),
		)
	}
	if s.scorer == nil {
		s.scorer = scoring.NewHeuristicScorer(
			scoring.WithLatencyRange(s.scoringMin, s.scoringMax),
		)
	}
	if s.controller == nil {
		s.controller = epoch.New(s.gateway,
			epoch.WithInvalidator(s),
			epoch.WithClock(s.now),
		)
	}

	s.queue = evalqueue.NewInMemoryQueue(
		evalqueue.WithCapacity(s.queueSize),
	)
	s.workers = workerpool.NewPool(s.workerCount, s.queue, s.gateway, s.scorer, s.gateway,
		workerpool.WithInvalidator(s),
	)
	s.workers.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "competition service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("cacheTTL", s.cacheTTL),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping competition service...")

	if s.workers != nil {
		s.workers.Stop()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "competition service stopped")
}

// CompetitionSnapshot returns the current epoch state. It never fails:
// when the authority is unreachable and the cache is empty it answers a
// zero-valued degraded snapshot.
func (s *Service) CompetitionSnapshot(ctx context.Context) Snapshot {
	cached, stale, ok := s.epochCache.Get(epochKey)
	if ok && !stale {
		return s.snapshotOf(cached, false)
	}

	if !s.limiter.Allow(ctx, "epoch") {
		if ok {
			return s.snapshotOf(cached, true)
		}
		return Snapshot{Phase: model.PhaseActive, Degraded: true}
	}

	fresh, err := s.gateway.EpochState(ctx)
	if err != nil {
		s.logger.Warn(ctx, "epoch refresh failed",
			logger.Error(err),
			logger.Bool("servingStale", ok),
		)
		if ok {
			return s.snapshotOf(cached, true)
		}
		return Snapshot{Phase: model.PhaseActive, Degraded: true}
	}

	s.epochCache.Put(epochKey, fresh)
	return s.snapshotOf(fresh, false)
}

func (s *Service) snapshotOf(e model.Epoch, stale bool) Snapshot {
	return Snapshot{
		Epoch: e,
		Phase: e.Phase(s.now()),
		Stale: stale,
	}
}

// Eligibility answers whether the address can start a conversation right
// now. Invalid addresses fail fast; an unreachable authority falls back
// to stale cached records when available.
func (s *Service) Eligibility(ctx context.Context, address string) (EligibilityView, error) {
	if !model.ValidAddress(address) {
		return EligibilityView{}, fmt.Errorf("address %q: %w", address, ledger.ErrValidation)
	}

	p, stale, degraded, err := s.participant(ctx, address)
	if err != nil {
		return EligibilityView{}, err
	}

	fee := s.fee
	if snap := s.CompetitionSnapshot(ctx); snap.Epoch.Fee > 0 {
		fee = snap.Epoch.Fee
	}

	return EligibilityView{
		Eligibility: p.Evaluate(fee, s.quota),
		Stale:       stale,
		Degraded:    degraded,
	}, nil
}

// participant resolves the record cache-first. An unreachable authority
// with nothing cached yields a zero-value record flagged degraded; only
// validation-class failures propagate as errors.
func (s *Service) participant(ctx context.Context, address string) (p model.Participant, stale, degraded bool, err error) {
	cached, stale, ok := s.participantCache.Get(address)
	if ok && !stale {
		return cached, false, false, nil
	}

	if !s.limiter.Allow(ctx, "participant:"+address) {
		if ok {
			return cached, true, false, nil
		}
		return model.Participant{Address: address}, false, true, nil
	}

	fresh, err := s.gateway.Participant(ctx, address)
	if err != nil {
		if !ledger.IsUnavailable(err) {
			return model.Participant{}, false, false, err
		}
		s.logger.Warn(ctx, "participant refresh failed",
			logger.String("address", address),
			logger.Bool("servingStale", ok),
			logger.Error(err),
		)
		if ok {
			return cached, true, false, nil
		}
		return model.Participant{Address: address}, false, true, nil
	}

	s.participantCache.Put(address, fresh)
	return fresh, false, false, nil
}

// Conversations returns the user's interactions for the current epoch.
func (s *Service) Conversations(ctx context.Context, address string) (ConversationsView, error) {
	if !model.ValidAddress(address) {
		return ConversationsView{}, fmt.Errorf("address %q: %w", address, ledger.ErrValidation)
	}

	cached, stale, ok := s.conversationsCache.Get(address)
	if ok && !stale {
		return ConversationsView{Conversations: cached}, nil
	}

	if !s.limiter.Allow(ctx, "conversations:"+address) {
		if ok {
			return ConversationsView{Conversations: cached, Stale: true}, nil
		}
		return ConversationsView{Conversations: []model.Conversation{}, Degraded: true}, nil
	}

	fresh, err := s.gateway.Conversations(ctx, address)
	if err != nil {
		if !ledger.IsUnavailable(err) {
			return ConversationsView{}, err
		}
		if ok {
			return ConversationsView{Conversations: cached, Stale: true}, nil
		}
		s.logger.Warn(ctx, "conversations refresh failed, serving empty",
			logger.String("address", address),
			logger.Error(err),
		)
		return ConversationsView{Conversations: []model.Conversation{}, Degraded: true}, nil
	}

	s.conversationsCache.Put(address, fresh)
	return ConversationsView{Conversations: fresh}, nil
}

// ActiveCharacter returns the weekly descriptor, cache-first.
func (s *Service) ActiveCharacter(ctx context.Context) (CharacterView, error) {
	cached, stale, ok := s.characterCache.Get(characterKey)
	if ok && !stale {
		return cached, nil
	}

	if !s.limiter.Allow(ctx, "character") {
		if ok {
			cached.Stale = true
			return cached, nil
		}
		return CharacterView{Degraded: true}, nil
	}

	c, set, err := s.gateway.Character(ctx)
	if err != nil {
		if !ledger.IsUnavailable(err) {
			return CharacterView{}, err
		}
		if ok {
			cached.Stale = true
			return cached, nil
		}
		s.logger.Warn(ctx, "character refresh failed, serving empty",
			logger.Error(err),
		)
		return CharacterView{Degraded: true}, nil
	}

	view := CharacterView{Character: c, Set: set}
	s.characterCache.Put(characterKey, view)
	return view, nil
}

// SetCharacter installs the weekly descriptor through the authority and
// drops the cached copy on success. Write failures surface unchanged.
func (s *Service) SetCharacter(ctx context.Context, c model.Character) error {
	if err := s.gateway.SetCharacter(ctx, c); err != nil {
		return err
	}
	s.characterCache.Invalidate(characterKey)
	return nil
}

// SubmitForEvaluation queues a conversation for asynchronous scoring.
// Returns false when the queue is full or the id is already queued.
func (s *Service) SubmitForEvaluation(ctx context.Context, conversationID, address string) (bool, error) {
	if conversationID == "" {
		return false, fmt.Errorf("conversation id must not be empty: %w", ledger.ErrValidation)
	}
	if !model.ValidAddress(address) {
		return false, fmt.Errorf("address %q: %w", address, ledger.ErrValidation)
	}

	accepted := s.queue.Enqueue(ctx, evalqueue.Job{
		ConversationID: conversationID,
		Address:        address,
	})
	metrics.UpdateEvalQueueDepth(s.queue.Len(ctx))
	return accepted, nil
}

// AdvanceEpoch runs the weekly transition sequence once.
func (s *Service) AdvanceEpoch(ctx context.Context) (epoch.Result, error) {
	return s.controller.Advance(ctx)
}

// InvalidateUser drops every cached projection derived from one address.
func (s *Service) InvalidateUser(address string) {
	s.participantCache.Invalidate(address)
	s.conversationsCache.Invalidate(address)
}

// InvalidateAll clears every cache. Used after epoch transitions and by
// the admin surface.
func (s *Service) InvalidateAll() {
	s.epochCache.InvalidateAll()
	s.participantCache.InvalidateAll()
	s.conversationsCache.InvalidateAll()
	s.characterCache.InvalidateAll()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"quota":       s.quota,
		"feeMicro":    s.fee,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["cachedEpochs"] = s.epochCache.Len()
		stats["cachedParticipants"] = s.participantCache.Len()
		stats["cachedConversations"] = s.conversationsCache.Len()
		stats["limiterKeys"] = s.limiter.Keys()

		metrics.UpdateEvalQueueDepth(queueLen)
		metrics.UpdateWorkerActiveCount(s.workerCount)
	}

	return stats
}
