// Package epoch drives the irreversible weekly transition sequence:
// close week, select winner, distribute prize, roll over. Every step is
// re-derived from freshly read authoritative state, and every "already
// done" answer from the authority counts as success, so the sequence is
// safe to invoke concurrently or retry after a crash.
package epoch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/agon/internal/adapters/ledger"
	"github.com/okian/agon/internal/domain/model"
	"github.com/okian/agon/pkg/logger"
	"github.com/okian/agon/pkg/metrics"
)

// Status summarizes one Advance invocation.
type Status string

const (
	// StatusNotYetEnded means the epoch end timestamp has not passed; the
	// invocation was a no-op.
	StatusNotYetEnded Status = "not_yet_ended"

	// StatusAdvanced means the transition sequence completed and a new
	// epoch is open (possibly via a concurrent invocation).
	StatusAdvanced Status = "advanced"
)

// Result reports what one Advance invocation did.
type Result struct {
	Epoch            uint64 `json:"epoch"`
	Status           Status `json:"status"`
	WinnerSelected   bool   `json:"winner_selected"`
	PrizeDistributed bool   `json:"prize_distributed"`
	RolledOver       bool   `json:"rolled_over"`
}

// Invalidator clears cached projections after a mutating step.
type Invalidator interface {
	InvalidateAll()
}

// Controller owns the legal weekly transitions. It holds no timer and no
// local transition memory; an external scheduler (or operator) invokes
// Advance and every decision is taken from authoritative reads that bypass
// the cache.
type Controller struct {
	gw    ledger.Gateway
	cache Invalidator
	now   func() time.Time
	log   logger.Logger
}

// New creates a controller over the gateway with configuration options.
func New(gw ledger.Gateway, opts ...Option) *Controller {
	c := &Controller{
		gw:  gw,
		now: time.Now,
		log: logger.Get().Named("epoch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Advance runs the transition sequence once. On a step failure it reports
// and halts; the next invocation resumes from the same point because state
// is re-read fresh. Idempotent: invoking it twice in succession yields the
// same final state with no duplicate distribution.
func (c *Controller) Advance(ctx context.Context) (Result, error) {
	state, err := c.gw.EpochState(ctx)
	if err != nil {
		metrics.RecordEpochTransition("read_state", "error")
		return Result{}, fmt.Errorf("read epoch state: %w", err)
	}
	res := Result{Epoch: state.Number}

	if !state.Ended(c.now()) {
		res.Status = StatusNotYetEnded
		metrics.RecordEpochTransition("read_state", "not_yet_ended")
		return res, nil
	}

	switch {
	case state.Winner != "":
		res.WinnerSelected = true
	case !state.PrizeDistributed:
		if err := c.selectWinner(ctx, &res); err != nil {
			return res, err
		}
	}

	// Re-read: the winner (or its absence, on a rollover) is now
	// authoritative.
	state, err = c.gw.EpochState(ctx)
	if err != nil {
		metrics.RecordEpochTransition("reread_state", "error")
		return res, fmt.Errorf("re-read epoch state: %w", err)
	}

	switch {
	case state.Winner != "" && !state.PrizeDistributed && state.WinnerPrize > 0:
		if err := c.distributePrize(ctx, &res); err != nil {
			return res, err
		}
	case state.Winner == "":
		// No eligible winner: the pool rolls into the next epoch on the
		// authority side; there is nothing to distribute.
		res.RolledOver = true
		metrics.RecordEpochTransition("distribute_prize", "rolled_over")
	default:
		res.PrizeDistributed = true
	}

	if err := c.startNewEpoch(ctx, &res); err != nil {
		return res, err
	}

	if c.cache != nil {
		c.cache.InvalidateAll()
	}
	res.Status = StatusAdvanced
	c.log.Info(ctx, "epoch advanced",
		logger.Uint64("closed_epoch", res.Epoch),
		logger.Bool("rolled_over", res.RolledOver),
	)
	return res, nil
}

func (c *Controller) selectWinner(ctx context.Context, res *Result) error {
	err := c.gw.SelectWinner(ctx)
	switch {
	case err == nil:
		res.WinnerSelected = true
		metrics.RecordEpochTransition("select_winner", "ok")
		return nil
	case errors.Is(err, ledger.ErrWinnerAlreadySelected):
		// A concurrent or prior invocation got here first.
		res.WinnerSelected = true
		metrics.RecordEpochTransition("select_winner", "already_done")
		return nil
	default:
		metrics.RecordEpochTransition("select_winner", "error")
		return fmt.Errorf("select winner for epoch %d: %w", res.Epoch, err)
	}
}

func (c *Controller) distributePrize(ctx context.Context, res *Result) error {
	err := c.gw.DistributePrize(ctx)
	switch {
	case err == nil:
		res.PrizeDistributed = true
		metrics.RecordEpochTransition("distribute_prize", "ok")
		return nil
	case errors.Is(err, ledger.ErrNoWinnerSelected):
		// The authority decided on rollover between our reads.
		res.RolledOver = true
		metrics.RecordEpochTransition("distribute_prize", "rolled_over")
		return nil
	default:
		metrics.RecordEpochTransition("distribute_prize", "error")
		return fmt.Errorf("distribute prize for epoch %d: %w", res.Epoch, err)
	}
}

func (c *Controller) startNewEpoch(ctx context.Context, res *Result) error {
	err := c.gw.StartNewEpoch(ctx)
	switch {
	case err == nil:
		metrics.RecordEpochTransition("start_new_epoch", "ok")
		return nil
	case errors.Is(err, ledger.ErrEpochStillOpen):
		// A concurrent invocation already advanced past us.
		metrics.RecordEpochTransition("start_new_epoch", "already_done")
		return nil
	default:
		metrics.RecordEpochTransition("start_new_epoch", "error")
		return fmt.Errorf("start new epoch after %d: %w", res.Epoch, err)
	}
}

// Phase reports the current epoch's phase from a fresh authoritative read.
func (c *Controller) Phase(ctx context.Context) (model.EpochPhase, error) {
	state, err := c.gw.EpochState(ctx)
	if err != nil {
		return "", fmt.Errorf("read epoch state: %w", err)
	}
	return state.Phase(c.now()), nil
}
