// Package model contains domain records passed between layers. Every value
// crossing the ledger gateway boundary is normalized into these types; raw
// wire data never reaches the cache or the controller.
package model

import (
	"errors"
	"time"
)

// Monetary amounts are integer micro-units of the stablecoin (1 unit =
// 1e-6). A fee of 0.01 is therefore 10_000.

// EpochPhase identifies where an epoch sits in the weekly transition
// sequence.
type EpochPhase string

const (
	PhaseActive           EpochPhase = "active"
	PhaseWinnerPending    EpochPhase = "winner_pending"
	PhasePrizePending     EpochPhase = "prize_pending"
	PhasePrizeDistributed EpochPhase = "prize_distributed"
)

// Epoch is one weekly competition cycle as reported by the ledger
// authority.
type Epoch struct {
	Number           uint64    `json:"number"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	PrizePool        int64     `json:"prize_pool"`
	CyclePool        int64     `json:"cycle_pool"`
	Rollover         int64     `json:"rollover"`
	Participants     int       `json:"participants"`
	Winner           string    `json:"winner,omitempty"`
	WinnerPrize      int64     `json:"winner_prize"`
	Fee              int64     `json:"fee"`
	PrizeDistributed bool      `json:"prize_distributed"`
}

// Phase derives the epoch's position in the transition sequence at now.
func (e Epoch) Phase(now time.Time) EpochPhase {
	switch {
	case now.Before(e.EndTime):
		return PhaseActive
	case e.Winner == "" && !e.PrizeDistributed:
		return PhaseWinnerPending
	case !e.PrizeDistributed:
		return PhasePrizePending
	default:
		return PhasePrizeDistributed
	}
}

// Ended reports whether the epoch's end timestamp has passed.
func (e Epoch) Ended(now time.Time) bool {
	return !now.Before(e.EndTime)
}

// Validate checks the structural invariants of an epoch snapshot.
func (e Epoch) Validate(now time.Time) error {
	if e.Number == 0 {
		return errors.New("epoch number must be positive")
	}
	if !e.EndTime.After(e.StartTime) {
		return errors.New("epoch end must be after start")
	}
	if e.Winner != "" && now.Before(e.EndTime) {
		return errors.New("winner set before epoch end")
	}
	if e.WinnerPrize > 0 && e.Winner == "" {
		return errors.New("winner prize without a winner")
	}
	return nil
}
