// Package ledger provides typed read/write access to the remote competition
// ledger authority. Reads retry with endpoint rotation; writes surface
// failures immediately and are never silently retried.
package ledger

import (
	"context"

	"github.com/okian/agon/internal/domain/model"
)

// Gateway is the call surface consumed from the remote authority. Every
// method returns normalized domain values or an error wrapping one kind
// from this package's taxonomy.
type Gateway interface {
	// EpochState fetches the current epoch snapshot.
	EpochState(ctx context.Context) (model.Epoch, error)

	// Participant fetches the per-user record for the current epoch.
	Participant(ctx context.Context, address string) (model.Participant, error)

	// Character fetches the active weekly descriptor. ok is false when no
	// descriptor is set for the epoch.
	Character(ctx context.Context) (c model.Character, ok bool, err error)

	// Conversations fetches the user's interactions for the current epoch,
	// ordered by start time with messages ordered by sequence.
	Conversations(ctx context.Context, address string) ([]model.Conversation, error)

	// SetCharacter installs the weekly descriptor. Owner-authorized; fails
	// with ErrCharacterAlreadySet, ErrUnauthorized or ErrPaused.
	SetCharacter(ctx context.Context, c model.Character) error

	// SelectWinner closes scoring for the ended epoch. Fails with
	// ErrEpochNotEnded before the end timestamp and
	// ErrWinnerAlreadySelected on idempotent re-invocation.
	SelectWinner(ctx context.Context) error

	// DistributePrize pays out the selected winner. Fails with
	// ErrNoWinnerSelected; a repeat call after distribution is a no-op.
	DistributePrize(ctx context.Context) error

	// StartNewEpoch rolls the competition over. Fails with
	// ErrEpochStillOpen while the current epoch cannot be closed.
	StartNewEpoch(ctx context.Context) error

	// RecordScore submits an evaluation result for a conversation.
	RecordScore(ctx context.Context, conversationID string, score float64) error
}
