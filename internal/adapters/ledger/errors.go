package ledger

import "errors"

// Error taxonomy for ledger authority calls. Callers branch with errors.Is;
// everything the gateway returns wraps exactly one of these kinds.
var (
	// ErrUnavailable means every endpoint was exhausted within the retry
	// budget. Callers must substitute a cached or documented default value,
	// never surface a hard failure to the end user.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrUnauthorized means a write was attempted without operator rights.
	// Fatal, never retried.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPaused means the authority is in a paused operational state.
	ErrPaused = errors.New("ledger paused")

	// Invalid-transition kinds. Often treated as success under the
	// controller's idempotence rules.
	ErrCharacterAlreadySet   = errors.New("character already set for epoch")
	ErrEpochNotEnded         = errors.New("epoch not ended")
	ErrWinnerAlreadySelected = errors.New("winner already selected")
	ErrNoWinnerSelected      = errors.New("no winner selected")
	ErrEpochStillOpen        = errors.New("current epoch still open")

	// ErrValidation means the authority rejected malformed input.
	ErrValidation = errors.New("validation failed")
)

// Wire error codes returned by the authority, mapped onto the taxonomy at
// the gateway boundary.
const (
	CodeUnauthorized          = "unauthorized"
	CodePaused                = "paused"
	CodeCharacterAlreadySet   = "character_already_set"
	CodeEpochNotEnded         = "epoch_not_ended"
	CodeWinnerAlreadySelected = "winner_already_selected"
	CodeNoWinnerSelected      = "no_winner_selected"
	CodeEpochStillOpen        = "epoch_still_open"
	CodeValidation            = "validation"
)

// IsUnavailable reports whether err means the retry budget was exhausted.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsValidation reports whether err is an input rejection.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsInvalidTransition reports whether err is one of the informational
// transition rejections from the authority.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrEpochNotEnded) ||
		errors.Is(err, ErrWinnerAlreadySelected) ||
		errors.Is(err, ErrNoWinnerSelected) ||
		errors.Is(err, ErrEpochStillOpen) ||
		errors.Is(err, ErrCharacterAlreadySet)
}

var codeToErr = map[string]error{
	CodeUnauthorized:          ErrUnauthorized,
	CodePaused:                ErrPaused,
	CodeCharacterAlreadySet:   ErrCharacterAlreadySet,
	CodeEpochNotEnded:         ErrEpochNotEnded,
	CodeWinnerAlreadySelected: ErrWinnerAlreadySelected,
	CodeNoWinnerSelected:      ErrNoWinnerSelected,
	CodeEpochStillOpen:        ErrEpochStillOpen,
	CodeValidation:            ErrValidation,
}
