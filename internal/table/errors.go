package table

import "errors"

// Rejections are returned without mutating any session state. They split
// into three groups the transport maps to distinct response classes:
// validation failures, wrong-state/wrong-turn failures, and lookups that
// found nothing.
var (
	// Validation failures.
	ErrBetOutOfRange       = errors.New("bet out of range")
	ErrDuplicatePlayer     = errors.New("player already at this table")
	ErrCapacityExceeded    = errors.New("table is full")
	ErrAlreadyInSession    = errors.New("player already in another session")
	ErrUnknownPlayer       = errors.New("player is not registered")
	ErrInsufficientBalance = errors.New("balance too low for this bet")
	ErrUnknownAction       = errors.New("unknown action")
	ErrHostAlreadyHosting  = errors.New("host already has an open session")

	// State failures.
	ErrWrongStatus      = errors.New("action not valid in current session status")
	ErrNotEnoughPlayers = errors.New("at least one player required to start")
	ErrOutOfTurn        = errors.New("not this player's turn")
	ErrSplitNotAllowed  = errors.New("split preconditions not met")

	// Lookup failures.
	ErrNoSession = errors.New("no session for player")
)

// IsValidation reports whether err is a synchronous validation rejection.
func IsValidation(err error) bool {
	for _, e := range []error{
		ErrBetOutOfRange, ErrDuplicatePlayer, ErrCapacityExceeded,
		ErrAlreadyInSession, ErrUnknownPlayer, ErrInsufficientBalance,
		ErrUnknownAction, ErrHostAlreadyHosting,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsState reports whether err is a wrong-status or out-of-turn rejection.
func IsState(err error) bool {
	for _, e := range []error{
		ErrWrongStatus, ErrNotEnoughPlayers, ErrOutOfTurn, ErrSplitNotAllowed,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means no session exists for the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoSession)
}
