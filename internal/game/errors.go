package game

import (
	"errors"
	"fmt"
)

// RejectCode identifies why a proposed action was refused.
type RejectCode string

const (
	RejectOutOfTurn    RejectCode = "out_of_turn"
	RejectBelowMinimum RejectCode = "below_minimum"
	RejectOverStack    RejectCode = "over_stack"
	RejectIllegalKind  RejectCode = "illegal_kind"
	RejectRoundClosed  RejectCode = "round_closed"
)

// ValidationError is returned when an action is rejected. It never
// indicates corrupted state: rejected actions leave the hand untouched
// and the player may resubmit before their deadline.
type ValidationError struct {
	Code   RejectCode
	Seat   int
	Kind   ActionKind
	Amount int
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("action rejected (%s): %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("action rejected (%s): seat %d %s %d", e.Code, e.Seat, e.Kind, e.Amount)
}

func reject(code RejectCode, seat int, kind ActionKind, amount int, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:   code,
		Seat:   seat,
		Kind:   kind,
		Amount: amount,
		Detail: fmt.Sprintf(format, args...),
	}
}

// InvariantViolation reports a chip accounting failure. It is fatal for
// the hand: stacks are reverted to their pre-hand values and the error is
// surfaced rather than play continuing on corrupted state.
type InvariantViolation struct {
	HandID   string
	Expected int
	Actual   int
	Detail   string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation in hand %s: %s (expected %d chips, found %d)",
		e.HandID, e.Detail, e.Expected, e.Actual)
}

var (
	// ErrHandInProgress is returned when an operation requires the table
	// to be between hands.
	ErrHandInProgress = errors.New("hand in progress")

	// ErrNotEnoughPlayers is returned when a hand cannot start because
	// fewer than two funded players are seated.
	ErrNotEnoughPlayers = errors.New("not enough players with chips")

	// ErrNoSeat is returned when a player is not seated at the table.
	ErrNoSeat = errors.New("player not seated")

	// ErrTableFull is returned when every seat is occupied.
	ErrTableFull = errors.New("table full")

	// ErrNoActionPending is returned when an action arrives while nothing
	// is being awaited, including late responses after a default has
	// already been substituted.
	ErrNoActionPending = errors.New("no action pending")
)
