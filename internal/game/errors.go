package game

import "fmt"

// InvalidPhaseError is returned when an operation is attempted outside
// the phase it is legal in.
type InvalidPhaseError struct {
	Op    string
	Phase Phase
}

func (e *InvalidPhaseError) Error() string {
	return fmt.Sprintf("%s is not legal in the %s phase", e.Op, e.Phase)
}

// PlayerNotFoundError is returned when no seated player matches the
// requested player ID.
type PlayerNotFoundError struct {
	PlayerID string
}

func (e *PlayerNotFoundError) Error() string {
	return fmt.Sprintf("player not found: %s", e.PlayerID)
}

// InvalidBetError is returned when a wager fails validation.
type InvalidBetError struct {
	Amount int
	Chips  int
	Reason string
}

func (e *InvalidBetError) Error() string {
	return fmt.Sprintf("invalid bet %d (chips %d): %s", e.Amount, e.Chips, e.Reason)
}

// NotPlayersTurnError is returned when a player acts out of turn.
type NotPlayersTurnError struct {
	PlayerID string
}

func (e *NotPlayersTurnError) Error() string {
	return fmt.Sprintf("it is not %s's turn", e.PlayerID)
}

// IllegalActionError is returned when an action's preconditions do not
// hold (e.g. doubling without eligibility).
type IllegalActionError struct {
	Op     string
	Reason string
}

func (e *IllegalActionError) Error() string {
	return fmt.Sprintf("illegal %s: %s", e.Op, e.Reason)
}
