package circle

import (
	"errors"
	"fmt"
)

// Error classes. Every failure returned by a circle or the coordinator wraps
// exactly one of these, so callers can dispatch with errors.Is.
var (
	// ErrValidation covers malformed parameters and zero or negative amounts.
	ErrValidation = errors.New("validation error")
	// ErrAuthorization covers callers lacking the required role
	// (participant, creator, or coordinator).
	ErrAuthorization = errors.New("authorization error")
	// ErrState covers operations invoked in the wrong lifecycle state.
	ErrState = errors.New("state error")
	// ErrTiming covers interval or payment conditions not yet met.
	ErrTiming = errors.New("timing error")
	// ErrCapacity covers a full roster and prepayments beyond the run.
	ErrCapacity = errors.New("capacity error")
	// ErrDefault covers grace/removal attempts on a target not in default.
	ErrDefault = errors.New("default error")
	// ErrTransfer covers failures reported by the token interface.
	ErrTransfer = errors.New("transfer error")
	// ErrConsistency signals a broken internal invariant: a bug, never a
	// user error.
	ErrConsistency = errors.New("internal consistency error")
)

// Concrete errors, each wrapping its class.
var (
	ErrNotOpen              = fmt.Errorf("%w: circle is not open", ErrState)
	ErrNotActive            = fmt.Errorf("%w: circle is not active", ErrState)
	ErrNotCompleted         = fmt.Errorf("%w: circle is not completed", ErrState)
	ErrRosterFull           = fmt.Errorf("%w: roster is full", ErrCapacity)
	ErrRosterNotFull        = fmt.Errorf("%w: roster is not full", ErrState)
	ErrAlreadyJoined        = fmt.Errorf("%w: already enrolled", ErrValidation)
	ErrNotParticipant       = fmt.Errorf("%w: caller is not an active participant", ErrAuthorization)
	ErrNotCreator           = fmt.Errorf("%w: caller is not the circle creator", ErrAuthorization)
	ErrOverpayment          = fmt.Errorf("%w: payment exceeds remaining cycles", ErrCapacity)
	ErrIntervalNotElapsed   = fmt.Errorf("%w: payout interval has not elapsed", ErrTiming)
	ErrUnpaidParticipants   = fmt.Errorf("%w: not all active participants have paid the current cycle", ErrTiming)
	ErrOrderNotAssigned     = fmt.Errorf("%w: payout order not assigned", ErrState)
	ErrOrderAlreadyAssigned = fmt.Errorf("%w: payout order already assigned", ErrState)
	ErrNotInDefault         = fmt.Errorf("%w: participant is not in default", ErrDefault)
	ErrInsufficientPool     = fmt.Errorf("%w: pooled funds below payout amount", ErrConsistency)
)
