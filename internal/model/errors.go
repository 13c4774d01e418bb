package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrAuth             = errors.New("authentication failed")

	// ErrInfrastructure marks failures of external collaborators such as storage
	ErrInfrastructure = errors.New("infrastructure failure")
)

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	ErrUserOffline  = fmt.Errorf("%w: user is not online", ErrInvalidOperation)

	// Invitation errors
	ErrInvitationNotFound   = fmt.Errorf("invitation %w", ErrNotFound)
	ErrSelfInvitation       = fmt.Errorf("%w: cannot invite yourself", ErrInvalidOperation)
	ErrDuplicateInvitation  = fmt.Errorf("%w: a pending invitation already exists", ErrInvalidOperation)
	ErrInvitationNotPending = fmt.Errorf("%w: invitation is no longer pending", ErrInvalidOperation)
	ErrInvitationExpired    = fmt.Errorf("%w: invitation has expired", ErrInvalidOperation)
	ErrNotInvitee           = fmt.Errorf("%w: only the invited user can respond", ErrForbidden)

	// Match errors
	ErrMatchNotFound     = fmt.Errorf("match %w", ErrNotFound)
	ErrMatchNotActive    = fmt.Errorf("%w: match is not in progress", ErrInvalidOperation)
	ErrNotParticipant    = fmt.Errorf("%w: user is not a participant", ErrForbidden)
	ErrNotPlayerTurn     = fmt.Errorf("%w: not this player's turn", ErrInvalidOperation)
	ErrIllegalMove       = fmt.Errorf("%w: illegal move", ErrInvalidOperation)
	ErrInvalidBoardState = errors.New("invalid board state")

	// Connection errors
	ErrUnauthenticated  = fmt.Errorf("%w: connection has no bound identity", ErrAuth)
	ErrInvalidToken     = fmt.Errorf("%w: invalid token", ErrAuth)
	ErrConnectionBound  = errors.New("connection is bound to another user")
	ErrUnknownCommand   = fmt.Errorf("%w: unknown command", ErrInvalidOperation)
	ErrMalformedCommand = fmt.Errorf("%w: malformed command", ErrInvalidOperation)
)

// IsDomainError returns true if err belongs to the domain taxonomy
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidOperation) ||
		errors.Is(err, ErrAuth)
}
