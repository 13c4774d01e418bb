package storage

import (
	"context"
	"errors"

	"github.com/mcoot/tictactoe-go/internal/model"
)

// ErrConflict is returned when a conditional write loses to a concurrent one:
// an update whose Version no longer matches, or a second PENDING invitation
// for the same ordered pair.
var ErrConflict = errors.New("storage: conflicting write")

// Storage defines the interface for data persistence.
//
// Update methods are conditional: they succeed only if the stored Version
// equals the Version of the value passed in, and on success increment the
// Version of both the stored value and the argument. An invitation updated
// back to PENDING claims its (from, to) pair again and fails with ErrConflict
// if another PENDING invitation holds it.
type Storage interface {
	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)

	// Online-status operations
	SetOnline(ctx context.Context, id model.UserID, online bool) error
	IsOnline(ctx context.Context, id model.UserID) (bool, error)

	// Invitation operations
	CreateInvitation(ctx context.Context, inv *model.Invitation) error
	GetInvitation(ctx context.Context, id model.InvitationID) (*model.Invitation, error)
	UpdateInvitation(ctx context.Context, inv *model.Invitation) error
	FindPendingInvitation(ctx context.Context, from, to model.UserID) (*model.Invitation, error)

	// Match operations
	CreateMatch(ctx context.Context, match *model.Match) error
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	UpdateMatch(ctx context.Context, match *model.Match) error

	// Move operations
	AppendMove(ctx context.Context, move *model.Move) error
	ListMoves(ctx context.Context, matchID model.MatchID) ([]*model.Move, error)

	// Event log operations
	AppendLog(ctx context.Context, entry *model.LogEntry) error
	RecentLogs(ctx context.Context, limit int) ([]*model.LogEntry, error)

	// Close releases any underlying connections
	Close() error
}
