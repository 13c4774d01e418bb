// Package matchfactory builds the canonical initial values for matches,
// invitations and moves.
package matchfactory

import (
	"github.com/mcoot/tictactoe-go/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-go/internal/dependencies/random"
	"github.com/mcoot/tictactoe-go/internal/model"
)

// Factory constructs new domain entities with fresh ids and timestamps
type Factory struct {
	clock  clock.Clock
	random random.Random
}

// New creates a new Factory
func New(clk clock.Clock, rnd random.Random) *Factory {
	return &Factory{
		clock:  clk,
		random: rnd,
	}
}

// NewMatch returns a WAITING match with an empty board where player1 moves first
func (f *Factory) NewMatch(player1, player2 model.UserID) *model.Match {
	now := f.clock.Now()
	return &model.Match{
		ID:              model.MatchID(f.random.UUID()),
		Player1ID:       player1,
		Player2ID:       player2,
		Status:          model.MatchStatusWaiting,
		CurrentPlayerID: player1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NewInvitation returns a PENDING invitation that expires after model.InvitationTTL
func (f *Factory) NewInvitation(from, to model.UserID) *model.Invitation {
	now := f.clock.Now()
	return &model.Invitation{
		ID:         model.InvitationID(f.random.UUID()),
		FromUserID: from,
		ToUserID:   to,
		Status:     model.InvitationStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(model.InvitationTTL),
	}
}

// NewMove returns a move record with no mark set
func (f *Factory) NewMove(matchID model.MatchID, playerID model.UserID, position int) *model.Move {
	return &model.Move{
		ID:        model.MoveID(f.random.UUID()),
		MatchID:   matchID,
		PlayerID:  playerID,
		Position:  position,
		CreatedAt: f.clock.Now(),
	}
}
