// Package coordinator owns the invitation and match lifecycles. Every
// operation is serialized per entity, committed to storage, and only then
// announced on the event bus.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/tictactoe-go/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/services/board"
	"github.com/mcoot/tictactoe-go/internal/services/eventbus"
	"github.com/mcoot/tictactoe-go/internal/services/keylock"
	"github.com/mcoot/tictactoe-go/internal/services/matchfactory"
	"github.com/mcoot/tictactoe-go/internal/storage"
)

// OnlineChecker reports whether a user is currently connected
type OnlineChecker interface {
	IsOnline(ctx context.Context, id model.UserID) (bool, error)
}

// ErrorRecorder receives every failed operation as a side channel
type ErrorRecorder interface {
	RecordError(ctx context.Context, op string, userID model.UserID, matchID model.MatchID, err error)
}

// MoveResult is the outcome of an accepted move
type MoveResult struct {
	Match          *model.Match
	Move           *model.Move
	Classification model.Classification
}

// Coordinator runs invitation and match state transitions
type Coordinator struct {
	storage   storage.Storage
	online    OnlineChecker
	factory   *matchfactory.Factory
	publisher eventbus.Publisher
	recorder  ErrorRecorder
	clock     clock.Clock
	logger    *slog.Logger

	locks *keylock.Mutex
}

// New creates a new Coordinator. recorder may be nil.
func New(
	storage storage.Storage,
	online OnlineChecker,
	factory *matchfactory.Factory,
	publisher eventbus.Publisher,
	recorder ErrorRecorder,
	clock clock.Clock,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		storage:   storage,
		online:    online,
		factory:   factory,
		publisher: publisher,
		recorder:  recorder,
		clock:     clock,
		logger:    logger,
		locks:     keylock.New(),
	}
}

func pairLockKey(from, to model.UserID) string {
	return "pair:" + string(from) + ":" + string(to)
}

func invitationLockKey(id model.InvitationID) string {
	return "invitation:" + string(id)
}

func matchLockKey(id model.MatchID) string {
	return "match:" + string(id)
}

// infraErr passes domain errors through and tags everything else as an infrastructure failure
func infraErr(op string, err error) error {
	if err == nil || model.IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", model.ErrInfrastructure, op, err)
}

// report forwards a failed operation to the recorder
func (c *Coordinator) report(ctx context.Context, op string, userID model.UserID, matchID model.MatchID, err error) {
	if err == nil {
		return
	}
	if !model.IsDomainError(err) {
		c.logger.Error("operation failed",
			slog.String("op", op),
			slog.String("user_id", string(userID)),
			slog.String("match_id", string(matchID)),
			slog.String("error", err.Error()),
		)
	}
	if c.recorder != nil {
		c.recorder.RecordError(ctx, op, userID, matchID, err)
	}
}

func (c *Coordinator) publish(eventType model.EventType, userID model.UserID, matchID model.MatchID, payload any) {
	c.publisher.Publish(model.Event{
		Type:      eventType,
		Timestamp: c.clock.Now(),
		UserID:    userID,
		MatchID:   matchID,
		Payload:   payload,
	})
}

// loadMatch reads a match and rejects boards no legal game could produce
func (c *Coordinator) loadMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	match, err := c.storage.GetMatch(ctx, id)
	if err != nil {
		return nil, infraErr("get match", err)
	}
	if err := board.ValidateBoard(match.Board); err != nil {
		return nil, fmt.Errorf("%w: match %s: %w", model.ErrInfrastructure, id, err)
	}
	return match, nil
}

// conflictErr reports a lost compare-and-set, which only happens when another
// process wrote the same entity.
func conflictErr(op string, err error) error {
	if errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("%w: %s: concurrent modification", model.ErrInfrastructure, op)
	}
	return infraErr(op, err)
}
