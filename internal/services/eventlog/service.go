// Package eventlog records domain events and failed operations to the
// structured logger and to the log store.
package eventlog

import (
	"context"
	"log/slog"

	"github.com/mcoot/tictactoe-go/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-go/internal/dependencies/random"
	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/services/eventbus"
	"github.com/mcoot/tictactoe-go/internal/storage"
)

// DefaultRecentLimit is how many entries Recent returns when no limit is given
const DefaultRecentLimit = 100

// Service writes log entries. It never fails its caller: store errors are only logged.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// New creates a new event log Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger,
	}
}

// Attach subscribes the service to every event type and returns a function that detaches it
func (s *Service) Attach(bus *eventbus.Bus) (detach func()) {
	return bus.SubscribeMany(model.AllEventTypes, "eventlog", s.HandleEvent)
}

// HandleEvent records a domain event. Match events are GAME_EVENT entries.
func (s *Service) HandleEvent(ctx context.Context, event model.Event) error {
	kind := model.LogKindEvent
	if event.MatchID != "" {
		kind = model.LogKindGameEvent
	}

	s.logger.Info("event",
		slog.String("type", string(event.Type)),
		slog.String("user_id", string(event.UserID)),
		slog.String("match_id", string(event.MatchID)),
	)

	s.append(ctx, &model.LogEntry{
		Kind:      kind,
		Name:      string(event.Type),
		MatchID:   event.MatchID,
		UserID:    event.UserID,
		Data:      eventData(event),
		CreatedAt: event.Timestamp,
	})
	return nil
}

// RecordError records a failed operation
func (s *Service) RecordError(ctx context.Context, op string, userID model.UserID, matchID model.MatchID, err error) {
	s.logger.Warn("operation rejected",
		slog.String("op", op),
		slog.String("user_id", string(userID)),
		slog.String("match_id", string(matchID)),
		slog.String("error", err.Error()),
	)

	s.append(context.WithoutCancel(ctx), &model.LogEntry{
		Kind:    model.LogKindError,
		Name:    op,
		MatchID: matchID,
		UserID:  userID,
		Data: map[string]any{
			"message": err.Error(),
			"domain":  model.IsDomainError(err),
		},
		CreatedAt: s.clock.Now(),
	})
}

// Recent returns up to limit entries, newest first
func (s *Service) Recent(ctx context.Context, limit int) ([]*model.LogEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.storage.RecentLogs(ctx, limit)
}

func (s *Service) append(ctx context.Context, entry *model.LogEntry) {
	entry.ID = s.random.UUID()
	if err := s.storage.AppendLog(ctx, entry); err != nil {
		s.logger.Error("failed to append log entry",
			slog.String("name", entry.Name),
			slog.String("error", err.Error()),
		)
	}
}

// eventData flattens the payload into the fields worth keeping in the log
func eventData(event model.Event) map[string]any {
	data := map[string]any{}
	switch p := event.Payload.(type) {
	case model.UserPresencePayload:
		data["display_name"] = p.User.DisplayName
	case model.InvitationPayload:
		data["invitation_id"] = string(p.Invitation.ID)
		data["from_user_id"] = string(p.Invitation.FromUserID)
		data["to_user_id"] = string(p.Invitation.ToUserID)
		data["status"] = string(p.Invitation.Status)
	case model.InvitationAcceptedPayload:
		data["invitation_id"] = string(p.Invitation.ID)
		data["match_id"] = string(p.Match.ID)
	case model.MatchStartedPayload:
		data["player1_id"] = string(p.Match.Player1ID)
		data["player2_id"] = string(p.Match.Player2ID)
	case model.MoveMadePayload:
		data["position"] = p.Move.Position
		data["mark"] = p.Move.Mark.String()
		data["seq"] = p.Move.Seq
		data["board"] = p.Match.Board.String()
	case model.MatchFinishedPayload:
		data["winner_id"] = string(p.Match.WinnerID)
		data["draw"] = p.Classification.IsDraw
	case model.MatchAbandonedPayload:
		data["abandoned_by"] = string(p.AbandonedBy)
		data["winner_id"] = string(p.Match.WinnerID)
	}
	return data
}
