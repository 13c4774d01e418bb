package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/tictactoe-go/internal/api/response"
	"github.com/mcoot/tictactoe-go/internal/model"
)

// handleCommand decodes one inbound frame, runs it and replies to the sender.
// Every command gets exactly one reply carrying its request id.
func (r *Router) handleCommand(ctx context.Context, c *Conn, data []byte) {
	var cmd Command
	if err := c.codec.Unmarshal(data, &cmd); err != nil {
		r.reply(c, Command{}, nil, model.ErrMalformedCommand)
		return
	}

	userID, ok := r.registry.UserFor(c.id)
	if !ok {
		r.reply(c, cmd, nil, model.ErrUnauthenticated)
		return
	}

	result, err := r.execute(ctx, userID, cmd)
	r.reply(c, cmd, result, err)
}

func (r *Router) execute(ctx context.Context, userID model.UserID, cmd Command) (any, error) {
	switch cmd.Type {
	case CommandPing:
		return nil, nil

	case CommandInvite:
		if cmd.ToUserID == "" {
			return nil, missingField("to_user_id")
		}
		inv, err := r.coordinator.CreateInvitation(ctx, userID, model.UserID(cmd.ToUserID))
		if err != nil {
			return nil, err
		}
		return InvitationData{Invitation: response.InvitationFromModel(inv)}, nil

	case CommandAccept:
		if cmd.InvitationID == "" {
			return nil, missingField("invitation_id")
		}
		match, err := r.coordinator.AcceptInvitation(ctx, model.InvitationID(cmd.InvitationID), userID)
		if err != nil {
			return nil, err
		}
		return MatchData{Match: response.MatchFromModel(match)}, nil

	case CommandReject:
		if cmd.InvitationID == "" {
			return nil, missingField("invitation_id")
		}
		inv, err := r.coordinator.RejectInvitation(ctx, model.InvitationID(cmd.InvitationID), userID)
		if err != nil {
			return nil, err
		}
		return InvitationData{Invitation: response.InvitationFromModel(inv)}, nil

	case CommandMove:
		if cmd.MatchID == "" {
			return nil, missingField("match_id")
		}
		if cmd.Position == nil {
			return nil, missingField("position")
		}
		result, err := r.coordinator.MakeMove(ctx, model.MatchID(cmd.MatchID), userID, *cmd.Position)
		if err != nil {
			return nil, err
		}
		return response.MoveResult{
			Match:          response.MatchFromModel(result.Match),
			Move:           response.MoveFromModel(result.Move),
			Classification: response.ClassificationFromModel(result.Classification),
		}, nil

	case CommandAbandon:
		if cmd.MatchID == "" {
			return nil, missingField("match_id")
		}
		match, err := r.coordinator.AbandonMatch(ctx, model.MatchID(cmd.MatchID), userID)
		if err != nil {
			return nil, err
		}
		return MatchData{Match: response.MatchFromModel(match)}, nil

	default:
		return nil, model.ErrUnknownCommand
	}
}

func (r *Router) reply(c *Conn, cmd Command, result any, err error) {
	env := Envelope{
		RequestID: cmd.RequestID,
		Timestamp: r.clock.Now(),
	}
	switch {
	case err != nil:
		env.Type = TypeError
		env.Error = errorBody(err)
		if !model.IsDomainError(err) {
			c.logger.Error("command failed",
				slog.String("command", cmd.Type),
				slog.String("error", err.Error()),
			)
		}
	case cmd.Type == CommandPing:
		env.Type = TypePong
	default:
		env.Type = TypeResult
		env.Data = result
	}
	c.Send(env)
}

func missingField(name string) error {
	return fmt.Errorf("%w: missing %s", model.ErrMalformedCommand, name)
}
