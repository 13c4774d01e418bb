package coordinator

import (
	"context"
	"log/slog"

	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/services/board"
)

// MakeMove places the acting player's mark at position.
// Checks run in order: match exists, in progress, acting user plays in it,
// it is their turn, the cell is free.
func (c *Coordinator) MakeMove(ctx context.Context, matchID model.MatchID, acting model.UserID, position int) (result *MoveResult, err error) {
	defer func() { c.report(ctx, "make_move", acting, matchID, err) }()

	unlock := c.locks.Lock(matchLockKey(matchID))
	result, err = c.makeMoveLocked(ctx, matchID, acting, position)
	unlock()
	if err != nil {
		return nil, err
	}

	move := *result.Move
	c.publish(model.EventMoveMade, acting, matchID, model.MoveMadePayload{
		Match:          result.Match.Clone(),
		Move:           &move,
		Classification: result.Classification,
	})
	if result.Classification.Status == model.MatchStatusFinished {
		c.publish(model.EventMatchFinished, acting, matchID, model.MatchFinishedPayload{
			Match:          result.Match.Clone(),
			Classification: result.Classification,
		})

		c.logger.Info("match finished",
			slog.String("match_id", string(matchID)),
			slog.String("winner_id", string(result.Match.WinnerID)),
			slog.Bool("draw", result.Classification.IsDraw),
		)
	}

	return result, nil
}

func (c *Coordinator) makeMoveLocked(ctx context.Context, matchID model.MatchID, acting model.UserID, position int) (*MoveResult, error) {
	match, err := c.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != model.MatchStatusInProgress {
		return nil, model.ErrMatchNotActive
	}
	seat := match.SeatOf(acting)
	if seat == model.SeatNone {
		return nil, model.ErrNotParticipant
	}
	if match.CurrentPlayerID != acting {
		return nil, model.ErrNotPlayerTurn
	}

	move := c.factory.NewMove(matchID, acting, position)
	move.Mark = seat.Mark()

	next, err := board.ApplyMove(match.Board, position, move.Mark)
	if err != nil {
		return nil, err
	}
	classification := board.Classify(next)

	match.Board = next
	match.UpdatedAt = move.CreatedAt
	if classification.Status == model.MatchStatusFinished {
		match.Status = model.MatchStatusFinished
		match.CurrentPlayerID = ""
		match.WinnerID = match.PlayerForMark(classification.Winner)
	} else {
		match.CurrentPlayerID = match.Opponent(acting)
	}
	move.Seq = model.BoardSize - next.EmptyCount()

	if err := c.storage.UpdateMatch(ctx, match); err != nil {
		return nil, conflictErr("update match", err)
	}
	// The match row is the commit point; the move log is a secondary record.
	if err := c.storage.AppendMove(ctx, move); err != nil {
		c.logger.Error("move applied but not recorded",
			slog.String("match_id", string(matchID)),
			slog.Int("seq", move.Seq),
			slog.String("error", err.Error()),
		)
		if c.recorder != nil {
			c.recorder.RecordError(ctx, "append_move", acting, matchID, infraErr("append move", err))
		}
	}

	return &MoveResult{
		Match:          match,
		Move:           move,
		Classification: classification,
	}, nil
}

// AbandonMatch ends an in-progress match; the other participant wins
func (c *Coordinator) AbandonMatch(ctx context.Context, matchID model.MatchID, acting model.UserID) (match *model.Match, err error) {
	defer func() { c.report(ctx, "abandon_match", acting, matchID, err) }()

	unlock := c.locks.Lock(matchLockKey(matchID))
	match, err = c.abandonLocked(ctx, matchID, acting)
	unlock()
	if err != nil {
		return nil, err
	}

	c.publish(model.EventMatchAbandoned, acting, matchID, model.MatchAbandonedPayload{
		Match:       match.Clone(),
		AbandonedBy: acting,
	})

	c.logger.Info("match abandoned",
		slog.String("match_id", string(matchID)),
		slog.String("abandoned_by", string(acting)),
	)

	return match, nil
}

func (c *Coordinator) abandonLocked(ctx context.Context, matchID model.MatchID, acting model.UserID) (*model.Match, error) {
	match, err := c.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != model.MatchStatusInProgress {
		return nil, model.ErrMatchNotActive
	}
	if !match.IsParticipant(acting) {
		return nil, model.ErrNotParticipant
	}

	match.Status = model.MatchStatusAbandoned
	match.WinnerID = match.Opponent(acting)
	match.CurrentPlayerID = ""
	match.UpdatedAt = c.clock.Now()

	if err := c.storage.UpdateMatch(ctx, match); err != nil {
		return nil, conflictErr("abandon match", err)
	}
	return match, nil
}

// GetMatch returns a match to one of its participants
func (c *Coordinator) GetMatch(ctx context.Context, matchID model.MatchID, acting model.UserID) (*model.Match, error) {
	match, err := c.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsParticipant(acting) {
		return nil, model.ErrNotParticipant
	}
	return match, nil
}

// ListMoves returns a match's moves in play order to one of its participants
func (c *Coordinator) ListMoves(ctx context.Context, matchID model.MatchID, acting model.UserID) ([]*model.Move, error) {
	if _, err := c.GetMatch(ctx, matchID, acting); err != nil {
		return nil, err
	}
	moves, err := c.storage.ListMoves(ctx, matchID)
	if err != nil {
		return nil, infraErr("list moves", err)
	}
	return moves, nil
}
