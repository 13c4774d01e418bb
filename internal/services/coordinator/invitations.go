package coordinator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/storage"
)

// CreateInvitation invites to to a match against from.
// An existing PENDING invitation for the same pair blocks the new one unless it has expired,
// in which case it is marked EXPIRED first.
func (c *Coordinator) CreateInvitation(ctx context.Context, from, to model.UserID) (inv *model.Invitation, err error) {
	defer func() { c.report(ctx, "create_invitation", from, "", err) }()

	if from == to {
		return nil, model.ErrSelfInvitation
	}

	online, err := c.online.IsOnline(ctx, to)
	if err != nil {
		return nil, infraErr("check online", err)
	}
	if !online {
		return nil, model.ErrUserOffline
	}

	unlock := c.locks.Lock(pairLockKey(from, to))
	inv, err = c.createInvitationLocked(ctx, from, to)
	unlock()
	if err != nil {
		return nil, err
	}

	c.publish(model.EventInvitationCreated, from, "", model.InvitationPayload{Invitation: inv.Clone()})

	c.logger.Info("invitation created",
		slog.String("invitation_id", string(inv.ID)),
		slog.String("from_user_id", string(from)),
		slog.String("to_user_id", string(to)),
	)

	return inv, nil
}

func (c *Coordinator) createInvitationLocked(ctx context.Context, from, to model.UserID) (*model.Invitation, error) {
	existing, err := c.storage.FindPendingInvitation(ctx, from, to)
	switch {
	case err == nil:
		if err := c.expireStale(ctx, existing.ID); err != nil {
			return nil, err
		}
	case errors.Is(err, model.ErrNotFound):
	default:
		return nil, infraErr("find pending invitation", err)
	}

	inv := c.factory.NewInvitation(from, to)
	if err := c.storage.CreateInvitation(ctx, inv); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, model.ErrDuplicateInvitation
		}
		return nil, infraErr("create invitation", err)
	}
	return inv, nil
}

// expireStale marks a pending invitation EXPIRED if it is past its expiry.
// It fails with ErrDuplicateInvitation while the invitation is still live.
func (c *Coordinator) expireStale(ctx context.Context, id model.InvitationID) error {
	unlock := c.locks.Lock(invitationLockKey(id))
	defer unlock()

	inv, err := c.storage.GetInvitation(ctx, id)
	if err != nil {
		return infraErr("get invitation", err)
	}
	if inv.Status != model.InvitationStatusPending {
		return nil
	}
	if !inv.IsExpiredAt(c.clock.Now()) {
		return model.ErrDuplicateInvitation
	}
	return c.markExpired(ctx, inv)
}

func (c *Coordinator) markExpired(ctx context.Context, inv *model.Invitation) error {
	inv.Status = model.InvitationStatusExpired
	inv.UpdatedAt = c.clock.Now()
	if err := c.storage.UpdateInvitation(ctx, inv); err != nil {
		return conflictErr("expire invitation", err)
	}

	c.logger.Info("invitation expired",
		slog.String("invitation_id", string(inv.ID)),
		slog.Time("expires_at", inv.ExpiresAt),
	)
	return nil
}

// respondable loads an invitation the acting user may accept or reject
func (c *Coordinator) respondable(ctx context.Context, id model.InvitationID, acting model.UserID) (*model.Invitation, error) {
	inv, err := c.storage.GetInvitation(ctx, id)
	if err != nil {
		return nil, infraErr("get invitation", err)
	}
	if inv.ToUserID != acting {
		return nil, model.ErrNotInvitee
	}
	if inv.Status != model.InvitationStatusPending {
		return nil, model.ErrInvitationNotPending
	}
	return inv, nil
}

// AcceptInvitation accepts a pending invitation on behalf of its invitee and
// starts the match. An invitation past its expiry is persisted as EXPIRED and
// the call fails with ErrInvitationExpired.
func (c *Coordinator) AcceptInvitation(ctx context.Context, id model.InvitationID, acting model.UserID) (match *model.Match, err error) {
	defer func() { c.report(ctx, "accept_invitation", acting, "", err) }()

	// The pair lock keeps a new invitation for the pair out while a failed
	// accept puts this one back to PENDING
	pending, err := c.storage.GetInvitation(ctx, id)
	if err != nil {
		return nil, infraErr("get invitation", err)
	}
	unlockPair := c.locks.Lock(pairLockKey(pending.FromUserID, pending.ToUserID))
	unlock := c.locks.Lock(invitationLockKey(id))
	inv, match, err := c.acceptLocked(ctx, id, acting)
	unlock()
	unlockPair()
	if err != nil {
		return nil, err
	}

	c.publish(model.EventInvitationAccepted, acting, match.ID, model.InvitationAcceptedPayload{
		Invitation: inv.Clone(),
		Match:      match.Clone(),
	})
	c.publish(model.EventMatchStarted, acting, match.ID, model.MatchStartedPayload{Match: match.Clone()})

	c.logger.Info("invitation accepted",
		slog.String("invitation_id", string(inv.ID)),
		slog.String("match_id", string(match.ID)),
		slog.String("player1_id", string(match.Player1ID)),
		slog.String("player2_id", string(match.Player2ID)),
	)

	return match, nil
}

func (c *Coordinator) acceptLocked(ctx context.Context, id model.InvitationID, acting model.UserID) (*model.Invitation, *model.Match, error) {
	inv, err := c.respondable(ctx, id, acting)
	if err != nil {
		return nil, nil, err
	}

	now := c.clock.Now()
	if inv.IsExpiredAt(now) {
		if err := c.markExpired(ctx, inv); err != nil {
			return nil, nil, err
		}
		return nil, nil, model.ErrInvitationExpired
	}

	inv.Status = model.InvitationStatusAccepted
	inv.UpdatedAt = now
	if err := c.storage.UpdateInvitation(ctx, inv); err != nil {
		return nil, nil, conflictErr("accept invitation", err)
	}

	match := c.factory.NewMatch(inv.FromUserID, inv.ToUserID)
	match.Status = model.MatchStatusInProgress
	if err := c.storage.CreateMatch(ctx, match); err != nil {
		c.restorePending(ctx, inv)
		return nil, nil, infraErr("create match", err)
	}

	return inv, match, nil
}

// restorePending undoes the ACCEPTED write of an accept whose match could not be created
func (c *Coordinator) restorePending(ctx context.Context, inv *model.Invitation) {
	inv.Status = model.InvitationStatusPending
	inv.UpdatedAt = c.clock.Now()
	if err := c.storage.UpdateInvitation(context.WithoutCancel(ctx), inv); err != nil {
		c.logger.Error("invitation accepted but match not created",
			slog.String("invitation_id", string(inv.ID)),
			slog.String("error", err.Error()),
		)
	}
}

// RejectInvitation declines a pending invitation on behalf of its invitee.
// Expiry is not checked: rejecting a stale invitation just closes it.
func (c *Coordinator) RejectInvitation(ctx context.Context, id model.InvitationID, acting model.UserID) (inv *model.Invitation, err error) {
	defer func() { c.report(ctx, "reject_invitation", acting, "", err) }()

	unlock := c.locks.Lock(invitationLockKey(id))
	inv, err = c.rejectLocked(ctx, id, acting)
	unlock()
	if err != nil {
		return nil, err
	}

	c.publish(model.EventInvitationRejected, acting, "", model.InvitationPayload{Invitation: inv.Clone()})

	c.logger.Info("invitation rejected",
		slog.String("invitation_id", string(inv.ID)),
		slog.String("from_user_id", string(inv.FromUserID)),
	)

	return inv, nil
}

func (c *Coordinator) rejectLocked(ctx context.Context, id model.InvitationID, acting model.UserID) (*model.Invitation, error) {
	inv, err := c.respondable(ctx, id, acting)
	if err != nil {
		return nil, err
	}

	inv.Status = model.InvitationStatusRejected
	inv.UpdatedAt = c.clock.Now()
	if err := c.storage.UpdateInvitation(ctx, inv); err != nil {
		return nil, conflictErr("reject invitation", err)
	}
	return inv, nil
}
