package model

import "time"

// InvitationTTL is how long an invitation stays acceptable
const InvitationTTL = 5 * time.Minute

// InvitationID uniquely identifies an invitation
type InvitationID string

// InvitationStatus represents the state of an invitation
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "PENDING"
	InvitationStatusAccepted InvitationStatus = "ACCEPTED"
	InvitationStatusRejected InvitationStatus = "REJECTED"
	InvitationStatusExpired  InvitationStatus = "EXPIRED"
)

// IsTerminal returns true for every status other than PENDING
func (s InvitationStatus) IsTerminal() bool {
	return s != InvitationStatusPending
}

// Invitation is a challenge from one user to another
type Invitation struct {
	ID         InvitationID
	FromUserID UserID
	ToUserID   UserID
	Status     InvitationStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ExpiresAt  time.Time
	Version    int64
}

// Clone returns a copy that shares no state with i
func (i *Invitation) Clone() *Invitation {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// IsExpiredAt returns true if the invitation can no longer be accepted at now
func (i *Invitation) IsExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
