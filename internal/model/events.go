package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Presence events
	EventUserOnline  EventType = "user_online"
	EventUserOffline EventType = "user_offline"

	// Invitation events
	EventInvitationCreated  EventType = "invitation_created"
	EventInvitationAccepted EventType = "invitation_accepted"
	EventInvitationRejected EventType = "invitation_rejected"

	// Match events
	EventMatchStarted   EventType = "match_started"
	EventMoveMade       EventType = "move_made"
	EventMatchFinished  EventType = "match_finished"
	EventMatchAbandoned EventType = "match_abandoned"
)

// AllEventTypes lists every event the coordinator and router publish
var AllEventTypes = []EventType{
	EventUserOnline,
	EventUserOffline,
	EventInvitationCreated,
	EventInvitationAccepted,
	EventInvitationRejected,
	EventMatchStarted,
	EventMoveMade,
	EventMatchFinished,
	EventMatchAbandoned,
}

// Event is the base structure for all events
type Event struct {
	Type      EventType
	Timestamp time.Time
	UserID    UserID  // The user who triggered the event
	MatchID   MatchID // Empty for presence and pending-invitation events
	Payload   any     // Type-specific data
}

// UserPresencePayload contains data for online/offline events
type UserPresencePayload struct {
	User User
}

// InvitationPayload contains data for invitation created/rejected events
type InvitationPayload struct {
	Invitation *Invitation
}

// InvitationAcceptedPayload contains data for invitation accepted events
type InvitationAcceptedPayload struct {
	Invitation *Invitation
	Match      *Match
}

// MatchStartedPayload contains data for match started events
type MatchStartedPayload struct {
	Match *Match
}

// MoveMadePayload contains data for move made events
type MoveMadePayload struct {
	Match          *Match
	Move           *Move
	Classification Classification
}

// MatchFinishedPayload contains data for match finished events
type MatchFinishedPayload struct {
	Match          *Match
	Classification Classification
}

// MatchAbandonedPayload contains data for match abandoned events
type MatchAbandonedPayload struct {
	Match       *Match
	AbandonedBy UserID
}
