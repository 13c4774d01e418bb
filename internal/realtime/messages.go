package realtime

import (
	"time"

	"github.com/mcoot/tictactoe-go/internal/api/response"
)

// Outbound message types
const (
	TypeConnected = "connected"
	TypeResult    = "result"
	TypeError     = "error"
	TypePong      = "pong"

	TypeUserOnline         = "user:online"
	TypeUserOffline        = "user:offline"
	TypeInvitationReceived = "invitation:received"
	TypeInvitationAccepted = "invitation:accepted"
	TypeInvitationRejected = "invitation:rejected"
	TypeMatchStarted       = "match:started"
	TypeMoveMade           = "move:made"
	TypeMatchFinished      = "match:finished"
	TypeMatchAbandoned     = "match:abandoned"
)

// Inbound command types
const (
	CommandInvite  = "invite"
	CommandAccept  = "accept"
	CommandReject  = "reject"
	CommandMove    = "move"
	CommandAbandon = "abandon"
	CommandPing    = "ping"
)

// Error codes carried in error replies
const (
	CodeNotFound         = "NOT_FOUND"
	CodeForbidden        = "FORBIDDEN"
	CodeInvalidOperation = "INVALID_OPERATION"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// Envelope is every message the server sends
type Envelope struct {
	Type      string     `json:"type"`
	RequestID string     `json:"request_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed command
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Command is every message a client sends. Fields not used by a command type are ignored.
type Command struct {
	Type         string `json:"type"`
	RequestID    string `json:"request_id,omitempty"`
	ToUserID     string `json:"to_user_id,omitempty"`
	InvitationID string `json:"invitation_id,omitempty"`
	MatchID      string `json:"match_id,omitempty"`
	Position     *int   `json:"position,omitempty"`
}

// ConnectedData acknowledges an authenticated connection
type ConnectedData struct {
	ConnectionID string        `json:"connection_id"`
	User         response.User `json:"user"`
}

// PresenceData is sent for user:online and user:offline
type PresenceData struct {
	User response.User `json:"user"`
}

// InvitationData is sent for invitation:received and invitation:rejected
type InvitationData struct {
	Invitation response.Invitation `json:"invitation"`
}

// InvitationAcceptedData is sent to the inviter once the match exists
type InvitationAcceptedData struct {
	Invitation response.Invitation `json:"invitation"`
	Match      response.Match      `json:"match"`
}

// MatchData is sent for match:started
type MatchData struct {
	Match response.Match `json:"match"`
}

// MatchFinishedData is sent when a move ends the match
type MatchFinishedData struct {
	Match          response.Match          `json:"match"`
	Classification response.Classification `json:"classification"`
}

// MatchAbandonedData is sent when a participant leaves a match
type MatchAbandonedData struct {
	Match       response.Match `json:"match"`
	AbandonedBy string         `json:"abandoned_by"`
}
