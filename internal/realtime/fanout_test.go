package realtime

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/tictactoe-go/internal/model"
)

func TestRouteTargets(t *testing.T) {
	inv := &model.Invitation{ID: "i1", FromUserID: "alice", ToUserID: "bob"}
	match := &model.Match{ID: "m1", Player1ID: "alice", Player2ID: "bob"}
	both := []model.UserID{"alice", "bob"}

	tests := []struct {
		name      string
		event     model.Event
		msgType   string
		broadcast bool
		users     []model.UserID
	}{
		{
			name:      "online",
			event:     model.Event{Type: model.EventUserOnline, Payload: model.UserPresencePayload{User: model.User{ID: "alice"}}},
			msgType:   TypeUserOnline,
			broadcast: true,
		},
		{
			name:      "offline",
			event:     model.Event{Type: model.EventUserOffline, Payload: model.UserPresencePayload{User: model.User{ID: "alice"}}},
			msgType:   TypeUserOffline,
			broadcast: true,
		},
		{
			name:    "invitation created goes to invitee",
			event:   model.Event{Type: model.EventInvitationCreated, Payload: model.InvitationPayload{Invitation: inv}},
			msgType: TypeInvitationReceived,
			users:   []model.UserID{"bob"},
		},
		{
			name:    "invitation rejected goes to inviter",
			event:   model.Event{Type: model.EventInvitationRejected, Payload: model.InvitationPayload{Invitation: inv}},
			msgType: TypeInvitationRejected,
			users:   []model.UserID{"alice"},
		},
		{
			name:    "invitation accepted goes to inviter",
			event:   model.Event{Type: model.EventInvitationAccepted, Payload: model.InvitationAcceptedPayload{Invitation: inv, Match: match}},
			msgType: TypeInvitationAccepted,
			users:   []model.UserID{"alice"},
		},
		{
			name:    "match started",
			event:   model.Event{Type: model.EventMatchStarted, Payload: model.MatchStartedPayload{Match: match}},
			msgType: TypeMatchStarted,
			users:   both,
		},
		{
			name:    "move made",
			event:   model.Event{Type: model.EventMoveMade, Payload: model.MoveMadePayload{Match: match, Move: &model.Move{ID: "mv1"}}},
			msgType: TypeMoveMade,
			users:   both,
		},
		{
			name:    "match finished",
			event:   model.Event{Type: model.EventMatchFinished, Payload: model.MatchFinishedPayload{Match: match}},
			msgType: TypeMatchFinished,
			users:   both,
		},
		{
			name:    "match abandoned",
			event:   model.Event{Type: model.EventMatchAbandoned, Payload: model.MatchAbandonedPayload{Match: match, AbandonedBy: "bob"}},
			msgType: TypeMatchAbandoned,
			users:   both,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := route(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.msgType, d.msgType)
			assert.Equal(t, tt.broadcast, d.broadcast)
			assert.Equal(t, tt.users, d.users)
		})
	}
}

func TestRouteUnknownPayload(t *testing.T) {
	_, err := route(model.Event{Type: "mystery", Payload: 42})
	assert.Error(t, err)
}

func TestAllowOrigins(t *testing.T) {
	assert.Nil(t, AllowOrigins(nil))

	check := AllowOrigins([]string{"https://app.example/"})
	require.NotNil(t, check)

	req := httptest.NewRequest(http.MethodGet, "http://api.example/ws", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "https://app.example")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://api.example")
	assert.True(t, check(req), "same origin")

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
}
