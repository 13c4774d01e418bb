package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/tictactoe-go/internal/api/response"
	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/services/eventbus"
)

// Attach subscribes the router to every event the coordinator and router publish
func (r *Router) Attach(bus *eventbus.Bus) (detach func()) {
	return bus.SubscribeMany(model.AllEventTypes, "realtime", r.HandleEvent)
}

// delivery is where one event goes and what it looks like on the wire
type delivery struct {
	msgType   string
	data      any
	broadcast bool
	users     []model.UserID
}

// HandleEvent pushes an event to the connections that should observe it
func (r *Router) HandleEvent(ctx context.Context, event model.Event) error {
	d, err := route(event)
	if err != nil {
		return err
	}

	env := Envelope{
		Type:      d.msgType,
		Timestamp: event.Timestamp,
		Data:      d.data,
	}

	var targets []*Conn
	if d.broadcast {
		targets = r.allConns()
	} else {
		targets = r.connsFor(d.users...)
	}

	// Encode once per codec in use
	frames := make(map[string][]byte)
	for _, c := range targets {
		name := c.codec.Name()
		frame, ok := frames[name]
		if !ok {
			frame, err = c.codec.Marshal(env)
			if err != nil {
				return fmt.Errorf("encode %s: %w", d.msgType, err)
			}
			frames[name] = frame
		}
		c.sendFrame(frame)
	}

	r.logger.Debug("event delivered",
		slog.String("type", d.msgType),
		slog.Int("connections", len(targets)),
	)
	return nil
}

func route(event model.Event) (delivery, error) {
	switch p := event.Payload.(type) {
	case model.UserPresencePayload:
		msgType := TypeUserOnline
		if event.Type == model.EventUserOffline {
			msgType = TypeUserOffline
		}
		return delivery{
			msgType:   msgType,
			data:      PresenceData{User: response.UserFromModel(&p.User)},
			broadcast: true,
		}, nil

	case model.InvitationPayload:
		data := InvitationData{Invitation: response.InvitationFromModel(p.Invitation)}
		if event.Type == model.EventInvitationRejected {
			return delivery{msgType: TypeInvitationRejected, data: data, users: []model.UserID{p.Invitation.FromUserID}}, nil
		}
		return delivery{msgType: TypeInvitationReceived, data: data, users: []model.UserID{p.Invitation.ToUserID}}, nil

	case model.InvitationAcceptedPayload:
		return delivery{
			msgType: TypeInvitationAccepted,
			data: InvitationAcceptedData{
				Invitation: response.InvitationFromModel(p.Invitation),
				Match:      response.MatchFromModel(p.Match),
			},
			users: []model.UserID{p.Invitation.FromUserID},
		}, nil

	case model.MatchStartedPayload:
		return delivery{
			msgType: TypeMatchStarted,
			data:    MatchData{Match: response.MatchFromModel(p.Match)},
			users:   p.Match.Participants(),
		}, nil

	case model.MoveMadePayload:
		return delivery{
			msgType: TypeMoveMade,
			data: response.MoveResult{
				Match:          response.MatchFromModel(p.Match),
				Move:           response.MoveFromModel(p.Move),
				Classification: response.ClassificationFromModel(p.Classification),
			},
			users: p.Match.Participants(),
		}, nil

	case model.MatchFinishedPayload:
		return delivery{
			msgType: TypeMatchFinished,
			data: MatchFinishedData{
				Match:          response.MatchFromModel(p.Match),
				Classification: response.ClassificationFromModel(p.Classification),
			},
			users: p.Match.Participants(),
		}, nil

	case model.MatchAbandonedPayload:
		return delivery{
			msgType: TypeMatchAbandoned,
			data: MatchAbandonedData{
				Match:       response.MatchFromModel(p.Match),
				AbandonedBy: string(p.AbandonedBy),
			},
			users: p.Match.Participants(),
		}, nil

	default:
		return delivery{}, fmt.Errorf("no route for event %s with payload %T", event.Type, event.Payload)
	}
}

func (r *Router) allConns() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		if c.ready.Load() {
			conns = append(conns, c)
		}
	}
	return conns
}

func (r *Router) connsFor(users ...model.UserID) []*Conn {
	var ids []model.ConnectionID
	for _, u := range users {
		ids = append(ids, r.registry.ConnectionsFor(u)...)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Conn, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.conns[id]; ok && c.ready.Load() {
			conns = append(conns, c)
		}
	}
	return conns
}
