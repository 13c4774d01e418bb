// Package realtime is the WebSocket delivery layer: it authenticates
// connections, tracks them in the presence registry, runs inbound commands
// against the coordinator and fans coordinator events out to the right
// connections.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/tictactoe-go/internal/api/response"
	"github.com/mcoot/tictactoe-go/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-go/internal/dependencies/random"
	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/realtime/wire"
	"github.com/mcoot/tictactoe-go/internal/services/coordinator"
	"github.com/mcoot/tictactoe-go/internal/services/eventbus"
	"github.com/mcoot/tictactoe-go/internal/services/identity"
	"github.com/mcoot/tictactoe-go/internal/services/keylock"
	"github.com/mcoot/tictactoe-go/internal/services/presence"
)

// TokenCookieName is the cookie checked when no bearer token is given
const TokenCookieName = "session_token"

// Coordinator is the set of match operations reachable over a connection
type Coordinator interface {
	CreateInvitation(ctx context.Context, from, to model.UserID) (*model.Invitation, error)
	AcceptInvitation(ctx context.Context, id model.InvitationID, acting model.UserID) (*model.Match, error)
	RejectInvitation(ctx context.Context, id model.InvitationID, acting model.UserID) (*model.Invitation, error)
	MakeMove(ctx context.Context, matchID model.MatchID, acting model.UserID, position int) (*coordinator.MoveResult, error)
	AbandonMatch(ctx context.Context, matchID model.MatchID, acting model.UserID) (*model.Match, error)
}

// UserStore persists users and their online status
type UserStore interface {
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	SetOnline(ctx context.Context, id model.UserID, online bool) error
}

// Config holds the collaborators of a Router
type Config struct {
	Verifier    identity.Verifier
	Coordinator Coordinator
	Registry    *presence.Registry
	Users       UserStore
	Publisher   eventbus.Publisher
	Clock       clock.Clock
	Random      random.Random
	Logger      *slog.Logger

	// CheckOrigin overrides the same-origin check of the WebSocket handshake
	CheckOrigin func(r *http.Request) bool
}

// Router owns every live connection of the process
type Router struct {
	verifier    identity.Verifier
	coordinator Coordinator
	registry    *presence.Registry
	users       UserStore
	publisher   eventbus.Publisher
	clock       clock.Clock
	random      random.Random
	logger      *slog.Logger

	upgrader  websocket.Upgrader
	userLocks *keylock.Mutex

	mu     sync.RWMutex
	conns  map[model.ConnectionID]*Conn
	closed bool
	wg     sync.WaitGroup
}

// New creates a new Router
func New(cfg Config) *Router {
	return &Router{
		verifier:    cfg.Verifier,
		coordinator: cfg.Coordinator,
		registry:    cfg.Registry,
		users:       cfg.Users,
		publisher:   cfg.Publisher,
		clock:       cfg.Clock,
		random:      cfg.Random,
		logger:      cfg.Logger.With(slog.String("component", "realtime")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    wire.Subprotocols(),
			CheckOrigin:     cfg.CheckOrigin,
		},
		userLocks: keylock.New(),
		conns:     make(map[model.ConnectionID]*Conn),
	}
}

// ServeHTTP upgrades the request and runs the connection until it ends.
// A connection that fails authentication is closed with a policy-violation
// frame and never registered.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	token := extractToken(req)

	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	id, err := r.verifier.Verify(req.Context(), token)
	if err != nil {
		r.logger.Warn("connection rejected", slog.String("error", err.Error()))
		rejectConn(ws, websocket.ClosePolicyViolation, "authentication failed")
		return
	}

	conn := newConn(
		model.ConnectionID(r.random.UUID()),
		id.UserID,
		ws,
		wire.ForSubprotocol(ws.Subprotocol()),
		r.clock.Now(),
		r.logger,
	)
	ctx := context.WithoutCancel(req.Context())

	if !r.register(conn) {
		rejectConn(ws, websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer r.wg.Done()

	// Teardown runs however the connection ends
	defer r.disconnect(ctx, conn)

	r.connect(ctx, conn, id)

	go conn.writePump()
	conn.readPump(func(c *Conn, data []byte) {
		r.handleCommand(ctx, c, data)
	})
	conn.Close()
}

func (r *Router) register(conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.conns[conn.id] = conn
	r.wg.Add(1)
	return true
}

func (r *Router) connect(ctx context.Context, conn *Conn, id *identity.Identity) {
	now := r.clock.Now()
	user := id.User(now)
	if existing, err := r.users.GetUser(ctx, id.UserID); err == nil {
		user.CreatedAt = existing.CreatedAt
	}
	if err := r.users.SaveUser(ctx, user); err != nil {
		conn.logger.Error("failed to save user", slog.String("error", err.Error()))
	}

	unlock := r.userLocks.Lock(string(id.UserID))
	defer unlock()

	first, err := r.registry.Bind(conn.id, id.UserID)
	if err != nil {
		conn.logger.Error("failed to bind connection", slog.String("error", err.Error()))
		return
	}
	user.IsOnline = true

	// Online status is stored before the ack so the caller can be invited
	// as soon as it sees it
	if first {
		if err := r.users.SetOnline(ctx, id.UserID, true); err != nil {
			conn.logger.Error("failed to persist online status", slog.String("error", err.Error()))
		}
	}

	conn.Send(Envelope{
		Type:      TypeConnected,
		Timestamp: now,
		Data: ConnectedData{
			ConnectionID: string(conn.id),
			User:         response.UserFromModel(user),
		},
	})
	conn.ready.Store(true)

	conn.logger.Info("connection opened",
		slog.String("codec", conn.codec.Name()),
		slog.Bool("first", first),
		slog.Int("total_connections", r.registry.Len()),
	)

	if first {
		r.publisher.Publish(model.Event{
			Type:      model.EventUserOnline,
			Timestamp: now,
			UserID:    id.UserID,
			Payload:   model.UserPresencePayload{User: *user},
		})
	}
}

func (r *Router) disconnect(ctx context.Context, conn *Conn) {
	r.mu.Lock()
	delete(r.conns, conn.id)
	r.mu.Unlock()

	unlock := r.userLocks.Lock(string(conn.userID))
	defer unlock()

	userID, last := r.registry.Unbind(conn.id)

	conn.logger.Info("connection closed",
		slog.Duration("connection_duration", r.clock.Now().Sub(conn.connectedAt)),
		slog.Bool("last", last),
		slog.Int("total_connections", r.registry.Len()),
	)

	if !last {
		return
	}
	if err := r.users.SetOnline(ctx, userID, false); err != nil {
		conn.logger.Error("failed to persist offline status", slog.String("error", err.Error()))
	}

	user := model.User{ID: userID}
	if stored, err := r.users.GetUser(ctx, userID); err == nil {
		user = *stored
	}
	user.IsOnline = false
	r.publisher.Publish(model.Event{
		Type:      model.EventUserOffline,
		Timestamp: r.clock.Now(),
		UserID:    userID,
		Payload:   model.UserPresencePayload{User: user},
	})
}

// ConnectionCount returns the number of registered connections
func (r *Router) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close stops accepting connections, closes every live one and waits for
// their teardown to finish.
func (r *Router) Close() {
	r.mu.Lock()
	r.closed = true
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	for _, c := range conns {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
	r.wg.Wait()
}

// AllowOrigins returns a handshake origin check accepting the listed origins
// as well as same-origin requests. With no origins it returns nil, which
// leaves the same-origin default in place.
func AllowOrigins(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimSuffix(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func rejectConn(ws *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = ws.Close()
}

// extractToken reads the credential from the Authorization header, the
// token query parameter or the session cookie, in that order.
func extractToken(req *http.Request) string {
	if h := req.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if t := req.URL.Query().Get("token"); t != "" {
		return t
	}
	if cookie, err := req.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
