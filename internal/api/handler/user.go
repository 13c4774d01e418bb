package handler

import (
	"errors"
	"net/http"

	"github.com/mcoot/tictactoe-go/internal/api/middleware"
	"github.com/mcoot/tictactoe-go/internal/api/response"
	"github.com/mcoot/tictactoe-go/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/services/presence"
	"github.com/mcoot/tictactoe-go/internal/storage"
)

// UserHandler handles user and presence endpoints
type UserHandler struct {
	storage  storage.Storage
	registry *presence.Registry
	clock    clock.Clock
}

// NewUserHandler creates a new user handler
func NewUserHandler(storage storage.Storage, registry *presence.Registry, clock clock.Clock) *UserHandler {
	return &UserHandler{
		storage:  storage,
		registry: registry,
		clock:    clock,
	}
}

// GetMe handles GET /api/v1/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetIdentity(r.Context())

	user, err := h.storage.GetUser(r.Context(), id.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		// Known to the identity provider but never connected
		user, err = id.User(h.clock.Now()), nil
	}
	if err != nil {
		WriteError(w, err)
		return
	}
	user.IsOnline = h.registry.IsOnline(id.UserID)

	response.Write(w, r, http.StatusOK, response.UserFromModel(user))
}

// Presence handles GET /api/v1/presence
func (h *UserHandler) Presence(w http.ResponseWriter, r *http.Request) {
	response.Write(w, r, http.StatusOK, response.PresenceFromUsers(h.registry.OnlineUsers()))
}
