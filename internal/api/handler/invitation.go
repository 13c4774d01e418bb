package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/tictactoe-go/internal/api/middleware"
	"github.com/mcoot/tictactoe-go/internal/api/request"
	"github.com/mcoot/tictactoe-go/internal/api/response"
	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/services/coordinator"
)

// InvitationHandler handles invitation endpoints
type InvitationHandler struct {
	coordinator *coordinator.Coordinator
}

// NewInvitationHandler creates a new invitation handler
func NewInvitationHandler(coordinator *coordinator.Coordinator) *InvitationHandler {
	return &InvitationHandler{
		coordinator: coordinator,
	}
}

// Create handles POST /api/v1/invitations
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetIdentity(r.Context())

	var req request.CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.ToUserID == "" {
		WriteError(w, NewInvalidRequestError("to_user_id is required"))
		return
	}

	inv, err := h.coordinator.CreateInvitation(r.Context(), id.UserID, model.UserID(req.ToUserID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Write(w, r, http.StatusCreated, response.InvitationFromModel(inv))
}

// Accept handles POST /api/v1/invitations/{id}/accept
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetIdentity(r.Context())
	invitationID := model.InvitationID(mux.Vars(r)["id"])

	match, err := h.coordinator.AcceptInvitation(r.Context(), invitationID, id.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Write(w, r, http.StatusCreated, response.MatchFromModel(match))
}

// Reject handles POST /api/v1/invitations/{id}/reject
func (h *InvitationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetIdentity(r.Context())
	invitationID := model.InvitationID(mux.Vars(r)["id"])

	inv, err := h.coordinator.RejectInvitation(r.Context(), invitationID, id.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Write(w, r, http.StatusOK, response.InvitationFromModel(inv))
}
