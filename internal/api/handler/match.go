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

// MatchHandler handles match endpoints. Only participants can see or act on a match.
type MatchHandler struct {
	coordinator *coordinator.Coordinator
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(coordinator *coordinator.Coordinator) *MatchHandler {
	return &MatchHandler{
		coordinator: coordinator,
	}
}

// Get handles GET /api/v1/matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetIdentity(r.Context())
	matchID := model.MatchID(mux.Vars(r)["id"])

	match, err := h.coordinator.GetMatch(r.Context(), matchID, id.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Write(w, r, http.StatusOK, response.MatchFromModel(match))
}

// ListMoves handles GET /api/v1/matches/{id}/moves
func (h *MatchHandler) ListMoves(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetIdentity(r.Context())
	matchID := model.MatchID(mux.Vars(r)["id"])

	moves, err := h.coordinator.ListMoves(r.Context(), matchID, id.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Write(w, r, http.StatusOK, response.MovesFromModel(moves))
}

// MakeMove handles POST /api/v1/matches/{id}/moves
func (h *MatchHandler) MakeMove(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetIdentity(r.Context())
	matchID := model.MatchID(mux.Vars(r)["id"])

	var req request.MakeMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Position == nil {
		WriteError(w, NewInvalidRequestError("position is required"))
		return
	}

	result, err := h.coordinator.MakeMove(r.Context(), matchID, id.UserID, *req.Position)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Write(w, r, http.StatusCreated, response.MoveResult{
		Match:          response.MatchFromModel(result.Match),
		Move:           response.MoveFromModel(result.Move),
		Classification: response.ClassificationFromModel(result.Classification),
	})
}

// Abandon handles POST /api/v1/matches/{id}/abandon
func (h *MatchHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetIdentity(r.Context())
	matchID := model.MatchID(mux.Vars(r)["id"])

	match, err := h.coordinator.AbandonMatch(r.Context(), matchID, id.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Write(w, r, http.StatusOK, response.MatchFromModel(match))
}
