package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/tictactoe-go/internal/api/handler"
	"github.com/mcoot/tictactoe-go/internal/api/middleware"
	"github.com/mcoot/tictactoe-go/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-go/internal/services/coordinator"
	"github.com/mcoot/tictactoe-go/internal/services/eventlog"
	"github.com/mcoot/tictactoe-go/internal/services/identity"
	"github.com/mcoot/tictactoe-go/internal/services/presence"
	"github.com/mcoot/tictactoe-go/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Clock       clock.Clock
	Storage     storage.Storage
	Verifier    identity.Verifier
	Coordinator *coordinator.Coordinator
	Registry    *presence.Registry
	EventLog    *eventlog.Service

	// Realtime serves the WebSocket endpoint at /ws. Optional.
	Realtime http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	userHandler := handler.NewUserHandler(cfg.Storage, cfg.Registry, cfg.Clock)
	invitationHandler := handler.NewInvitationHandler(cfg.Coordinator)
	matchHandler := handler.NewMatchHandler(cfg.Coordinator)
	logHandler := handler.NewLogHandler(cfg.EventLog)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.Verifier)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// Health check endpoint (no auth)
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// The WebSocket handshake authenticates on its own so it can reply with a close frame
	if cfg.Realtime != nil {
		r.Handle("/ws", cfg.Realtime).Methods(http.MethodGet)
	}

	// API subrouter, every route requires auth
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware)

	api.HandleFunc("/me", userHandler.GetMe).Methods(http.MethodGet)
	api.HandleFunc("/presence", userHandler.Presence).Methods(http.MethodGet)

	api.HandleFunc("/invitations", invitationHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/invitations/{id}/accept", invitationHandler.Accept).Methods(http.MethodPost)
	api.HandleFunc("/invitations/{id}/reject", invitationHandler.Reject).Methods(http.MethodPost)

	api.HandleFunc("/matches/{id}", matchHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}/moves", matchHandler.ListMoves).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}/moves", matchHandler.MakeMove).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/abandon", matchHandler.Abandon).Methods(http.MethodPost)

	api.HandleFunc("/logs", logHandler.Recent).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
