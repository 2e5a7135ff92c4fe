package conversation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/beaconhq/beacon/internal/sessions"
	"github.com/beaconhq/beacon/pkg/handlers"
	"github.com/beaconhq/beacon/pkg/routes"
)

// ErrEmptyMessage rejects turns with no content.
var ErrEmptyMessage = errors.New("message content required")

// Handler provides the HTTP endpoint for conversation turns.
type Handler struct {
	coordinator *Coordinator
	auth        sessions.System
	logger      *slog.Logger
}

// TurnRequest carries one reporter message.
type TurnRequest struct {
	Content string `json:"content"`
}

// NewHandler creates a Handler with the given coordinator and session
// authenticator.
func NewHandler(coordinator *Coordinator, auth sessions.System, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		auth:        auth,
		logger:      logger.With("handler", "conversation"),
	}
}

// Routes returns the route group definition for conversation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/messages", Handler: h.Turn},
		},
	}
}

// Turn processes one reporter message for an authenticated session.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(sessions.ErrNotFound), sessions.ErrNotFound)
		return
	}

	session, err := h.auth.Authenticate(r.Context(), id, sessions.BearerToken(r))
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrEmptyMessage)
		return
	}

	result, err := h.coordinator.HandleTurn(r.Context(), session, req.Content)
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
