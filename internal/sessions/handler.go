package sessions

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/beaconhq/beacon/pkg/handlers"
	"github.com/beaconhq/beacon/pkg/routes"
)

// Handler provides HTTP endpoints for session operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// CreateResponse is returned on session creation. Token is handed out exactly
// once; subsequent reads of the session never include it.
type CreateResponse struct {
	Session *Session `json:"session"`
	Token   string   `json:"token"`
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "sessions"),
	}
}

// Routes returns the route group definition for session endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/turns", Handler: h.Turns},
		},
	}
}

// Create mints a new session and returns it with the one-time access token.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	session, token, err := h.sys.Create(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, CreateResponse{
		Session: session,
		Token:   token,
	})
}

// Find returns session status for an authenticated reporter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	session, err := h.authenticate(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, session)
}

// Turns returns the ordered conversation history for an authenticated reporter.
func (h *Handler) Turns(w http.ResponseWriter, r *http.Request) {
	session, err := h.authenticate(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	turns, err := h.sys.Turns(r.Context(), session.ID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, turns)
}

func (h *Handler) authenticate(r *http.Request) (*Session, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, ErrNotFound
	}

	return h.sys.Authenticate(r.Context(), id, BearerToken(r))
}

// BearerToken extracts the access token from the Authorization header.
// Returns "" when the header is missing or not a bearer scheme.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
