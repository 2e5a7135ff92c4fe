package cases

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/beaconhq/beacon/pkg/handlers"
	"github.com/beaconhq/beacon/pkg/pagination"
	"github.com/beaconhq/beacon/pkg/routes"
)

// Handler provides HTTP endpoints for case operations: the anonymous tracking
// surface (secret-key authenticated) and the authority surface.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// TrackRequest authenticates a reporter against a case.
type TrackRequest struct {
	CaseID    string `json:"case_id"`
	SecretKey string `json:"secret_key"`
}

// TrackMessageRequest sends a reporter message on the case channel.
type TrackMessageRequest struct {
	TrackRequest
	Content string `json:"content"`
}

// StatusRequest changes a case's operational status.
type StatusRequest struct {
	Status string `json:"status"`
}

// UpdateRequest appends an authority update to a case.
type UpdateRequest struct {
	RawUpdate    string `json:"raw_update"`
	PublicUpdate string `json:"public_update"`
	UpdatedBy    string `json:"updated_by"`
}

// MessageRequest appends an authority message to a case channel.
type MessageRequest struct {
	Content string `json:"content"`
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "cases"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for case endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/cases",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/track", Handler: h.Track},
			{Method: "POST", Pattern: "/track/message", Handler: h.TrackMessage},
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{caseID}", Handler: h.Find},
			{Method: "PUT", Pattern: "/{caseID}/status", Handler: h.SetStatus},
			{Method: "POST", Pattern: "/{caseID}/updates", Handler: h.AddUpdate},
			{Method: "GET", Pattern: "/{caseID}/updates", Handler: h.Updates},
			{Method: "POST", Pattern: "/{caseID}/messages", Handler: h.AddMessage},
			{Method: "GET", Pattern: "/{caseID}/messages", Handler: h.Messages},
		},
	}
}

// Track verifies the presented secret key and returns the reporter-facing
// case view.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidCredentials)
		return
	}

	view, err := h.sys.Track(r.Context(), strings.TrimSpace(req.CaseID), req.SecretKey)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, view)
}

// TrackMessage appends a reporter message after secret key verification.
func (h *Handler) TrackMessage(w http.ResponseWriter, r *http.Request) {
	var req TrackMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidCredentials)
		return
	}

	c, err := h.sys.Verify(r.Context(), strings.TrimSpace(req.CaseID), req.SecretKey)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	msg, err := h.sys.AddMessage(r.Context(), c.CaseID, MessageSenderReporter, req.Content)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, msg)
}

// List returns a paginated list of cases for the authority surface.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single case by its case identifier.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	c, err := h.sys.Find(r.Context(), r.PathValue("caseID"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}

// SetStatus changes a case's operational status.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	if err := h.sys.SetStatus(r.Context(), r.PathValue("caseID"), req.Status); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddUpdate appends an authority update to a case.
func (h *Handler) AddUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.PublicUpdate) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	u, err := h.sys.AddUpdate(r.Context(), r.PathValue("caseID"), req.RawUpdate, req.PublicUpdate, req.UpdatedBy)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, u)
}

// Updates returns a case's updates in chronological order.
func (h *Handler) Updates(w http.ResponseWriter, r *http.Request) {
	updates, err := h.sys.Updates(r.Context(), r.PathValue("caseID"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, updates)
}

// AddMessage appends an authority message to a case channel.
func (h *Handler) AddMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	msg, err := h.sys.AddMessage(r.Context(), r.PathValue("caseID"), MessageSenderAuthority, req.Content)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, msg)
}

// Messages returns a case's message channel in chronological order.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.sys.Messages(r.Context(), r.PathValue("caseID"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, messages)
}
