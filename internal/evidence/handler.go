package evidence

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/beaconhq/beacon/internal/sessions"
	"github.com/beaconhq/beacon/pkg/handlers"
	"github.com/beaconhq/beacon/pkg/routes"
)

// Handler provides HTTP endpoints for evidence operations. All endpoints are
// scoped to a session and require the session access token.
type Handler struct {
	sys           System
	auth          sessions.System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, session authenticator,
// logger, and upload size limit.
func NewHandler(sys System, auth sessions.System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		auth:          auth,
		logger:        logger.With("handler", "evidence"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for evidence endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/evidence", Handler: h.Upload},
			{Method: "GET", Pattern: "/{id}/evidence", Handler: h.List},
		},
	}
}

// Upload processes a multipart form upload containing one evidence file.
// Extracts PDF page count automatically for PDF files using pdfcpu.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	session, err := h.authenticate(r)
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	if !session.Active {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(sessions.ErrClosed), sessions.ErrClosed)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), data)
	pageCount := extractPDFPageCount(h.logger, data, contentType)

	cmd := CreateCommand{
		SessionID:   session.ID,
		Data:        data,
		Filename:    header.Filename,
		ContentType: contentType,
		PageCount:   pageCount,
	}

	item, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, item)
}

// List returns a session's evidence in registration order.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	session, err := h.authenticate(r)
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	items, err := h.sys.List(r.Context(), session.ID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

func (h *Handler) authenticate(r *http.Request) (*sessions.Session, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, sessions.ErrNotFound
	}

	return h.auth.Authenticate(r.Context(), id, sessions.BearerToken(r))
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}

func extractPDFPageCount(logger *slog.Logger, data []byte, contentType string) *int {
	if contentType != "application/pdf" {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}

	return &count
}
