package analysis

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/beaconhq/beacon/internal/cases"
	"github.com/beaconhq/beacon/pkg/handlers"
	"github.com/beaconhq/beacon/pkg/routes"
)

// DispatchFunc runs fn on a tracked background goroutine. The server supplies
// its lifecycle coordinator's Detach so in-flight runs are drained on shutdown.
type DispatchFunc func(fn func(ctx context.Context))

// Handler exposes the manual analysis re-trigger for cases left pending by a
// failed Phase 2 run.
type Handler struct {
	worker   *Worker
	cases    cases.System
	dispatch DispatchFunc
	logger   *slog.Logger
}

// NewHandler creates a Handler with the given worker, case system, and
// dispatcher.
func NewHandler(worker *Worker, caseSys cases.System, dispatch DispatchFunc, logger *slog.Logger) *Handler {
	return &Handler{
		worker:   worker,
		cases:    caseSys,
		dispatch: dispatch,
		logger:   logger.With("handler", "analysis"),
	}
}

// Routes returns the route group definition for analysis endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/cases",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{caseID}/analyze", Handler: h.Retrigger},
		},
	}
}

// Retrigger schedules a fresh analysis run for a pending case and returns
// immediately. A case whose analysis already committed is rejected.
func (h *Handler) Retrigger(w http.ResponseWriter, r *http.Request) {
	c, err := h.cases.Find(r.Context(), r.PathValue("caseID"))
	if err != nil {
		handlers.RespondError(w, h.logger, cases.MapHTTPStatus(err), err)
		return
	}

	if c.AnalysisStatus != cases.AnalysisPending {
		handlers.RespondError(w, h.logger, cases.MapHTTPStatus(cases.ErrAnalysisCommitted), cases.ErrAnalysisCommitted)
		return
	}

	sessionID := c.SessionID
	caseID := c.CaseID
	h.dispatch(func(ctx context.Context) {
		h.worker.Run(ctx, sessionID, caseID)
	})

	h.logger.Info("analysis re-triggered", "case_id", caseID)
	w.WriteHeader(http.StatusAccepted)
}
