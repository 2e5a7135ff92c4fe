package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/beaconhq/beacon/internal/cases"
	"github.com/beaconhq/beacon/internal/evidence"
	"github.com/beaconhq/beacon/internal/extractor"
	"github.com/beaconhq/beacon/internal/sessions"
)

// Worker runs the Phase 2 analysis for one submitted session. Failures at any
// stage record the error against the case and leave it pending; the intake
// outcome already delivered to the reporter is never affected.
type Worker struct {
	sessions  sessions.System
	evidence  evidence.System
	cases     cases.System
	assessor  Assessor
	describer extractor.Describer
	logger    *slog.Logger
}

// NewWorker creates an analysis Worker.
func NewWorker(
	sessionSys sessions.System,
	evidenceSys evidence.System,
	caseSys cases.System,
	assessor Assessor,
	describer extractor.Describer,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		sessions:  sessionSys,
		evidence:  evidenceSys,
		cases:     caseSys,
		assessor:  assessor,
		describer: describer,
		logger:    logger.With("system", "analysis"),
	}
}

// Run executes the analysis pipeline for a case. A validation rejection and a
// collaborator failure are handled identically: record and leave pending. A
// case whose analysis already committed is a logged no-op.
func (w *Worker) Run(ctx context.Context, sessionID uuid.UUID, caseID string) error {
	w.logger.Info("analysis started", "case_id", caseID, "session_id", sessionID)

	result, err := w.analyze(ctx, sessionID)
	if err != nil {
		return w.fail(ctx, caseID, err)
	}

	if err := w.cases.CompleteAnalysis(ctx, caseID, result); err != nil {
		if errors.Is(err, cases.ErrAnalysisCommitted) {
			w.logger.Info("analysis already committed, skipping", "case_id", caseID)
			return nil
		}
		return w.fail(ctx, caseID, err)
	}

	w.logger.Info("analysis completed", "case_id", caseID, "score", result.Score)
	return nil
}

func (w *Worker) analyze(ctx context.Context, sessionID uuid.UUID) (*cases.AnalysisResult, error) {
	turns, err := w.sessions.Turns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("no conversation history for analysis")
	}

	history := make([]extractor.Message, 0, len(turns))
	for _, t := range turns {
		role := extractor.RoleUser
		if t.Sender == sessions.SenderAssistant {
			role = extractor.RoleAssistant
		}
		history = append(history, extractor.Message{Role: role, Content: t.Content})
	}

	notes, err := w.describeEvidence(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	assessment, err := w.assessor.Assess(ctx, history, notes)
	if err != nil {
		return nil, fmt.Errorf("assess: %w", err)
	}

	if err := Validate(assessment); err != nil {
		return nil, fmt.Errorf("assessment rejected: %w", err)
	}

	return &cases.AnalysisResult{
		IncidentSummary:  assessment.IncidentSummary,
		AuthoritySummary: assessment.AuthoritySummary,
		Score:            assessment.Score,
		Breakdown:        assessment.Breakdown,
	}, nil
}

// describeEvidence fans out description requests for the session's artifacts.
// An individual description failure degrades to a placeholder note rather
// than failing the run.
func (w *Worker) describeEvidence(ctx context.Context, sessionID uuid.UUID) ([]string, error) {
	items, err := w.evidence.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch evidence: %w", err)
	}

	notes := make([]string, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			_, data, err := w.evidence.Download(gctx, item.ID)
			if err != nil {
				w.logger.Warn("evidence fetch failed", "id", item.ID, "error", err)
				notes[i] = fmt.Sprintf("%s (unavailable)", item.Filename)
				return nil
			}

			desc, err := w.describer.Describe(gctx, item.Filename, item.ContentType, data)
			if err != nil {
				w.logger.Warn("evidence description failed", "id", item.ID, "error", err)
				notes[i] = fmt.Sprintf("%s (%s, %d bytes, description unavailable)",
					item.Filename, item.ContentType, item.SizeBytes)
				return nil
			}

			notes[i] = fmt.Sprintf("%s: %s", item.Filename, desc)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return notes, nil
}

func (w *Worker) fail(ctx context.Context, caseID string, cause error) error {
	w.logger.Error("analysis failed", "case_id", caseID, "error", cause)

	if err := w.cases.RecordAnalysisFailure(ctx, caseID, cause.Error()); err != nil {
		w.logger.Error("failure recording failed", "case_id", caseID, "error", err)
	}

	return cause
}
