// Package conversation implements the turn coordinator for Beacon intake: it
// serializes turns per session, persists the reporter's message before any
// extraction, folds new evidence descriptions into the conversation, merges
// extracted facts under the fact shield, and drives the two-phase submission
// when the extractor signals completion.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/beaconhq/beacon/internal/analysis"
	"github.com/beaconhq/beacon/internal/cases"
	"github.com/beaconhq/beacon/internal/evidence"
	"github.com/beaconhq/beacon/internal/extractor"
	"github.com/beaconhq/beacon/internal/facts"
	"github.com/beaconhq/beacon/internal/sessions"
)

// retryReply is shown whenever a turn fails in a way the reporter can simply
// retry. It deliberately reveals nothing about the failure.
const retryReply = "Something went wrong on our side. Please try sending that again."

// TurnResult is the outcome of one coordinated turn.
type TurnResult struct {
	Reply     string  `json:"reply"`
	Submitted bool    `json:"submitted"`
	CaseID    *string `json:"case_id,omitempty"`
}

// Coordinator orchestrates one request/response intake cycle.
type Coordinator struct {
	sessions  sessions.System
	evidence  evidence.System
	cases     cases.System
	extractor extractor.Conversational
	describer extractor.Describer
	worker    *analysis.Worker
	dispatch  analysis.DispatchFunc
	locks     *keyedMutex
	logger    *slog.Logger
}

// NewCoordinator creates a turn Coordinator.
func NewCoordinator(
	sessionSys sessions.System,
	evidenceSys evidence.System,
	caseSys cases.System,
	conv extractor.Conversational,
	describer extractor.Describer,
	worker *analysis.Worker,
	dispatch analysis.DispatchFunc,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		sessions:  sessionSys,
		evidence:  evidenceSys,
		cases:     caseSys,
		extractor: conv,
		describer: describer,
		worker:    worker,
		dispatch:  dispatch,
		locks:     newKeyedMutex(),
		logger:    logger.With("system", "conversation"),
	}
}

// HandleTurn processes one reporter message for an authenticated session.
// Turns for the same session are fully serialized.
func (c *Coordinator) HandleTurn(ctx context.Context, session *sessions.Session, message string) (*TurnResult, error) {
	unlock := c.locks.Lock(session.ID)
	defer unlock()

	// reload under the lock; a concurrent turn may have submitted the session
	session, err := c.sessions.Find(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	if session.Submitted {
		return c.alreadySubmitted(session), nil
	}
	if !session.Active {
		return nil, sessions.ErrClosed
	}

	// the reporter's words are durable before anything else can fail
	if _, err := c.sessions.AppendTurn(ctx, session.ID, sessions.SenderReporter, message); err != nil {
		return nil, fmt.Errorf("persist reporter turn: %w", err)
	}

	store := session.Facts.Clone()
	priorVersion := store.Version

	if err := c.foldNewEvidence(ctx, session, store); err != nil {
		c.logger.Warn("evidence fold failed", "session_id", session.ID, "error", err)
	} else if store.Version != priorVersion {
		// persist the advanced watermark before extraction so a failed turn
		// never re-describes the same artifacts on retry
		cmd := &sessions.SaveFactsCommand{Facts: store, PriorVersion: priorVersion}
		if err := c.sessions.SaveFacts(ctx, session.ID, cmd); err != nil {
			return nil, fmt.Errorf("save facts: %w", err)
		}
		priorVersion = store.Version
	}

	history, err := c.buildHistory(ctx, session)
	if err != nil {
		return nil, err
	}

	reply, err := c.extractor.Converse(ctx, history, store.Fields)
	if err != nil {
		// transient: the reporter turn is already persisted, retry is safe
		c.logger.Warn("extraction failed", "session_id", session.ID, "error", err)
		return &TurnResult{Reply: retryReply}, nil
	}

	if len(reply.Facts) > 0 {
		result := store.Merge(reply.Facts)
		if len(result.Unknown) > 0 {
			c.logger.Warn("unknown fact keys discarded", "session_id", session.ID, "keys", result.Unknown)
		}
	}

	if store.Version != priorVersion {
		cmd := &sessions.SaveFactsCommand{Facts: store, PriorVersion: priorVersion}
		if err := c.sessions.SaveFacts(ctx, session.ID, cmd); err != nil {
			return nil, fmt.Errorf("save facts: %w", err)
		}
	}

	if reply.Complete {
		return c.submit(ctx, session, reply)
	}

	if _, err := c.sessions.AppendTurn(ctx, session.ID, sessions.SenderAssistant, reply.Message); err != nil {
		return nil, fmt.Errorf("persist assistant turn: %w", err)
	}

	return &TurnResult{Reply: reply.Message}, nil
}

// submit runs the Phase 1 commit and detaches the Phase 2 analysis. A failed
// submission shows the reporter nothing but a retry prompt; the session stays
// active and the next completed turn tries again.
func (c *Coordinator) submit(ctx context.Context, session *sessions.Session, reply *extractor.Reply) (*TurnResult, error) {
	items, err := c.evidence.List(ctx, session.ID)
	if err != nil {
		c.logger.Error("submission aborted, evidence unavailable", "session_id", session.ID, "error", err)
		return &TurnResult{Reply: retryReply}, nil
	}

	manifest := make([]cases.ManifestEntry, len(items))
	for i, item := range items {
		manifest[i] = cases.ManifestEntry{
			Filename:    item.Filename,
			ContentType: item.ContentType,
			SizeBytes:   item.SizeBytes,
			SHA256:      item.SHA256,
			PageCount:   item.PageCount,
			StorageKey:  item.StorageKey,
		}
	}

	result, err := c.cases.Submit(ctx, cases.SubmitCommand{
		SessionID: session.ID,
		Manifest:  manifest,
	})
	if err != nil {
		c.logger.Error("submission failed", "session_id", session.ID, "error", err)
		return &TurnResult{Reply: retryReply}, nil
	}

	caseID := result.Case.CaseID
	closing := strings.ReplaceAll(reply.Message, extractor.CaseIDSentinel, caseID)
	closing = strings.ReplaceAll(closing, extractor.SecretKeySentinel, result.SecretKey)

	if err := c.sessions.MarkSubmitted(ctx, session.ID, caseID); err != nil {
		// the case exists; surface it anyway and let the ledger catch up
		c.logger.Error("session close failed after submission", "session_id", session.ID, "case_id", caseID, "error", err)
	}

	if _, err := c.sessions.AppendTurn(ctx, session.ID, sessions.SenderAssistant, closing); err != nil {
		c.logger.Warn("closing turn not persisted", "session_id", session.ID, "error", err)
	}

	sessionID := session.ID
	c.dispatch(func(ctx context.Context) {
		c.worker.Run(ctx, sessionID, caseID)
	})

	c.logger.Info("session submitted", "session_id", session.ID, "case_id", caseID)
	return &TurnResult{Reply: closing, Submitted: true, CaseID: &caseID}, nil
}

// foldNewEvidence describes artifacts uploaded since the last turn, appends
// the descriptions as system turns, and advances the watermark so no artifact
// is ever described twice. Descriptions fan out concurrently; a single failed
// description degrades to a bare file note.
func (c *Coordinator) foldNewEvidence(ctx context.Context, session *sessions.Session, store *facts.Store) error {
	count, err := c.evidence.Count(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("count evidence: %w", err)
	}
	if count <= store.EvidenceWatermark {
		return nil
	}

	items, err := c.evidence.List(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("fetch evidence: %w", err)
	}

	fresh := items[store.EvidenceWatermark:]
	notes := make([]string, len(fresh))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range fresh {
		g.Go(func() error {
			_, data, err := c.evidence.Download(gctx, item.ID)
			if err != nil {
				return fmt.Errorf("fetch evidence %s: %w", item.ID, err)
			}

			desc, err := c.describer.Describe(gctx, item.Filename, item.ContentType, data)
			if err != nil {
				c.logger.Warn("evidence description failed", "id", item.ID, "error", err)
				notes[i] = fmt.Sprintf("Reporter attached evidence file %q (%s, %d bytes).",
					item.Filename, item.ContentType, item.SizeBytes)
				return nil
			}

			notes[i] = fmt.Sprintf("Reporter attached evidence file %q: %s", item.Filename, desc)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, note := range notes {
		if _, err := c.sessions.AppendTurn(ctx, session.ID, sessions.SenderSystem, note); err != nil {
			return fmt.Errorf("persist evidence note: %w", err)
		}
	}

	store.AdvanceWatermark(count)
	return nil
}

func (c *Coordinator) buildHistory(ctx context.Context, session *sessions.Session) ([]extractor.Message, error) {
	turns, err := c.sessions.Turns(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	history := make([]extractor.Message, 0, len(turns))
	for _, t := range turns {
		role := extractor.RoleUser
		if t.Sender == sessions.SenderAssistant {
			role = extractor.RoleAssistant
		}
		history = append(history, extractor.Message{Role: role, Content: t.Content})
	}
	return history, nil
}

func (c *Coordinator) alreadySubmitted(session *sessions.Session) *TurnResult {
	reply := "This report has already been submitted. Thank you again for speaking up."
	if session.CaseID != nil {
		reply = fmt.Sprintf(
			"This report has already been submitted. Your Case ID is %s. Please use it to track your case.",
			*session.CaseID,
		)
	}

	return &TurnResult{
		Reply:     reply,
		Submitted: true,
		CaseID:    session.CaseID,
	}
}
