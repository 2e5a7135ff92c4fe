package cases

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/beaconhq/beacon/pkg/lifecycle"
	"github.com/beaconhq/beacon/pkg/pagination"
	"github.com/beaconhq/beacon/pkg/repository"
	"github.com/beaconhq/beacon/pkg/storage"
)

// mintLockKey is the advisory lock namespace for case-id minting.
const mintLockKey = 226601

const caseProjection = `
	id, case_id, session_id, secret_key_hash, secret_key, status, reported_at,
	evidence_manifest, incident_summary, authority_summary, credibility_score,
	credibility_breakdown, analysis_status, analysis_attempts, analysis_last_error,
	created_at, updated_at`

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a case repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "cases"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Start(lc *lifecycle.Coordinator) error {
	r.logger.Info("starting case store")

	lc.OnStartup(func() {
		if err := r.db.PingContext(lc.Context()); err != nil {
			r.logger.Error("case store unreachable", "error", err)
			return
		}
		r.logger.Info("case store ready")
	})

	return nil
}

func (r *repo) Submit(ctx context.Context, cmd SubmitCommand) (*SubmitResult, error) {
	id := uuid.New()

	frozen, err := r.freezeManifest(ctx, id, cmd.Manifest)
	if err != nil {
		return nil, fmt.Errorf("freeze evidence manifest: %w", err)
	}

	key, hash, err := mintSecretKey()
	if err != nil {
		r.unfreezeManifest(ctx, frozen)
		return nil, err
	}

	manifestJSON, err := json.Marshal(frozen)
	if err != nil {
		r.unfreezeManifest(ctx, frozen)
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Case, error) {
		// serialize minting so two submissions never derive the same suffix
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", mintLockKey); err != nil {
			return Case{}, fmt.Errorf("acquire mint lock: %w", err)
		}

		var maxID sql.NullString
		err := tx.QueryRowContext(ctx,
			"SELECT MAX(case_id) FROM cases WHERE case_id LIKE $1",
			caseIDPrefix+"%",
		).Scan(&maxID)
		if err != nil {
			return Case{}, fmt.Errorf("query max case id: %w", err)
		}

		caseID := nextCaseID(maxID.String)

		q := `
			INSERT INTO cases(id, case_id, session_id, secret_key_hash, secret_key, status, reported_at, evidence_manifest)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING` + caseProjection

		args := []any{
			id, caseID, cmd.SessionID, hash, key,
			DefaultStatus, time.Now().UTC(), manifestJSON,
		}

		return repository.QueryOne(ctx, tx, q, args, scanCase)
	})

	if err != nil {
		r.unfreezeManifest(ctx, frozen)
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("case minted", "case_id", c.CaseID, "session_id", c.SessionID, "evidence", len(frozen))
	return &SubmitResult{Case: &c, SecretKey: key}, nil
}

// freezeManifest copies each staged blob under the case's storage scope so the
// evidence survives session teardown. Copies fan out concurrently. The frozen
// key keeps the staged key's item segment so items sharing a filename never
// collide.
func (r *repo) freezeManifest(ctx context.Context, caseUUID uuid.UUID, manifest []ManifestEntry) ([]ManifestEntry, error) {
	frozen := make([]ManifestEntry, len(manifest))

	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range manifest {
		dst := fmt.Sprintf("cases/%s/evidence/%s/%s",
			caseUUID, path.Base(path.Dir(entry.StorageKey)), path.Base(entry.StorageKey))

		frozen[i] = entry
		frozen[i].StorageKey = dst

		src := entry.StorageKey
		g.Go(func() error {
			return r.storage.Copy(gctx, src, dst)
		})
	}

	if err := g.Wait(); err != nil {
		r.unfreezeManifest(ctx, frozen)
		return nil, err
	}

	return frozen, nil
}

// unfreezeManifest best-effort deletes frozen blobs after a failed submission.
func (r *repo) unfreezeManifest(ctx context.Context, frozen []ManifestEntry) {
	for _, entry := range frozen {
		if err := r.storage.Delete(ctx, entry.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("compensating blob delete failed", "key", entry.StorageKey, "error", err)
		}
	}
}

func (r *repo) Find(ctx context.Context, caseID string) (*Case, error) {
	q := "SELECT" + caseProjection + " FROM cases WHERE case_id = $1"

	c, err := repository.QueryOne(ctx, r.db, q, []any{caseID}, scanCase)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Case], error) {
	page.Normalize(r.pagination)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases").Scan(&total); err != nil {
		return nil, fmt.Errorf("count cases: %w", err)
	}

	q := "SELECT" + caseProjection + ` FROM cases
		ORDER BY reported_at DESC
		LIMIT $1 OFFSET $2`

	args := []any{page.PageSize, page.Offset()}
	items, err := repository.QueryMany(ctx, r.db, q, args, scanCase)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Verify(ctx context.Context, caseID, secretKey string) (*Case, error) {
	c, err := r.Find(ctx, caseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !verifySecretKey(c, secretKey) {
		return nil, ErrInvalidCredentials
	}
	return c, nil
}

func (r *repo) Track(ctx context.Context, caseID, secretKey string) (*TrackView, error) {
	c, err := r.Verify(ctx, caseID, secretKey)
	if err != nil {
		return nil, err
	}

	updates, err := r.Updates(ctx, caseID)
	if err != nil {
		return nil, err
	}

	messages, err := r.Messages(ctx, caseID)
	if err != nil {
		return nil, err
	}

	public := make([]PublicUpdate, len(updates))
	for i, u := range updates {
		public[i] = PublicUpdate{Message: u.PublicUpdate, Timestamp: u.CreatedAt}
	}

	return &TrackView{
		Status:          c.Status,
		ReportedAt:      c.ReportedAt,
		IncidentSummary: c.IncidentSummary,
		LastUpdated:     c.UpdatedAt,
		Updates:         public,
		Messages:        messages,
	}, nil
}

func (r *repo) SetStatus(ctx context.Context, caseID, status string) error {
	err := repository.ExecExpectOne(ctx, r.db,
		"UPDATE cases SET status = $1, updated_at = now() WHERE case_id = $2",
		status, caseID,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("case status changed", "case_id", caseID, "status", status)
	return nil
}

func (r *repo) AddUpdate(ctx context.Context, caseID, rawUpdate, publicUpdate, updatedBy string) (*Update, error) {
	q := `
		INSERT INTO case_updates(id, case_id, raw_update, public_update, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, case_id, raw_update, public_update, updated_by, created_at`

	args := []any{uuid.New(), caseID, rawUpdate, publicUpdate, updatedBy}

	u, err := repository.QueryOne(ctx, r.db, q, args, scanUpdate)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &u, nil
}

func (r *repo) Updates(ctx context.Context, caseID string) ([]Update, error) {
	q := `SELECT id, case_id, raw_update, public_update, updated_by, created_at
		FROM case_updates WHERE case_id = $1 ORDER BY created_at`

	updates, err := repository.QueryMany(ctx, r.db, q, []any{caseID}, scanUpdate)
	if err != nil {
		return nil, fmt.Errorf("query case updates: %w", err)
	}
	return updates, nil
}

func (r *repo) AddMessage(ctx context.Context, caseID, senderRole, content string) (*Message, error) {
	q := `
		INSERT INTO case_messages(id, case_id, sender_role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, case_id, sender_role, content, created_at`

	args := []any{uuid.New(), caseID, senderRole, content}

	m, err := repository.QueryOne(ctx, r.db, q, args, scanMessage)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &m, nil
}

func (r *repo) Messages(ctx context.Context, caseID string) ([]Message, error) {
	q := `SELECT id, case_id, sender_role, content, created_at
		FROM case_messages WHERE case_id = $1 ORDER BY created_at`

	messages, err := repository.QueryMany(ctx, r.db, q, []any{caseID}, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("query case messages: %w", err)
	}
	return messages, nil
}

func (r *repo) CompleteAnalysis(ctx context.Context, caseID string, result *AnalysisResult) error {
	breakdownJSON, err := json.Marshal(result.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	err = repository.ExecExpectOne(ctx, r.db, `
		UPDATE cases SET
			incident_summary = $1,
			authority_summary = $2,
			credibility_score = $3,
			credibility_breakdown = $4,
			analysis_status = $5,
			analysis_last_error = NULL,
			updated_at = now()
		WHERE case_id = $6 AND analysis_status = $7`,
		result.IncidentSummary, result.AuthoritySummary, result.Score,
		breakdownJSON, AnalysisCompleted, caseID, AnalysisPending,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// zero rows means the case is missing or already committed
		if _, findErr := r.Find(ctx, caseID); findErr != nil {
			return findErr
		}
		return ErrAnalysisCommitted
	}
	if err != nil {
		return fmt.Errorf("commit analysis: %w", err)
	}

	r.logger.Info("analysis committed", "case_id", caseID, "score", result.Score)
	return nil
}

func (r *repo) RecordAnalysisFailure(ctx context.Context, caseID, errMsg string) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE cases SET
			analysis_attempts = analysis_attempts + 1,
			analysis_last_error = $1,
			updated_at = now()
		WHERE case_id = $2`,
		truncateError(errMsg), caseID,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Warn("analysis failure recorded", "case_id", caseID, "error", truncateError(errMsg))
	return nil
}

func scanCase(s repository.Scanner) (Case, error) {
	var (
		c             Case
		manifestJSON  []byte
		breakdownJSON []byte
	)
	if err := s.Scan(
		&c.ID, &c.CaseID, &c.SessionID, &c.SecretKeyHash, &c.SecretKey,
		&c.Status, &c.ReportedAt, &manifestJSON, &c.IncidentSummary,
		&c.AuthoritySummary, &c.CredibilityScore, &breakdownJSON,
		&c.AnalysisStatus, &c.AnalysisAttempts, &c.AnalysisLastError,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return Case{}, err
	}

	if len(manifestJSON) > 0 {
		if err := json.Unmarshal(manifestJSON, &c.EvidenceManifest); err != nil {
			return Case{}, fmt.Errorf("unmarshal manifest: %w", err)
		}
	}
	if len(breakdownJSON) > 0 {
		c.CredibilityBreakdown = &Breakdown{}
		if err := json.Unmarshal(breakdownJSON, c.CredibilityBreakdown); err != nil {
			return Case{}, fmt.Errorf("unmarshal breakdown: %w", err)
		}
	}

	return c, nil
}

func scanUpdate(s repository.Scanner) (Update, error) {
	var u Update
	err := s.Scan(&u.ID, &u.CaseID, &u.RawUpdate, &u.PublicUpdate, &u.UpdatedBy, &u.CreatedAt)
	return u, err
}

func scanMessage(s repository.Scanner) (Message, error) {
	var m Message
	err := s.Scan(&m.ID, &m.CaseID, &m.SenderRole, &m.Content, &m.CreatedAt)
	return m, err
}
