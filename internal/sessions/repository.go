package sessions

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/beaconhq/beacon/internal/facts"
	"github.com/beaconhq/beacon/pkg/lifecycle"
	"github.com/beaconhq/beacon/pkg/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	token_hash TEXT NOT NULL UNIQUE,
	active     INTEGER NOT NULL DEFAULT 1,
	submitted  INTEGER NOT NULL DEFAULT 0,
	case_id    TEXT,
	facts      TEXT NOT NULL DEFAULT '{"fields":{},"evidence_watermark":0,"version":0}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS turns (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	sender     TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq);`

// SaveFactsCommand carries a fact snapshot plus the version the caller read it
// at, for the optimistic stale-write check.
type SaveFactsCommand struct {
	Facts        *facts.Store
	PriorVersion int
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a session repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "sessions"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Start(lc *lifecycle.Coordinator) error {
	r.logger.Info("starting session ledger")

	lc.OnStartup(func() {
		if _, err := r.db.ExecContext(lc.Context(), schema); err != nil {
			r.logger.Error("session schema bootstrap failed", "error", err)
			return
		}
		r.logger.Info("session ledger ready")
	})

	return nil
}

func (r *repo) Create(ctx context.Context) (*Session, string, error) {
	token, hash, err := mintToken()
	if err != nil {
		return nil, "", fmt.Errorf("mint access token: %w", err)
	}

	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.New(),
		TokenHash: hash,
		Active:    true,
		Facts:     *facts.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	factsJSON, err := json.Marshal(&s.Facts)
	if err != nil {
		return nil, "", fmt.Errorf("marshal facts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions(id, token_hash, active, submitted, facts, created_at, updated_at)
		VALUES (?, ?, 1, 0, ?, ?, ?)`,
		s.ID.String(), hash, string(factsJSON), formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, "", repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("session created", "id", s.ID)
	return s, token, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Session, error) {
	q := `SELECT id, token_hash, active, submitted, case_id, facts, created_at, updated_at
		FROM sessions WHERE id = ?`

	s, err := repository.QueryOne(ctx, r.db, q, []any{id.String()}, scanSession)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &s, nil
}

func (r *repo) Authenticate(ctx context.Context, id uuid.UUID, token string) (*Session, error) {
	s, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	presented := hashToken(token)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(s.TokenHash)) != 1 {
		return nil, ErrInvalidToken
	}
	return s, nil
}

func (r *repo) AppendTurn(ctx context.Context, sessionID uuid.UUID, sender, content string) (*Turn, error) {
	t := &Turn{
		ID:        uuid.New(),
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO turns(id, session_id, sender, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID.String(), sessionID.String(), sender, content, formatTime(t.CreatedAt),
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if seq, err := res.LastInsertId(); err == nil {
		t.Seq = seq
	}
	return t, nil
}

func (r *repo) Turns(ctx context.Context, sessionID uuid.UUID) ([]Turn, error) {
	q := `SELECT seq, id, session_id, sender, content, created_at
		FROM turns WHERE session_id = ? ORDER BY seq`

	turns, err := repository.QueryMany(ctx, r.db, q, []any{sessionID.String()}, scanTurn)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	return turns, nil
}

func (r *repo) SaveFacts(ctx context.Context, sessionID uuid.UUID, cmd *SaveFactsCommand) error {
	factsJSON, err := json.Marshal(cmd.Facts)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}

	err = repository.ExecExpectOne(ctx, r.db, `
		UPDATE sessions SET facts = ?, updated_at = ?
		WHERE id = ? AND json_extract(facts, '$.version') <= ?`,
		string(factsJSON), formatTime(time.Now().UTC()),
		sessionID.String(), cmd.PriorVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// row exists but the stored snapshot moved on, or the session is gone
		if _, findErr := r.Find(ctx, sessionID); findErr != nil {
			return findErr
		}
		return ErrStaleFacts
	}
	return err
}

func (r *repo) MarkSubmitted(ctx context.Context, sessionID uuid.UUID, caseID string) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE sessions SET submitted = 1, active = 0, case_id = ?, updated_at = ?
		WHERE id = ?`,
		caseID, formatTime(time.Now().UTC()), sessionID.String(),
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("session submitted", "id", sessionID, "case_id", caseID)
	return nil
}

func mintToken() (token, hash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(raw)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func scanSession(s repository.Scanner) (Session, error) {
	var (
		sess             Session
		id, facts        string
		caseID           sql.NullString
		created, updated string
	)
	if err := s.Scan(&id, &sess.TokenHash, &sess.Active, &sess.Submitted, &caseID, &facts, &created, &updated); err != nil {
		return Session{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Session{}, fmt.Errorf("parse session id: %w", err)
	}
	sess.ID = parsed

	if caseID.Valid {
		sess.CaseID = &caseID.String
	}
	if err := json.Unmarshal([]byte(facts), &sess.Facts); err != nil {
		return Session{}, fmt.Errorf("unmarshal facts: %w", err)
	}
	if sess.CreatedAt, err = parseTime(created); err != nil {
		return Session{}, fmt.Errorf("parse session created_at: %w", err)
	}
	if sess.UpdatedAt, err = parseTime(updated); err != nil {
		return Session{}, fmt.Errorf("parse session updated_at: %w", err)
	}
	return sess, nil
}

func scanTurn(s repository.Scanner) (Turn, error) {
	var (
		t           Turn
		id, session string
		created     string
	)
	if err := s.Scan(&t.Seq, &id, &session, &t.Sender, &t.Content, &created); err != nil {
		return Turn{}, err
	}

	turnID, err := uuid.Parse(id)
	if err != nil {
		return Turn{}, fmt.Errorf("parse turn id: %w", err)
	}
	sessionID, err := uuid.Parse(session)
	if err != nil {
		return Turn{}, fmt.Errorf("parse turn session id: %w", err)
	}

	t.ID = turnID
	t.SessionID = sessionID
	if t.CreatedAt, err = parseTime(created); err != nil {
		return Turn{}, fmt.Errorf("parse turn created_at: %w", err)
	}
	return t, nil
}
