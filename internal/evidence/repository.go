package evidence

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/beaconhq/beacon/internal/sessions"
	"github.com/beaconhq/beacon/pkg/lifecycle"
	"github.com/beaconhq/beacon/pkg/repository"
	"github.com/beaconhq/beacon/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS evidence (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	session_id   TEXT NOT NULL REFERENCES sessions(id),
	filename     TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size_bytes   INTEGER NOT NULL,
	sha256       TEXT NOT NULL,
	page_count   INTEGER,
	storage_key  TEXT NOT NULL,
	cleansed     INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evidence_session ON evidence(session_id, seq);`

type repo struct {
	db      *sql.DB
	storage storage.System
	logger  *slog.Logger
}

// New creates an evidence repository implementing the System interface.
func New(db *sql.DB, store storage.System, logger *slog.Logger) System {
	return &repo{
		db:      db,
		storage: store,
		logger:  logger.With("system", "evidence"),
	}
}

func (r *repo) Handler(auth sessions.System, maxUploadSize int64) *Handler {
	return NewHandler(r, auth, r.logger, maxUploadSize)
}

func (r *repo) Start(lc *lifecycle.Coordinator) error {
	r.logger.Info("starting evidence register")

	lc.OnStartup(func() {
		if _, err := r.db.ExecContext(lc.Context(), schema); err != nil {
			r.logger.Error("evidence schema bootstrap failed", "error", err)
			return
		}
		r.logger.Info("evidence register ready")
	})

	return nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Item, error) {
	if len(cmd.Data) == 0 {
		return nil, ErrInvalidFile
	}

	id := uuid.New()
	key := buildStorageKey(cmd.SessionID, id, sanitizeFilename(cmd.Filename))
	digest := sha256.Sum256(cmd.Data)

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("stage evidence blob: %w", err)
	}

	item := &Item{
		ID:          id,
		SessionID:   cmd.SessionID,
		Filename:    cmd.Filename,
		ContentType: cmd.ContentType,
		SizeBytes:   int64(len(cmd.Data)),
		SHA256:      hex.EncodeToString(digest[:]),
		PageCount:   cmd.PageCount,
		StorageKey:  key,
		CreatedAt:   time.Now().UTC(),
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO evidence(id, session_id, filename, content_type, size_bytes, sha256, page_count, storage_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID.String(), item.SessionID.String(), item.Filename, item.ContentType,
		item.SizeBytes, item.SHA256, item.PageCount, item.StorageKey,
		item.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if seq, err := res.LastInsertId(); err == nil {
		item.Seq = seq
	}

	r.logger.Info("evidence registered", "id", item.ID, "session_id", item.SessionID, "filename", item.Filename)
	return item, nil
}

func (r *repo) List(ctx context.Context, sessionID uuid.UUID) ([]Item, error) {
	q := `SELECT seq, id, session_id, filename, content_type, size_bytes, sha256, page_count, storage_key, cleansed, created_at
		FROM evidence WHERE session_id = ? ORDER BY seq`

	items, err := repository.QueryMany(ctx, r.db, q, []any{sessionID.String()}, scanItem)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	return items, nil
}

func (r *repo) Count(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM evidence WHERE session_id = ?",
		sessionID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count evidence: %w", err)
	}
	return count, nil
}

func (r *repo) Download(ctx context.Context, id uuid.UUID) (*Item, []byte, error) {
	q := `SELECT seq, id, session_id, filename, content_type, size_bytes, sha256, page_count, storage_key, cleansed, created_at
		FROM evidence WHERE id = ?`

	item, err := repository.QueryOne(ctx, r.db, q, []any{id.String()}, scanItem)
	if err != nil {
		return nil, nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	reader, err := r.storage.Download(ctx, item.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("download evidence blob: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("read evidence blob: %w", err)
	}

	return &item, data, nil
}

func buildStorageKey(sessionID, id uuid.UUID, filename string) string {
	return fmt.Sprintf("sessions/%s/evidence/%s/%s", sessionID, id, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "evidence"
	}
	return url.PathEscape(name)
}

func scanItem(s repository.Scanner) (Item, error) {
	var (
		item        Item
		id, session string
		created     string
	)
	if err := s.Scan(
		&item.Seq, &id, &session, &item.Filename, &item.ContentType,
		&item.SizeBytes, &item.SHA256, &item.PageCount, &item.StorageKey,
		&item.Cleansed, &created,
	); err != nil {
		return Item{}, err
	}

	itemID, err := uuid.Parse(id)
	if err != nil {
		return Item{}, fmt.Errorf("parse evidence id: %w", err)
	}
	sessionID, err := uuid.Parse(session)
	if err != nil {
		return Item{}, fmt.Errorf("parse evidence session id: %w", err)
	}

	item.ID = itemID
	item.SessionID = sessionID
	item.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return item, nil
}
