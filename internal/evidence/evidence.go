// Package evidence implements the evidence register for Beacon: an append-only
// record of artifacts attached to an intake session, with the raw bytes staged
// into blob storage until the session is committed as a case.
package evidence

import (
	"time"

	"github.com/google/uuid"
)

// Item represents one registered evidence artifact with its metadata and blob
// storage reference. Seq reflects registration order within the ledger.
type Item struct {
	Seq         int64     `json:"seq"`
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	SHA256      string    `json:"sha256"`
	PageCount   *int      `json:"page_count"`
	StorageKey  string    `json:"storage_key"`
	Cleansed    bool      `json:"cleansed"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateCommand carries the data needed to stage and register a new evidence
// artifact. Data holds the raw file bytes. PageCount is optional and may be
// extracted by the caller via pdfcpu; nil values are stored as NULL.
type CreateCommand struct {
	SessionID   uuid.UUID
	Data        []byte
	Filename    string
	ContentType string
	PageCount   *int
}
