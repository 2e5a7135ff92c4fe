// Package sessions implements the session ledger for Beacon: an append-only,
// ordered conversation log plus session metadata, held in the transient SQLite
// store. A session exists only until it is superseded by a durable case.
package sessions

import (
	"time"

	"github.com/google/uuid"

	"github.com/beaconhq/beacon/internal/facts"
)

// Sender roles for conversation turns.
const (
	SenderReporter  = "reporter"
	SenderAssistant = "assistant"
	SenderSystem    = "system"
)

// Session represents an active or submitted intake conversation.
// TokenHash is the SHA-256 of the access token handed to the reporter at
// session creation; the token itself is never stored.
type Session struct {
	ID        uuid.UUID   `json:"id"`
	TokenHash string      `json:"-"`
	Active    bool        `json:"active"`
	Submitted bool        `json:"submitted"`
	CaseID    *string     `json:"case_id"`
	Facts     facts.Store `json:"facts"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Turn is one conversation message. Seq reflects insertion order and is the
// ordering authority for history replay.
type Turn struct {
	Seq       int64     `json:"seq"`
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
