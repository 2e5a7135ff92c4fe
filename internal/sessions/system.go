package sessions

import (
	"context"

	"github.com/google/uuid"

	"github.com/beaconhq/beacon/pkg/lifecycle"
)

// System defines the public contract for session ledger operations.
type System interface {
	Handler() *Handler

	// Start registers the schema bootstrap hook with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error

	// Create mints a new session and returns it along with the one-time
	// access token. Only the token's hash is persisted.
	Create(ctx context.Context) (*Session, string, error)

	Find(ctx context.Context, id uuid.UUID) (*Session, error)

	// Authenticate finds a session and verifies the presented access token
	// against the stored hash. Returns ErrInvalidToken on mismatch.
	Authenticate(ctx context.Context, id uuid.UUID, token string) (*Session, error)

	AppendTurn(ctx context.Context, sessionID uuid.UUID, sender, content string) (*Turn, error)
	Turns(ctx context.Context, sessionID uuid.UUID) ([]Turn, error)

	// SaveFacts persists the fact store snapshot for a session. The write is
	// guarded by an optimistic version check: it fails with ErrStaleFacts if
	// the stored snapshot has moved past the one the caller read.
	SaveFacts(ctx context.Context, sessionID uuid.UUID, snapshot *SaveFactsCommand) error

	// MarkSubmitted flips the session to submitted/inactive and records the
	// minted case identifier.
	MarkSubmitted(ctx context.Context, sessionID uuid.UUID, caseID string) error
}
