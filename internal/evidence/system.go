package evidence

import (
	"context"

	"github.com/google/uuid"

	"github.com/beaconhq/beacon/internal/sessions"
	"github.com/beaconhq/beacon/pkg/lifecycle"
)

// System defines the public contract for evidence register operations.
type System interface {
	Handler(auth sessions.System, maxUploadSize int64) *Handler

	// Start registers the schema bootstrap hook with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error

	// Create stages the artifact bytes into blob storage and registers the
	// item in the ledger. The SHA-256 digest is computed over the raw bytes.
	Create(ctx context.Context, cmd CreateCommand) (*Item, error)

	// List returns a session's evidence in registration order.
	List(ctx context.Context, sessionID uuid.UUID) ([]Item, error)

	// Count returns the number of items registered for a session.
	Count(ctx context.Context, sessionID uuid.UUID) (int, error)

	// Download streams the staged bytes for a single item.
	Download(ctx context.Context, id uuid.UUID) (*Item, []byte, error)
}
