package cases

import (
	"context"

	"github.com/beaconhq/beacon/pkg/lifecycle"
	"github.com/beaconhq/beacon/pkg/pagination"
)

// System defines the public contract for case domain operations.
type System interface {
	Handler() *Handler

	Start(lc *lifecycle.Coordinator) error

	// Submit performs the Phase 1 intake commit: freezes the evidence
	// manifest, mints the next case identifier and a secret key, and inserts
	// the case row with analysis pending. At most one case can ever exist for
	// a session; a second submission fails with ErrDuplicate.
	Submit(ctx context.Context, cmd SubmitCommand) (*SubmitResult, error)

	Find(ctx context.Context, caseID string) (*Case, error)
	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Case], error)

	// Verify authenticates a presented secret key against a case. Unknown
	// case IDs and bad keys both return ErrInvalidCredentials.
	Verify(ctx context.Context, caseID, secretKey string) (*Case, error)

	// Track returns the reporter-facing case view after key verification.
	Track(ctx context.Context, caseID, secretKey string) (*TrackView, error)

	SetStatus(ctx context.Context, caseID, status string) error

	AddUpdate(ctx context.Context, caseID, rawUpdate, publicUpdate, updatedBy string) (*Update, error)
	Updates(ctx context.Context, caseID string) ([]Update, error)

	AddMessage(ctx context.Context, caseID, senderRole, content string) (*Message, error)
	Messages(ctx context.Context, caseID string) ([]Message, error)

	// CompleteAnalysis writes the validated Phase 2 result. The update is
	// guarded on analysis_status = pending: a case that already committed its
	// analysis is never overwritten, and the call fails with
	// ErrAnalysisCommitted.
	CompleteAnalysis(ctx context.Context, caseID string, result *AnalysisResult) error

	// RecordAnalysisFailure increments the attempt counter and stores a
	// truncated error message, leaving analysis fields and status untouched.
	RecordAnalysisFailure(ctx context.Context, caseID, errMsg string) error
}
