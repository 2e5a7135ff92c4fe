// Package cases implements the durable case domain for Beacon: the Phase 1
// fail-safe intake commit that mints a case from a submitted session, secret
// key verification for anonymous tracking, the post-submission update and
// message channel, and the analysis-field writes performed by the Phase 2
// worker. A case row is created exactly once per session; analysis fields are
// populated exactly once and never reverted.
package cases

import (
	"time"

	"github.com/google/uuid"
)

// Analysis lifecycle states.
const (
	AnalysisPending   = "pending"
	AnalysisCompleted = "completed"
)

// DefaultStatus is the operational status assigned at intake. It is free text
// and moves independently of the analysis lifecycle.
const DefaultStatus = "NEW"

// Sender roles for case messages.
const (
	MessageSenderReporter  = "reporter"
	MessageSenderAuthority = "authority"
)

// maxErrorLength bounds the stored analysis error message.
const maxErrorLength = 1000

// Case is the authoritative record for one submitted incident. SecretKey and
// SecretKeyHash never serialize; the plain copy exists only as a verification
// fallback when hash comparison fails.
type Case struct {
	ID                   uuid.UUID        `json:"id"`
	CaseID               string           `json:"case_id"`
	SessionID            uuid.UUID        `json:"session_id"`
	SecretKeyHash        string           `json:"-"`
	SecretKey            string           `json:"-"`
	Status               string           `json:"status"`
	ReportedAt           time.Time        `json:"reported_at"`
	EvidenceManifest     []ManifestEntry  `json:"evidence_manifest"`
	IncidentSummary      *string          `json:"incident_summary"`
	AuthoritySummary     *string          `json:"authority_summary"`
	CredibilityScore     *int             `json:"credibility_score"`
	CredibilityBreakdown *Breakdown       `json:"credibility_breakdown"`
	AnalysisStatus       string           `json:"analysis_status"`
	AnalysisAttempts     int              `json:"analysis_attempts"`
	AnalysisLastError    *string          `json:"analysis_last_error,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// ManifestEntry is one frozen evidence artifact reference, copied from the
// session staging area at submission.
type ManifestEntry struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	SHA256      string `json:"sha256"`
	PageCount   *int   `json:"page_count,omitempty"`
	StorageKey  string `json:"storage_key"`
}

// Breakdown carries the credibility sub-dimension scores. Penalties is zero
// or negative; all other dimensions are non-negative.
type Breakdown struct {
	Completeness  int `json:"completeness"`
	Consistency   int `json:"consistency"`
	Evidence      int `json:"evidence"`
	Tone          int `json:"tone"`
	Temporal      int `json:"temporal"`
	Corroboration int `json:"corroboration"`
	Cooperation   int `json:"cooperation"`
	Penalties     int `json:"penalties"`
}

// Update is one append-only authority update on a case. RawUpdate is internal;
// only PublicUpdate is shown to the reporter on the tracking channel.
type Update struct {
	ID           uuid.UUID `json:"id"`
	CaseID       string    `json:"case_id"`
	RawUpdate    string    `json:"raw_update"`
	PublicUpdate string    `json:"public_update"`
	UpdatedBy    string    `json:"updated_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message is one entry in the two-way case communication channel.
type Message struct {
	ID         uuid.UUID `json:"id"`
	CaseID     string    `json:"case_id"`
	SenderRole string    `json:"sender_role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// SubmitCommand carries everything needed for the Phase 1 intake commit.
type SubmitCommand struct {
	SessionID uuid.UUID
	Manifest  []ManifestEntry
}

// SubmitResult is the outcome of a successful intake commit. SecretKey is the
// plain minted key, surfaced exactly once for substitution into the closing
// reply.
type SubmitResult struct {
	Case      *Case
	SecretKey string
}

// AnalysisResult carries the validated Phase 2 output for the one-shot
// analysis commit.
type AnalysisResult struct {
	IncidentSummary  string
	AuthoritySummary string
	Score            int
	Breakdown        Breakdown
}

// TrackView is the reporter-facing projection returned by the tracking
// endpoint after secret key verification.
type TrackView struct {
	Status          string         `json:"status"`
	ReportedAt      time.Time      `json:"reported_at"`
	IncidentSummary *string        `json:"incident_summary"`
	LastUpdated     time.Time      `json:"last_updated"`
	Updates         []PublicUpdate `json:"updates"`
	Messages        []Message      `json:"messages"`
}

// PublicUpdate is the reporter-visible slice of an Update.
type PublicUpdate struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
