// Package analysis implements the Phase 2 credibility pipeline for Beacon:
// the background worker that assembles a submitted session's conversation and
// evidence, obtains a scored assessment from the language-model collaborator,
// and commits it to the case store behind a strict validation gate. A failed
// or rejected run records the error and leaves the case pending; it never
// partially applies.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/beaconhq/beacon/internal/cases"
	"github.com/beaconhq/beacon/internal/extractor"
)

// insufficientSummary is the collaborator's giving-up sentinel. A summary
// equal to it fails validation.
const insufficientSummary = "insufficient information"

// forbiddenFragments are placeholder substrings that must never reach
// authority-facing text.
var forbiddenFragments = []string{
	"insert summary here",
	"system error",
}

// requiredDimensions are the sub-dimension keys a breakdown must carry.
var requiredDimensions = []string{
	"completeness", "consistency", "evidence", "tone",
	"temporal", "corroboration", "cooperation", "penalties",
}

// buildBreakdown checks that every required dimension is present and maps the
// raw payload onto the stored structure.
func buildBreakdown(raw map[string]int) (cases.Breakdown, error) {
	for _, key := range requiredDimensions {
		if _, ok := raw[key]; !ok {
			return cases.Breakdown{}, fmt.Errorf("breakdown missing dimension %q", key)
		}
	}

	return cases.Breakdown{
		Completeness:  raw["completeness"],
		Consistency:   raw["consistency"],
		Evidence:      raw["evidence"],
		Tone:          raw["tone"],
		Temporal:      raw["temporal"],
		Corroboration: raw["corroboration"],
		Cooperation:   raw["cooperation"],
		Penalties:     raw["penalties"],
	}, nil
}

// Assessment is the collaborator's scored output, pre-validation.
type Assessment struct {
	IncidentSummary  string          `json:"incident_summary"`
	AuthoritySummary string          `json:"authority_summary"`
	Score            int             `json:"credibility_score"`
	Breakdown        cases.Breakdown `json:"breakdown"`
}

// Assessor produces a credibility assessment from conversation history and
// evidence descriptions.
type Assessor interface {
	Assess(ctx context.Context, history []extractor.Message, evidenceNotes []string) (*Assessment, error)
}

// Validate applies the commit gate: score in [1, 100], non-empty summaries,
// no giving-up sentinel, and no placeholder fragments in any authority-facing
// text. A rejected assessment is treated exactly like a collaborator failure.
func Validate(a *Assessment) error {
	if a == nil {
		return fmt.Errorf("nil assessment")
	}

	if a.Score < 1 || a.Score > 100 {
		return fmt.Errorf("score %d outside valid range", a.Score)
	}

	summary := strings.TrimSpace(a.IncidentSummary)
	if summary == "" {
		return fmt.Errorf("empty incident summary")
	}
	if strings.EqualFold(summary, insufficientSummary) {
		return fmt.Errorf("summary reports insufficient information")
	}

	for _, text := range []string{a.IncidentSummary, a.AuthoritySummary} {
		lowered := strings.ToLower(text)
		for _, fragment := range forbiddenFragments {
			if strings.Contains(lowered, fragment) {
				return fmt.Errorf("placeholder fragment %q in assessment text", fragment)
			}
		}
	}

	return nil
}
