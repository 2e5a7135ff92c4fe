package analysis

import (
	"strings"
	"testing"

	"github.com/beaconhq/beacon/internal/cases"
)

func validAssessment() *Assessment {
	return &Assessment{
		IncidentSummary:  "A warehouse supervisor reports recurring equipment theft.",
		AuthoritySummary: "Theft of power tools from the 5th street warehouse over three weeks.",
		Score:            72,
		Breakdown: cases.Breakdown{
			Completeness:  15,
			Consistency:   12,
			Evidence:      20,
			Tone:          8,
			Temporal:      7,
			Corroboration: 6,
			Cooperation:   4,
			Penalties:     0,
		},
	}
}

func TestValidateAcceptsCompleteAssessment(t *testing.T) {
	if err := Validate(validAssessment()); err != nil {
		t.Errorf("Validate rejected a complete assessment: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Assessment)
		wantErr string
	}{
		{
			name:    "score below range",
			mutate:  func(a *Assessment) { a.Score = 0 },
			wantErr: "outside valid range",
		},
		{
			name:    "score above range",
			mutate:  func(a *Assessment) { a.Score = 101 },
			wantErr: "outside valid range",
		},
		{
			name:    "empty incident summary",
			mutate:  func(a *Assessment) { a.IncidentSummary = "   " },
			wantErr: "empty incident summary",
		},
		{
			name:    "giving-up sentinel",
			mutate:  func(a *Assessment) { a.IncidentSummary = "Insufficient Information" },
			wantErr: "insufficient information",
		},
		{
			name:    "placeholder in incident summary",
			mutate:  func(a *Assessment) { a.IncidentSummary = "Please INSERT SUMMARY HERE before filing." },
			wantErr: "placeholder fragment",
		},
		{
			name:    "placeholder in authority summary",
			mutate:  func(a *Assessment) { a.AuthoritySummary = "system error while generating" },
			wantErr: "placeholder fragment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAssessment()
			tt.mutate(a)

			err := Validate(a)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateNilAssessment(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("expected error for nil assessment")
	}
}

func TestBuildBreakdown(t *testing.T) {
	raw := map[string]int{
		"completeness":  15,
		"consistency":   12,
		"evidence":      20,
		"tone":          8,
		"temporal":      7,
		"corroboration": 6,
		"cooperation":   4,
		"penalties":     -5,
	}

	b, err := buildBreakdown(raw)
	if err != nil {
		t.Fatalf("buildBreakdown failed: %v", err)
	}
	if b.Evidence != 20 {
		t.Errorf("Evidence = %d, want 20", b.Evidence)
	}
	if b.Penalties != -5 {
		t.Errorf("Penalties = %d, want -5", b.Penalties)
	}
}

func TestBuildBreakdownMissingDimension(t *testing.T) {
	raw := map[string]int{
		"completeness": 15,
		"consistency":  12,
	}

	_, err := buildBreakdown(raw)
	if err == nil {
		t.Fatal("expected error for missing dimensions")
	}
	if !strings.Contains(err.Error(), "missing dimension") {
		t.Errorf("error %q does not name the missing dimension", err.Error())
	}
}
