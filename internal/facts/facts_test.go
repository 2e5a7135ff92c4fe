package facts_test

import (
	"testing"

	"github.com/beaconhq/beacon/internal/facts"
)

func TestMergeAppliesNewFields(t *testing.T) {
	s := facts.New()

	res := s.Merge(map[string]string{
		"what":  "equipment theft",
		"where": "the warehouse on 5th",
	})

	if len(res.Applied) != 2 {
		t.Errorf("Applied = %v, want 2 fields", res.Applied)
	}
	if s.Get("what") != "equipment theft" {
		t.Errorf("what = %q, want %q", s.Get("what"), "equipment theft")
	}
	if s.Version != 1 {
		t.Errorf("Version = %d, want 1", s.Version)
	}
}

func TestMergeVersionBumpsOncePerPass(t *testing.T) {
	s := facts.New()

	s.Merge(map[string]string{
		"what":  "theft",
		"where": "warehouse",
		"when":  "last Tuesday",
	})

	if s.Version != 1 {
		t.Errorf("Version = %d, want 1 after multi-field merge", s.Version)
	}
}

func TestMergeShieldsPlaceholders(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
	}{
		{"empty", ""},
		{"ellipsis", "..."},
		{"unknown", "unknown"},
		{"unknown uppercase", "Unknown"},
		{"none", "none"},
		{"n/a", "N/A"},
		{"whitespace only", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := facts.New()
			s.Merge(map[string]string{"who": "the night supervisor"})

			res := s.Merge(map[string]string{"who": tt.candidate})

			if res.Changed() {
				t.Errorf("placeholder %q applied, want shielded", tt.candidate)
			}
			if s.Get("who") != "the night supervisor" {
				t.Errorf("who = %q, confirmed value was overwritten", s.Get("who"))
			}
		})
	}
}

func TestMergeShieldsContainedSubstring(t *testing.T) {
	s := facts.New()
	s.Merge(map[string]string{"where": "the warehouse on 5th street"})
	v := s.Version

	res := s.Merge(map[string]string{"where": "warehouse"})

	if res.Changed() {
		t.Error("contained substring applied, want shielded")
	}
	if len(res.Shielded) != 1 || res.Shielded[0] != "where" {
		t.Errorf("Shielded = %v, want [where]", res.Shielded)
	}
	if s.Get("where") != "the warehouse on 5th street" {
		t.Errorf("where = %q, confirmed value was contracted", s.Get("where"))
	}
	if s.Version != v {
		t.Errorf("Version = %d, want unchanged %d", s.Version, v)
	}
}

func TestMergeAppliesSuperset(t *testing.T) {
	s := facts.New()
	s.Merge(map[string]string{"where": "warehouse"})

	res := s.Merge(map[string]string{"where": "the warehouse on 5th street"})

	if !res.Changed() {
		t.Fatal("superset shielded, want applied")
	}
	if s.Get("where") != "the warehouse on 5th street" {
		t.Errorf("where = %q, want expanded value", s.Get("where"))
	}
}

func TestMergeAppliesCorrection(t *testing.T) {
	s := facts.New()
	s.Merge(map[string]string{"when": "last Tuesday"})

	res := s.Merge(map[string]string{"when": "two weeks ago"})

	if !res.Changed() {
		t.Fatal("correction shielded, want applied")
	}
	if s.Get("when") != "two weeks ago" {
		t.Errorf("when = %q, want corrected value", s.Get("when"))
	}
}

func TestMergeIgnoresIdenticalValue(t *testing.T) {
	s := facts.New()
	s.Merge(map[string]string{"what": "theft"})
	v := s.Version

	res := s.Merge(map[string]string{"what": "theft"})

	if res.Changed() {
		t.Error("identical value reported as applied")
	}
	if s.Version != v {
		t.Errorf("Version = %d, want unchanged %d", s.Version, v)
	}
}

func TestMergeRejectsUnknownKeys(t *testing.T) {
	s := facts.New()

	res := s.Merge(map[string]string{"severity": "high", "what": "theft"})

	if len(res.Unknown) != 1 || res.Unknown[0] != "severity" {
		t.Errorf("Unknown = %v, want [severity]", res.Unknown)
	}
	if s.Get("severity") != "" {
		t.Error("unknown key was persisted")
	}
	if s.Get("what") != "theft" {
		t.Error("known key in same pass was not persisted")
	}
}

func TestAdvanceWatermark(t *testing.T) {
	s := facts.New()

	if !s.AdvanceWatermark(2) {
		t.Fatal("AdvanceWatermark(2) = false, want true")
	}
	if s.EvidenceWatermark != 2 {
		t.Errorf("EvidenceWatermark = %d, want 2", s.EvidenceWatermark)
	}
	if s.Version != 1 {
		t.Errorf("Version = %d, want 1", s.Version)
	}

	if s.AdvanceWatermark(1) {
		t.Error("AdvanceWatermark(1) = true, watermark regressed")
	}
	if s.AdvanceWatermark(2) {
		t.Error("AdvanceWatermark(2) = true on equal value")
	}
	if s.EvidenceWatermark != 2 {
		t.Errorf("EvidenceWatermark = %d, want 2", s.EvidenceWatermark)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := facts.New()
	s.Merge(map[string]string{"what": "theft"})

	c := s.Clone()
	c.Merge(map[string]string{"what": "fraud and theft", "who": "a manager"})

	if s.Get("who") != "" {
		t.Error("clone write leaked into original")
	}
	if s.Get("what") != "theft" {
		t.Errorf("original what = %q, want %q", s.Get("what"), "theft")
	}
	if c.Get("what") != "fraud and theft" {
		t.Errorf("clone what = %q, want %q", c.Get("what"), "fraud and theft")
	}
}
