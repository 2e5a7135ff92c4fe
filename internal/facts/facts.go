// Package facts implements the fact store for an intake session: a monotonic
// key→value merge structure holding everything confidently extracted about one
// incident so far. Confirmed facts are never erased by a later empty or
// placeholder extraction.
package facts

import (
	"maps"
	"strings"
)

// Recognized field names. Extraction payloads carrying any other key are
// rejected rather than silently persisted.
const (
	FieldWhat     = "what"
	FieldStory    = "story"
	FieldWhere    = "where"
	FieldWhen     = "when"
	FieldWho      = "who"
	FieldEvidence = "evidence"
	FieldContact  = "contact"
	FieldNotes    = "notes"
)

var knownFields = map[string]bool{
	FieldWhat:     true,
	FieldStory:    true,
	FieldWhere:    true,
	FieldWhen:     true,
	FieldWho:      true,
	FieldEvidence: true,
	FieldContact:  true,
	FieldNotes:    true,
}

// placeholders are candidate values that never overwrite anything.
var placeholders = map[string]bool{
	"":        true,
	"...":     true,
	"unknown": true,
	"none":    true,
	"n/a":     true,
}

// Store is the versioned fact snapshot carried through the turn coordinator.
// Version increments on every applied merge so concurrent writers can detect
// stale snapshots with an optimistic check.
type Store struct {
	Fields            map[string]string `json:"fields"`
	EvidenceWatermark int               `json:"evidence_watermark"`
	Version           int               `json:"version"`
}

// New creates an empty Store.
func New() *Store {
	return &Store{Fields: map[string]string{}}
}

// Get returns the value for a field, or "" if unset.
func (s *Store) Get(field string) string {
	return s.Fields[field]
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{
		Fields:            make(map[string]string, len(s.Fields)),
		EvidenceWatermark: s.EvidenceWatermark,
		Version:           s.Version,
	}
	maps.Copy(c.Fields, s.Fields)
	return c
}

// Result reports the outcome of a merge pass.
type Result struct {
	Applied  []string
	Shielded []string
	Unknown  []string
}

// Changed reports whether the merge applied at least one field.
func (r Result) Changed() bool {
	return len(r.Applied) > 0
}

// Merge folds an extraction payload into the store under the fact-shield rule:
//
//   - placeholder candidates ("", "unknown", "none", ...) never overwrite
//   - a superset of the existing value replaces it (expansion)
//   - a substring of the existing value is discarded (contraction)
//   - an unrelated non-empty value replaces it (correction)
//
// Unknown keys are reported and not persisted. The version increments once
// when any field changed.
func (s *Store) Merge(candidate map[string]string) Result {
	var res Result

	for key, value := range candidate {
		if !knownFields[key] {
			res.Unknown = append(res.Unknown, key)
			continue
		}

		value = strings.TrimSpace(value)
		if placeholders[strings.ToLower(value)] {
			res.Shielded = append(res.Shielded, key)
			continue
		}

		existing := s.Fields[key]
		if existing == value {
			continue
		}

		if existing != "" && contains(existing, value) {
			// shorter, contained candidate: keep the confirmed value
			res.Shielded = append(res.Shielded, key)
			continue
		}

		s.Fields[key] = value
		res.Applied = append(res.Applied, key)
	}

	if res.Changed() {
		s.Version++
	}
	return res
}

// AdvanceWatermark raises the evidence watermark to n if it is higher than the
// current value and bumps the version. Returns true when the watermark moved.
func (s *Store) AdvanceWatermark(n int) bool {
	if n <= s.EvidenceWatermark {
		return false
	}
	s.EvidenceWatermark = n
	s.Version++
	return true
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
