package sessions

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	stamp := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

	got, err := parseTime(stamp.Format(time.RFC3339Nano))
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !got.Equal(stamp) {
		t.Errorf("parseTime = %v, want %v", got, stamp)
	}

	if _, err := parseTime("not-a-timestamp"); err == nil {
		t.Error("parseTime accepted malformed input, want error")
	}
	if _, err := parseTime(""); err == nil {
		t.Error("parseTime accepted empty input, want error")
	}
}
