package cases

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNextCaseID(t *testing.T) {
	tests := []struct {
		name        string
		maxExisting string
		want        string
	}{
		{"empty store", "", "BCN100000000001"},
		{"increments max", "BCN100000000005", "BCN100000000006"},
		{"unparsable falls back to floor", "garbage", "BCN100000000001"},
		{"wrong prefix falls back to floor", "XYZ100000000001", "BCN100000000001"},
		{"below floor snaps to floor", "BCN000000000005", "BCN100000000001"},
		{"preserves fixed width", "BCN999999999998", "BCN999999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextCaseID(tt.maxExisting)
			if got != tt.want {
				t.Errorf("nextCaseID(%q) = %q, want %q", tt.maxExisting, got, tt.want)
			}
			if !ValidCaseID(got) {
				t.Errorf("nextCaseID(%q) = %q, not a valid case id", tt.maxExisting, got)
			}
		})
	}
}

func TestValidCaseID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"BCN100000000001", true},
		{"BCN000000000000", true},
		{"bcn100000000001", false},
		{"BCN1000000000001", false},
		{"BCN10000000001", false},
		{"BCN10000000000a", false},
		{"100000000001", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidCaseID(tt.id); got != tt.want {
			t.Errorf("ValidCaseID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestMintSecretKey(t *testing.T) {
	key, hash, err := mintSecretKey()
	if err != nil {
		t.Fatalf("mintSecretKey failed: %v", err)
	}

	if key == "" || hash == "" {
		t.Fatal("minted empty key or hash")
	}
	if strings.ContainsAny(key, "+/=") {
		t.Errorf("key %q is not url-safe", key)
	}

	c := &Case{SecretKeyHash: hash}
	if !verifySecretKey(c, key) {
		t.Error("minted key does not verify against its own hash")
	}
	if verifySecretKey(c, key+"x") {
		t.Error("altered key verified against hash")
	}
}

func TestVerifySecretKey(t *testing.T) {
	_, hash, err := mintSecretKey()
	if err != nil {
		t.Fatalf("mintSecretKey failed: %v", err)
	}

	tests := []struct {
		name      string
		c         Case
		presented string
		want      bool
	}{
		{"plain fallback match", Case{SecretKey: "plain-key"}, "plain-key", true},
		{"plain fallback mismatch", Case{SecretKey: "plain-key"}, "other", false},
		{"empty presented key", Case{SecretKey: "plain-key"}, "", false},
		{"no stored credentials", Case{}, "anything", false},
		{"bad hash falls through to plain", Case{SecretKeyHash: hash, SecretKey: "plain-key"}, "plain-key", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := verifySecretKey(&tt.c, tt.presented); got != tt.want {
				t.Errorf("verifySecretKey = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncateError(t *testing.T) {
	long := strings.Repeat("x", maxErrorLength+50)

	if got := truncateError(long); len(got) != maxErrorLength {
		t.Errorf("len = %d, want %d", len(got), maxErrorLength)
	}
	if got := truncateError("short"); got != "short" {
		t.Errorf("truncateError(short) = %q, want unchanged", got)
	}

	// a multibyte rune straddling the cut must not be split
	multibyte := strings.Repeat("x", maxErrorLength-1) + strings.Repeat("世", 20)
	got := truncateError(multibyte)
	if len(got) > maxErrorLength {
		t.Errorf("len = %d, want <= %d", len(got), maxErrorLength)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncateError produced invalid UTF-8: %q", got[len(got)-4:])
	}
}
