package cases

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Case identifier format: prefix + fixed-width numeric suffix. Fixed width
// keeps lexical MAX() equivalent to numeric MAX() in the store.
const (
	caseIDPrefix = "BCN"
	caseIDDigits = 12
	caseIDFloor  = 100000000001
)

var caseIDRegex = regexp.MustCompile(`^BCN(\d{12})$`)

// ValidCaseID reports whether s matches the canonical case identifier format.
func ValidCaseID(s string) bool {
	return caseIDRegex.MatchString(s)
}

// nextCaseID derives the next identifier from the current maximum. An empty
// or unparsable maximum falls back to the floor, as does any suffix below it.
func nextCaseID(maxExisting string) string {
	next := int64(caseIDFloor)

	if m := caseIDRegex.FindStringSubmatch(maxExisting); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && n+1 > caseIDFloor {
			next = n + 1
		}
	}

	return fmt.Sprintf("%s%0*d", caseIDPrefix, caseIDDigits, next)
}

// mintSecretKey generates a url-safe secret key and its bcrypt hash.
func mintSecretKey() (key, hash string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("mint secret key: %w", err)
	}
	key = base64.RawURLEncoding.EncodeToString(raw)

	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash secret key: %w", err)
	}

	return key, string(hashed), nil
}

// verifySecretKey checks a presented key against the stored bcrypt hash, with
// the recoverable plain copy as the fallback path when no hash is stored or
// comparison errors.
func verifySecretKey(c *Case, presented string) bool {
	if presented == "" {
		return false
	}

	if c.SecretKeyHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(c.SecretKeyHash), []byte(presented)); err == nil {
			return true
		}
	}

	if c.SecretKey != "" {
		return subtle.ConstantTimeCompare([]byte(c.SecretKey), []byte(presented)) == 1
	}

	return false
}

// truncateError bounds an analysis error message for storage, cutting on a
// rune boundary so the stored text stays valid UTF-8.
func truncateError(msg string) string {
	if len(msg) <= maxErrorLength {
		return msg
	}

	cut := maxErrorLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
