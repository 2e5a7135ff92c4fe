package sessions

import (
	"errors"
	"net/http"
)

// Domain errors for session operations.
var (
	ErrNotFound     = errors.New("session not found")
	ErrDuplicate    = errors.New("session already exists")
	ErrInvalidToken = errors.New("invalid access token")
	ErrClosed       = errors.New("session is closed")
	ErrStaleFacts   = errors.New("fact snapshot is stale")
)

// MapHTTPStatus maps session domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidToken) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrClosed) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrStaleFacts) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
