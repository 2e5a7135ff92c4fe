package evidence

import (
	"errors"
	"net/http"
)

// Domain errors for evidence operations.
var (
	ErrNotFound     = errors.New("evidence not found")
	ErrDuplicate    = errors.New("evidence already registered")
	ErrInvalidFile  = errors.New("invalid or missing file")
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
)

// MapHTTPStatus maps evidence domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidFile) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
