package cases

import (
	"errors"
	"net/http"
)

// Domain errors for case operations. ErrInvalidCredentials deliberately covers
// both unknown case IDs and bad secret keys so the tracking surface never
// reveals whether a case exists.
var (
	ErrNotFound           = errors.New("case not found")
	ErrDuplicate          = errors.New("case already exists for session")
	ErrInvalidCredentials = errors.New("invalid case id or secret key")
	ErrAnalysisCommitted  = errors.New("analysis already committed")
)

// MapHTTPStatus maps case domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidCredentials) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrAnalysisCommitted) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
