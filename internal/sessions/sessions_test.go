package sessions_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/beaconhq/beacon/internal/sessions"
)

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", sessions.ErrNotFound, http.StatusNotFound},
		{"duplicate", sessions.ErrDuplicate, http.StatusConflict},
		{"invalid token", sessions.ErrInvalidToken, http.StatusUnauthorized},
		{"closed", sessions.ErrClosed, http.StatusBadRequest},
		{"stale facts", sessions.ErrStaleFacts, http.StatusConflict},
		{"unknown error", errors.New("something else"), http.StatusInternalServerError},
		{"wrapped invalid token", fmt.Errorf("auth failed: %w", sessions.ErrInvalidToken), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sessions.MapHTTPStatus(tt.err)
			if got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard bearer", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"missing header", "", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"scheme without token", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			if got := sessions.BearerToken(r); got != tt.want {
				t.Errorf("BearerToken = %q, want %q", got, tt.want)
			}
		})
	}
}
