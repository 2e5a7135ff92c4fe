package cases_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/beaconhq/beacon/internal/cases"
)

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", cases.ErrNotFound, http.StatusNotFound},
		{"duplicate", cases.ErrDuplicate, http.StatusConflict},
		{"invalid credentials", cases.ErrInvalidCredentials, http.StatusUnauthorized},
		{"analysis committed", cases.ErrAnalysisCommitted, http.StatusConflict},
		{"unknown error", errors.New("something else"), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("find failed: %w", cases.ErrNotFound), http.StatusNotFound},
		{"wrapped credentials", fmt.Errorf("track failed: %w", cases.ErrInvalidCredentials), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cases.MapHTTPStatus(tt.err)
			if got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
