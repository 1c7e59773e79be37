package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.StatusCode() != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.StatusCode())
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   NotFound("Causa"),
			expected: "NOT_FOUND: Causa not found",
		},
		{
			name:     "with underlying error",
			appErr:   Internal("internal error", errors.New("connection reset")),
			expected: "INTERNAL_ERROR: internal error (caused by: connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	if !errors.Is(appErr, originalErr) {
		t.Errorf("errors.Is should find the original error")
	}
}

func TestAppError_StatusCodeDefaultsToInternal(t *testing.T) {
	appErr := &AppError{Code: CodeInternal, Message: "no status"}
	if appErr.StatusCode() != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", appErr.StatusCode())
	}
}

func TestNotFoundWithID(t *testing.T) {
	appErr := NotFoundWithID("Causa", "abc")
	if appErr.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", appErr.StatusCode())
	}
	if appErr.Details["id"] != "abc" || appErr.Details["resource"] != "Causa" {
		t.Errorf("unexpected details: %v", appErr.Details)
	}
}

func TestAsAppError(t *testing.T) {
	t.Run("direct app error", func(t *testing.T) {
		conflict := Conflict("already resolved")
		if got := AsAppError(conflict); got != conflict {
			t.Errorf("expected same AppError back")
		}
	})

	t.Run("wrapped app error", func(t *testing.T) {
		conflict := Conflict("already resolved")
		wrapped := fmt.Errorf("transaction failed: %w", conflict)
		if got := AsAppError(wrapped); got != conflict {
			t.Errorf("expected AppError to be found in the chain")
		}
		if !IsAppError(wrapped) {
			t.Errorf("IsAppError should see through wrapping")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		got := AsAppError(errors.New("boom"))
		if got.Code != CodeInternal || got.StatusCode() != http.StatusInternalServerError {
			t.Errorf("expected internal error, got %+v", got)
		}
	})
}
