package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToDomainErrorKeepsWrappedDomainError(t *testing.T) {
	base := NewValidationError("ticket_id required", nil)
	wrapped := fmt.Errorf("decode webhook: %w", base)

	got := ToDomainError(wrapped)
	if got.Code != CodeValidationFailed {
		t.Fatalf("expected %s, got %s", CodeValidationFailed, got.Code)
	}
	if got.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", got.HTTPStatus)
	}
}

func TestToDomainErrorMapsUnknownToInternal(t *testing.T) {
	got := ToDomainError(errors.New("boom"))
	if got.Code != CodeInternal || got.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected mapping: %+v", got)
	}
	if ToDomainError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestHasCode(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("classify: %w", NewClassifierUnavailable(cause))

	if !HasCode(err, CodeClassifierUnavailable) {
		t.Fatal("expected classifier code")
	}
	if HasCode(err, CodeResolverFailed) {
		t.Fatal("unexpected resolver code")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be preserved")
	}
}

func TestNewNotFound(t *testing.T) {
	got := ToDomainError(NewNotFound("route", nil))
	if got.Code != CodeNotFound || got.HTTPStatus != http.StatusNotFound || got.Message != "route not found" {
		t.Fatalf("unexpected error: %+v", got)
	}
	if got.Details == nil {
		t.Fatal("expected empty details map")
	}
}

func TestNewAuthenticationFailure(t *testing.T) {
	got := ToDomainError(NewAuthenticationFailure("invalid token"))
	if got.Code != CodeAuthenticationFailed || got.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("unexpected error: %+v", got)
	}
}
