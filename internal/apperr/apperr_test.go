package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err      error
		expected Kind
	}{
		{Unauthorized("no token"), KindUnauthorized},
		{Forbidden("admins only"), KindForbidden},
		{NotFound("no item with id %s", "7"), KindNotFound},
		{Validation("bad"), KindValidation},
		{Server("failed", errors.New("disk")), KindServer},
		{fmt.Errorf("wrapped: %w", Forbidden("x")), KindForbidden},
		{errors.New("plain"), KindServer},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.expected {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.expected)
		}
	}
}

func TestDetailHidesCause(t *testing.T) {
	err := Server("failed to save item", errors.New("sqlite: database is locked"))
	if got := DetailOf(err); got != "failed to save item" {
		t.Errorf("unexpected detail %q", got)
	}
	if got := DetailOf(errors.New("sql: no rows")); got != "internal error" {
		t.Errorf("expected generic detail for raw error, got %q", got)
	}
}

func TestStatus(t *testing.T) {
	if Status(KindNotFound) != http.StatusNotFound {
		t.Error("expected 404 for NotFound")
	}
	if Status(Kind("weird")) != http.StatusInternalServerError {
		t.Error("expected 500 for unknown kind")
	}
}
