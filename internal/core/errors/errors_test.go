package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "document not found")
		if err.Error() != "[NOT_FOUND] document not found" {
			t.Errorf("expected [NOT_FOUND] document not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("disk full")
		err := Wrap(original, CodeInternal, "save failed")
		expected := "[INTERNAL_ERROR] save failed: disk full"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected Wrap to keep the original error in the chain")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeOutOfBounds, "cell outside grid")
		if !IsCode(err, CodeOutOfBounds) {
			t.Error("expected IsCode to return true for CodeOutOfBounds")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("edit: %w", New(CodeValidationError, "bad ref"))
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to see through fmt wrapping")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(New(CodeOutOfBounds, "cell outside grid"), CtxCell, "99,0")
		if err.Error() != "[OUT_OF_BOUNDS] cell outside grid map[cell:99,0]" {
			t.Errorf("unexpected message %q", err.Error())
		}

		plain := AddContext(errors.New("boom"), CtxPath, "a.toml")
		if !IsCode(plain, CodeInternal) {
			t.Error("expected plain errors to be wrapped as internal")
		}
	})
}
