package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestStoreClassifiesDeadlineExceededAsTimeout(t *testing.T) {
	err := Store("equipment.list", "query_failed", context.DeadlineExceeded)
	if err.Kind() != KindStoreTimeout {
		t.Fatalf("expected KindStoreTimeout, got %d", err.Kind())
	}
	if KindOf(err) != KindStoreTimeout {
		t.Fatalf("KindOf lost the timeout classification")
	}
}

func TestStoreClassifiesWrappedDeadlineExceeded(t *testing.T) {
	wrapped := fmt.Errorf("select equipment: %w", context.DeadlineExceeded)
	err := Store("equipment.get", "select_failed", wrapped)
	if err.Kind() != KindStoreTimeout {
		t.Fatalf("expected KindStoreTimeout for wrapped deadline, got %d", err.Kind())
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the cause to stay reachable through Unwrap")
	}
}

func TestStoreDefaultsToStoreError(t *testing.T) {
	err := Store("equipment.create", "insert_failed", errors.New("disk full"))
	if err.Kind() != KindStoreError {
		t.Fatalf("expected KindStoreError, got %d", err.Kind())
	}
	// Cancellation is the caller giving up, not the store timing out.
	canceled := Store("equipment.create", "insert_failed", context.Canceled)
	if canceled.Kind() != KindStoreError {
		t.Fatalf("expected KindStoreError for cancellation, got %d", canceled.Kind())
	}
}

func TestKindOfDefaultsForUntypedErrors(t *testing.T) {
	if KindOf(errors.New("plain")) != KindStoreError {
		t.Fatalf("expected KindStoreError for untyped errors")
	}
}

func TestValidationCarriesFieldsAndCode(t *testing.T) {
	err := Validation("equipment.create", []string{"name", "serial_number"})
	if err.Kind() != KindValidation {
		t.Fatalf("expected KindValidation, got %d", err.Kind())
	}
	if err.Code() != "equipment.create.validation_failed" {
		t.Fatalf("unexpected code: %s", err.Code())
	}
	if len(err.Fields()) != 2 {
		t.Fatalf("expected both fields named, got %v", err.Fields())
	}
}
