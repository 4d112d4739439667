package models_test

import (
	"errors"
	"fmt"
	"testing"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
	"github.com/go-sql-driver/mysql"
)

func TestClassifyTxError(t *testing.T) {
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	classified := models.ClassifyTxError(deadlock)
	if !models.IsKind(classified, models.ErrConcurrencyConflict) {
		t.Fatalf("deadlock classified as %v, want concurrency conflict", models.KindOf(classified))
	}

	timeout := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
	if !models.IsRetryableTxError(timeout) {
		t.Fatalf("1205 should be retryable")
	}

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	if models.IsRetryableTxError(dup) {
		t.Fatalf("1062 must not be retryable")
	}
	if !models.IsKind(models.ClassifyTxError(dup), models.ErrStorage) {
		t.Fatalf("1062 should classify as storage error")
	}

	// Typed errors pass through unchanged, even wrapped.
	typed := models.NewError(models.ErrInsufficientStock, "out of stock")
	wrapped := fmt.Errorf("tx failed: %w", typed)
	if !models.IsKind(models.ClassifyTxError(wrapped), models.ErrInsufficientStock) {
		t.Fatalf("typed error lost through classification")
	}

	if models.ClassifyTxError(nil) != nil {
		t.Fatalf("nil must classify to nil")
	}
}

func TestConflictErrorCarriesIds(t *testing.T) {
	err := models.NewConflictError([]int{4, 9})
	var typed *models.Error
	if !errors.As(err, &typed) {
		t.Fatalf("NewConflictError did not produce *models.Error")
	}
	if typed.Kind != models.ErrConflict {
		t.Fatalf("kind=%s, want conflict", typed.Kind)
	}
	if len(typed.ConflictIDs) != 2 || typed.ConflictIDs[0] != 4 || typed.ConflictIDs[1] != 9 {
		t.Fatalf("ids=%v, want [4 9]", typed.ConflictIDs)
	}
}
