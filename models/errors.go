package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrorKind classifies the recoverable failures of the clinic operations.
// Every kind is actionable by the caller; HTTP handlers map kinds to
// status codes.
type ErrorKind string

const (
	ErrInvalidWindow       ErrorKind = "invalid_window"
	ErrConflict            ErrorKind = "conflict"
	ErrInvalidTransition   ErrorKind = "invalid_transition"
	ErrInvalidLineItem     ErrorKind = "invalid_line_item"
	ErrInsufficientStock   ErrorKind = "insufficient_stock"
	ErrNotFound            ErrorKind = "not_found"
	ErrConcurrencyConflict ErrorKind = "concurrency_conflict"
	ErrStorage             ErrorKind = "storage_error"
)

type Error struct {
	Kind    ErrorKind
	Message string
	// ConflictIDs carries the blocking appointment ids for ErrConflict.
	ConflictIDs []int
	Err         error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(conflictIDs []int) *Error {
	ids := make([]string, len(conflictIDs))
	for i, id := range conflictIDs {
		ids[i] = fmt.Sprint(id)
	}
	return &Error{
		Kind:        ErrConflict,
		Message:     "appointment overlaps existing bookings: " + strings.Join(ids, ", "),
		ConflictIDs: conflictIDs,
	}
}

func WrapStorageError(err error) *Error {
	return &Error{Kind: ErrStorage, Message: "storage failure: " + err.Error(), Err: err}
}

// KindOf extracts the kind from any error in the chain, defaulting to
// ErrStorage for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrStorage
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

const (
	mysqlErrDeadlock        = 1213
	mysqlErrLockWaitTimeout = 1205
)

// IsRetryableTxError reports whether the error is a MySQL deadlock or
// lock-wait timeout. Such transactions are safe to retry from the top.
func IsRetryableTxError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDeadlock || mysqlErr.Number == mysqlErrLockWaitTimeout
	}
	return false
}

// ClassifyTxError turns a transaction failure into the typed taxonomy:
// retryable MySQL errors become ErrConcurrencyConflict, typed errors pass
// through, everything else is a storage failure.
func ClassifyTxError(err error) error {
	if err == nil {
		return nil
	}
	if IsRetryableTxError(err) {
		return &Error{Kind: ErrConcurrencyConflict, Message: "transaction conflicted, please retry", Err: err}
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return WrapStorageError(err)
}
