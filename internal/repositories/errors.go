package repositories

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped in a BackendError) when an update targets a missing row.
var ErrNotFound = errors.New("row not found")

// BackendError wraps a failure of the backing store.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backendError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}

// RowError reports a row whose shape does not match the table schema.
type RowError struct {
	Table  string
	Field  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("invalid %s row: %s %s", e.Table, e.Field, e.Reason)
}
