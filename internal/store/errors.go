package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/taskvault/taskvault/internal/model"
)

// Error carries the operation and table alongside the taxonomy error so store
// failures stay diagnosable without leaking SQL to the HTTP boundary.
type Error struct {
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("store: %s", e.Op))

	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}

	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ParsePostgresError converts driver errors into the taxonomy of
// internal/model so callers can branch with errors.Is.
func ParsePostgresError(err error, op, table string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Op: op, Table: table, Err: model.ErrNotFound}
	}

	errStr := err.Error()

	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return &Error{Op: op, Table: table, Err: model.ErrConflict}
	}

	if strings.Contains(errStr, "violates foreign key constraint") {
		return &Error{Op: op, Table: table, Err: model.ErrNotFound}
	}

	if strings.Contains(errStr, "violates not-null constraint") ||
		strings.Contains(errStr, "violates check constraint") {
		return &Error{Op: op, Table: table, Err: model.Validation(table, "constraint violation")}
	}

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "context deadline exceeded") {
		return &Error{Op: op, Table: table, Err: fmt.Errorf("%w: %v", model.ErrUpstream, err)}
	}

	return &Error{Op: op, Table: table, Err: err}
}
