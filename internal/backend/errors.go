package backend

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	// CodeNotFound is returned when a single row was expected and none matched.
	CodeNotFound            = "not_found"
	CodeConstraintViolation = "constraint_violation"
	CodeInvalidQuery        = "invalid_query"
	CodeUnavailable         = "unavailable"
	CodeProcedureNotFound   = "procedure_not_found"
)

// Error is the failure reported by the backend for a table operation or
// procedure call.
type Error struct {
	Code    string
	Message string
	Table   string
	Err     error
}

func (e *Error) Error() string {
	prefix := "backend"
	if e.Table != "" {
		prefix = fmt.Sprintf("backend %s", e.Table)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", prefix, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", prefix, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is the single-row-expected error, through
// any amount of wrapping.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

func HasCode(err error, code string) bool {
	var backendErr *Error
	return errors.As(err, &backendErr) && backendErr.Code == code
}

func invalidQuery(table string, format string, args ...any) *Error {
	return &Error{Code: CodeInvalidQuery, Table: table, Message: fmt.Sprintf(format, args...)}
}

// translate maps driver errors onto backend error codes.
func translate(table string, message string, err error) error {
	if err == nil {
		return nil
	}
	var backendErr *Error
	if errors.As(err, &backendErr) {
		return err
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return &Error{Code: CodeConstraintViolation, Table: table, Message: message, Err: err}
	}
	return &Error{Code: CodeUnavailable, Table: table, Message: message, Err: err}
}
