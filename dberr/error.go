package dberr

import (
	"errors"
	"fmt"
	"log/slog"
)

type Code string

const (
	CodeSchemaViolation          Code = "SCHEMA_VIOLATION"
	CodeSchemaMismatch           Code = "SCHEMA_MISMATCH"
	CodeTableNotFound            Code = "TABLE_NOT_FOUND"
	CodeTableAlreadyExists       Code = "TABLE_ALREADY_EXISTS"
	CodeUnresolvedColumn         Code = "UNRESOLVED_COLUMN"
	CodeAmbiguousColumn          Code = "AMBIGUOUS_COLUMN"
	CodeUnsupportedJoinCondition Code = "UNSUPPORTED_JOIN_CONDITION"
	CodeTypeMismatch             Code = "TYPE_MISMATCH"
	CodeCorruptData              Code = "CORRUPT_DATA"
	CodeIOError                  Code = "IO_ERROR"
	CodeSyntaxError              Code = "SYNTAX_ERROR"
)

type DBError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DBError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DBError) Unwrap() error {
	return e.Err
}

func New(code Code, message string, err error) error {
	return &DBError{Code: code, Message: message, Err: err}
}

// Is reports whether err carries code anywhere in its chain.
func Is(err error, code Code) bool {
	var dbErr *DBError
	for err != nil {
		if !errors.As(err, &dbErr) {
			return false
		}
		if dbErr.Code == code {
			return true
		}
		err = dbErr.Err
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Code
	}
	return ""
}

func HandleErrorLog(logger *slog.Logger, err error) {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		logger.Error("DB Error", slog.String("code", string(dbErr.Code)), slog.String("message", dbErr.Message), slog.Any("error", dbErr.Err))
	} else {
		logger.Error("Unexpected Error", slog.Any("error", err))
	}
}
