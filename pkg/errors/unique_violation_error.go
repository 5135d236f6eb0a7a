package custom_error

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type UniqueViolationError struct {
	message    string
	code       string // PostgreSQL error code (e.g., "23505")
	Constraint string
}

type ForeignKeyViolationError struct {
	message    string
	code       string // PostgreSQL error code (e.g., "23503")
	Constraint string
}

func (f *ForeignKeyViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", f.message, f.code)
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", e.message, e.code)
}

// WrapDBError turns unique and foreign key violations reported by lib/pq into
// typed errors carrying message. Other errors are wrapped unchanged.
func WrapDBError(message string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %w", message, err)
	}

	switch string(pqErr.Code) {
	case codeUniqueViolation:
		return &UniqueViolationError{
			message:    message,
			code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
		}
	case codeForeignKeyViolation:
		return &ForeignKeyViolationError{
			message:    "Value is already used by other resources: " + message,
			code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
		}
	default:
		return fmt.Errorf("uncategorized error occurred with code %s: %s: %w", pqErr.Code, message, err)
	}
}

func IsUniqueViolation(err error) bool {
	var target *UniqueViolationError
	return errors.As(err, &target)
}

func IsForeignKeyViolation(err error) bool {
	var target *ForeignKeyViolationError
	return errors.As(err, &target)
}
