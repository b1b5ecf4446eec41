package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrProfileIncomplete = errors.New("profile incomplete")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("conflict")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// ServiceError carries a kind, a stable machine-readable code and a message
// that is safe to show to the caller
type ServiceError struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, code, message string) *ServiceError {
	return &ServiceError{Kind: kind, Code: code, Message: message}
}

// storeError wraps an unexpected persistence failure
func storeError(op string, err error) *ServiceError {
	return &ServiceError{
		Kind:    ErrStoreUnavailable,
		Code:    "DATABASE_ERROR",
		Message: "Failed to " + op,
		Err:     err,
	}
}

// AsServiceError returns the ServiceError in err's chain, if any
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

const uniqueViolationCode = "23505"

// isUniqueViolation recognizes duplicate-key failures from postgres and SQLite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "unique")
}
