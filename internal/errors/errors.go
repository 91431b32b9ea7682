package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for the catalog, pricing and recommendation layers.
// Wrap concrete failures with the builder and Mark them with one of these.
var (
	ErrMissingStore     = newInternal(ErrCodeMissingStore, "catalog document not found")
	ErrDataIntegrity    = newInternal(ErrCodeDataIntegrity, "catalog data integrity error")
	ErrDuplicateKey     = newInternal(ErrCodeDuplicateKey, "key already exists")
	ErrValidation       = newInternal(ErrCodeValidation, "validation error")
	ErrCollaborator     = newInternal(ErrCodeCollaborator, "recommendation collaborator error")
	ErrNotFound         = newInternal(ErrCodeNotFound, "resource not found")
	ErrRevisionConflict = newInternal(ErrCodeRevisionConflict, "catalog revision conflict")
	ErrDisabled         = newInternal(ErrCodeDisabled, "feature disabled")
	ErrSystem           = newInternal(ErrCodeSystem, "system error")

	// maps errors to http status codes
	statusCodeMap = []struct {
		err    error
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrMissingStore, http.StatusNotFound},
		{ErrDuplicateKey, http.StatusConflict},
		{ErrRevisionConflict, http.StatusPreconditionFailed},
		{ErrValidation, http.StatusBadRequest},
		{ErrDataIntegrity, http.StatusUnprocessableEntity},
		{ErrCollaborator, http.StatusBadGateway},
		{ErrDisabled, http.StatusServiceUnavailable},
		{ErrSystem, http.StatusInternalServerError},
	}
)

const (
	ErrCodeMissingStore     = "missing_store"
	ErrCodeDataIntegrity    = "data_integrity"
	ErrCodeDuplicateKey     = "duplicate_key"
	ErrCodeValidation       = "validation_error"
	ErrCodeCollaborator     = "collaborator_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeRevisionConflict = "revision_conflict"
	ErrCodeDisabled         = "disabled"
	ErrCodeSystem           = "system_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func newInternal(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func IsMissingStore(err error) bool {
	return errors.Is(err, ErrMissingStore)
}

func IsDataIntegrity(err error) bool {
	return errors.Is(err, ErrDataIntegrity)
}

func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsCollaborator(err error) bool {
	return errors.Is(err, ErrCollaborator)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsRevisionConflict(err error) bool {
	return errors.Is(err, ErrRevisionConflict)
}

// Code returns the machine-readable code of the first sentinel err is marked with.
func Code(err error) string {
	for _, e := range statusCodeMap {
		if errors.Is(err, e.err) {
			return e.err.(*InternalError).Code
		}
	}
	return ErrCodeSystem
}

func HTTPStatusFromErr(err error) int {
	for _, e := range statusCodeMap {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// DisplayMessage returns the first non-empty hint attached to err, which is
// safe to show to an operator.
func DisplayMessage(err error) string {
	for _, hint := range errors.GetAllHints(err) {
		if hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}
