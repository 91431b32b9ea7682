package validator

import (
	"sync"

	"github.com/go-playground/validator/v10"
	ierr "github.com/siteforge/backend/internal/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the process-wide validator, creating it on first use.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateRequest validates req's struct tags and returns an error marked
// ErrValidation listing each failing field.
func ValidateRequest(req any) error {
	if err := Get().Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, fe := range validateErrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
