package models

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrPostNotFound        = errors.New("scheduled post not found")
	ErrAlreadyPublished    = errors.New("already published")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

type ValidationError struct {
	Errs validation.Errors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Errs.Error()
}

// AsValidationError converts an ozzo validation result into a ValidationError.
// Internal rule errors are passed through unchanged.
func AsValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		return &ValidationError{Errs: errs}
	}
	return err
}
