package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")

	ErrConflict = errors.New("resource conflict")
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {

	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

// JoinValidation combines field violations into one error. It returns nil
// when every entry is nil, so callers can collect checks unconditionally.
func JoinValidation(errs ...error) error {
	return errors.Join(errs...)
}

// FieldErrors walks an error tree and collects every ValidationError by field.
// The first message recorded for a field wins.
func FieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	collectFieldErrors(err, fields)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func collectFieldErrors(err error, fields map[string]string) {
	if err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		key := ve.Field
		if key == "" {
			key = "_"
		}
		if _, seen := fields[key]; !seen {
			fields[key] = ve.Message
		}
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			collectFieldErrors(inner, fields)
		}
	case interface{ Unwrap() error }:
		collectFieldErrors(x.Unwrap(), fields)
	}
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}
