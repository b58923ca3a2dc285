package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorError(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name: "With Code",
			appError: &AppError{
				Code:    "TEST_CODE",
				Message: "This is a test error",
			},
			expected: "[TEST_CODE] This is a test error",
		},
		{
			name: "Without Code",
			appError: &AppError{
				Message: "This is a test error without code",
			},
			expected: "This is a test error without code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.appError.Error()
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestWrapDatabaseError(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapDatabaseError(cause, "failed to insert loan")

	assert.EqualError(t, err, "[DB_ERROR] failed to insert loan")
	assert.ErrorIs(t, err, ErrDatabase)
	assert.ErrorIs(t, err, cause)
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("age", "must be at least 18")

	assert.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "age", ve.Field)
	assert.Equal(t, "must be at least 18", ve.Message)
}

func TestFieldErrors(t *testing.T) {
	t.Run("collects every field from a joined error", func(t *testing.T) {
		err := JoinValidation(
			NewValidationError("age", "must be at least 18"),
			nil,
			NewValidationError("phone_number", "must be exactly 10 digits"),
			NewValidationError("age", "second message is ignored"),
		)

		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, map[string]string{
			"age":          "must be at least 18",
			"phone_number": "must be exactly 10 digits",
		}, FieldErrors(err))
	})

	t.Run("sees through additional wrapping", func(t *testing.T) {
		err := fmt.Errorf("register customer: %w", NewValidationError("first_name", "is required"))
		assert.Equal(t, map[string]string{"first_name": "is required"}, FieldErrors(err))
	})

	t.Run("nil when no field errors", func(t *testing.T) {
		assert.Nil(t, FieldErrors(errors.New("boom")))
		assert.Nil(t, FieldErrors(nil))
		assert.Nil(t, JoinValidation(nil, nil))
	})
}
