package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	t.Run("formats the field into the message", func(t *testing.T) {
		err := &ValidationError{Field: "amount", Message: "must be positive"}
		assert.Equal(t, "validation failed for field 'amount': must be positive", err.Error())
	})

	t.Run("formats without a field", func(t *testing.T) {
		err := &ValidationError{Message: "request body is required"}
		assert.Equal(t, "validation failed: request body is required", err.Error())
	})

	t.Run("NewValidationError wraps the validation sentinel", func(t *testing.T) {
		err := NewValidationError("amount", "must be positive")
		assert.ErrorIs(t, err, ErrValidation)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "amount", verr.Field)
	})
}

func TestValidationErrors(t *testing.T) {
	t.Run("collects multiple fields", func(t *testing.T) {
		errs := &ValidationErrors{}
		assert.False(t, errs.HasErrors())

		errs.Add("customerName", "customer name is required")
		errs.Add("amount", "amount must be between 100 and 100000")

		assert.True(t, errs.HasErrors())
		assert.Len(t, errs.Fields, 2)
		assert.Contains(t, errs.Error(), "customerName")
		assert.Contains(t, errs.Error(), "amount")
	})

	t.Run("unwraps to the validation sentinel", func(t *testing.T) {
		errs := &ValidationErrors{}
		errs.Add("amount", "out of range")
		assert.ErrorIs(t, errs, ErrValidation)
	})

	t.Run("field map keeps the first message per field", func(t *testing.T) {
		errs := &ValidationErrors{}
		errs.Add("amount", "first")
		errs.Add("amount", "second")

		m := errs.FieldMap()
		assert.Len(t, m, 1)
		assert.Equal(t, "first", m["amount"])
	})
}

func TestAppError(t *testing.T) {
	t.Run("includes the code in the message", func(t *testing.T) {
		err := &AppError{Code: "DB_ERROR", Message: "query failed"}
		assert.Equal(t, "[DB_ERROR] query failed", err.Error())
	})

	t.Run("WrapDatabaseError preserves the cause chain", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := WrapDatabaseError(cause, "loading loans")

		assert.ErrorIs(t, err, ErrDatabase)
		assert.ErrorIs(t, err, cause)

		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "DB_ERROR", appErr.Code)
	})
}
