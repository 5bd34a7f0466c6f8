package loan

import (
	"credit-loan-service/internal/config"
	"credit-loan-service/internal/pkg/apperrors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLoan() *Loan {
	return &Loan{
		CustomerName: "Jane Doe",
		Amount:       decimal.NewFromInt(10000),
		InterestRate: decimal.RequireFromString("0.06"),
		TermInMonths: 24,
		Status:       StatusPending,
	}
}

func TestValidatorValidate(t *testing.T) {
	v := NewValidator(DefaultBounds())

	t.Run("accepts a valid loan", func(t *testing.T) {
		assert.NoError(t, v.Validate(validLoan()))
	})

	t.Run("accepts boundary values", func(t *testing.T) {
		l := validLoan()
		l.Amount = decimal.NewFromInt(100)
		l.InterestRate = decimal.RequireFromString("0.01")
		l.TermInMonths = 1
		assert.NoError(t, v.Validate(l))

		l.Amount = decimal.NewFromInt(100000)
		l.InterestRate = decimal.NewFromInt(1)
		l.TermInMonths = 60
		assert.NoError(t, v.Validate(l))
	})

	t.Run("reports every failing field at once", func(t *testing.T) {
		l := &Loan{
			CustomerName: "   ",
			Amount:       decimal.NewFromInt(50),
			InterestRate: decimal.RequireFromString("1.5"),
			TermInMonths: 0,
			Status:       LoanStatus("CANCELLED"),
		}

		err := v.Validate(l)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)

		var verrs *apperrors.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		fields := verrs.FieldMap()
		assert.Len(t, fields, 5)
		assert.Contains(t, fields, "customerName")
		assert.Contains(t, fields, "amount")
		assert.Contains(t, fields, "interestRate")
		assert.Contains(t, fields, "termInMonths")
		assert.Contains(t, fields, "status")
	})

	t.Run("rejects a nil loan", func(t *testing.T) {
		err := v.Validate(nil)
		require.Error(t, err)

		var verrs *apperrors.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs.FieldMap(), "loan")
	})

	t.Run("rejects an overlong customer name", func(t *testing.T) {
		l := validLoan()
		l.CustomerName = strings.Repeat("a", 101)

		err := v.Validate(l)
		require.Error(t, err)

		var verrs *apperrors.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		fields := verrs.FieldMap()
		assert.Len(t, fields, 1)
		assert.Contains(t, fields["customerName"], "at most 100")
	})

	t.Run("rejects an amount above the ceiling", func(t *testing.T) {
		l := validLoan()
		l.Amount = decimal.RequireFromString("100000.01")

		err := v.Validate(l)
		require.Error(t, err)

		var verrs *apperrors.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs.FieldMap(), "amount")
	})

	t.Run("rejects a percentage style interest rate", func(t *testing.T) {
		l := validLoan()
		l.InterestRate = decimal.NewFromInt(6)

		err := v.Validate(l)
		require.Error(t, err)

		var verrs *apperrors.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs.FieldMap()["interestRate"], "fraction")
	})

	t.Run("allows an empty status", func(t *testing.T) {
		l := validLoan()
		l.Status = ""
		assert.NoError(t, v.Validate(l))
	})
}

func TestBoundsFromConfig(t *testing.T) {
	t.Run("uses configured values", func(t *testing.T) {
		b := BoundsFromConfig(config.ValidationConfig{
			AmountMin:       "500",
			AmountMax:       "25000",
			InterestRateMin: "0.02",
			InterestRateMax: "0.5",
			TermMonthsMin:   6,
			TermMonthsMax:   48,
			CustomerNameMax: 64,
		})

		assert.True(t, b.AmountMin.Equal(decimal.NewFromInt(500)))
		assert.True(t, b.AmountMax.Equal(decimal.NewFromInt(25000)))
		assert.True(t, b.InterestRateMin.Equal(decimal.RequireFromString("0.02")))
		assert.True(t, b.InterestRateMax.Equal(decimal.RequireFromString("0.5")))
		assert.Equal(t, 6, b.TermMonthsMin)
		assert.Equal(t, 48, b.TermMonthsMax)
		assert.Equal(t, 64, b.CustomerNameMax)
	})

	t.Run("falls back to defaults for unparseable values", func(t *testing.T) {
		b := BoundsFromConfig(config.ValidationConfig{
			AmountMin:       "not-a-number",
			InterestRateMax: "",
		})

		def := DefaultBounds()
		assert.True(t, b.AmountMin.Equal(def.AmountMin))
		assert.True(t, b.InterestRateMax.Equal(def.InterestRateMax))
		assert.Equal(t, def.TermMonthsMin, b.TermMonthsMin)
		assert.Equal(t, def.TermMonthsMax, b.TermMonthsMax)
	})
}
