package loan

import (
	"credit-loan-service/internal/pkg/apperrors"
	"fmt"

	"github.com/shopspring/decimal"
)

// currencyPlaces is the rounding precision for money values. Rounding is
// round-half-up (decimal.Round, half away from zero) to the cent.
const currencyPlaces = 2

var (
	decimalOne    = decimal.NewFromInt(1)
	monthsPerYear = decimal.NewFromInt(12)
)

type Amortization struct {
	MonthlyPayment decimal.Decimal
	TotalPayment   decimal.Decimal
	TotalInterest  decimal.Decimal
}

// Amortize computes the fixed-rate amortization figures for a loan.
// annualRate is a fraction (0.055 means 5.5%), compounded monthly:
//
//	payment = amount * r * (1+r)^n / ((1+r)^n - 1), r = annualRate/12
//
// The monthly payment is rounded to the cent first and the totals are derived
// from the rounded value, so monthlyPayment*n - amount == totalInterest holds
// exactly at cent precision. A zero rate degenerates to amount/n, which the
// general formula cannot express (division by zero).
func Amortize(amount, annualRate decimal.Decimal, termMonths int) (Amortization, error) {
	if termMonths <= 0 {
		return Amortization{}, fmt.Errorf("%w: term must be at least one month", apperrors.ErrInvalidArgument)
	}
	if amount.IsNegative() || annualRate.IsNegative() {
		return Amortization{}, fmt.Errorf("%w: amount and interest rate must not be negative", apperrors.ErrInvalidArgument)
	}

	term := decimal.NewFromInt(int64(termMonths))
	monthlyRate := annualRate.Div(monthsPerYear)

	var monthly decimal.Decimal
	if monthlyRate.IsZero() {
		monthly = amount.Div(term).Round(currencyPlaces)
	} else {
		compound := decimalOne.Add(monthlyRate).Pow(term)
		monthly = amount.Mul(monthlyRate).Mul(compound).
			Div(compound.Sub(decimalOne)).
			Round(currencyPlaces)
	}

	total := monthly.Mul(term)
	return Amortization{
		MonthlyPayment: monthly,
		TotalPayment:   total,
		TotalInterest:  total.Sub(amount),
	}, nil
}
