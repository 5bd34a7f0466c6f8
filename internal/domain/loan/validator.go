package loan

import (
	"credit-loan-service/internal/config"
	"credit-loan-service/internal/pkg/apperrors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds are the business constraints applied before any mutation reaches the
// store. The interest rate is an annual fraction (0.06 = 6%), never a
// percentage; mixing the two conventions was a known defect in the system
// this one replaces.
type Bounds struct {
	AmountMin       decimal.Decimal
	AmountMax       decimal.Decimal
	InterestRateMin decimal.Decimal
	InterestRateMax decimal.Decimal
	TermMonthsMin   int
	TermMonthsMax   int
	CustomerNameMax int
}

func DefaultBounds() Bounds {
	return Bounds{
		AmountMin:       decimal.NewFromInt(100),
		AmountMax:       decimal.NewFromInt(100000),
		InterestRateMin: decimal.RequireFromString("0.01"),
		InterestRateMax: decimal.NewFromInt(1),
		TermMonthsMin:   1,
		TermMonthsMax:   60,
		CustomerNameMax: 100,
	}
}

// BoundsFromConfig builds Bounds from configuration, falling back to the
// defaults for any value that does not parse.
func BoundsFromConfig(cfg config.ValidationConfig) Bounds {
	b := DefaultBounds()
	if v, err := decimal.NewFromString(cfg.AmountMin); err == nil {
		b.AmountMin = v
	}
	if v, err := decimal.NewFromString(cfg.AmountMax); err == nil {
		b.AmountMax = v
	}
	if v, err := decimal.NewFromString(cfg.InterestRateMin); err == nil {
		b.InterestRateMin = v
	}
	if v, err := decimal.NewFromString(cfg.InterestRateMax); err == nil {
		b.InterestRateMax = v
	}
	if cfg.TermMonthsMin > 0 {
		b.TermMonthsMin = cfg.TermMonthsMin
	}
	if cfg.TermMonthsMax >= b.TermMonthsMin {
		b.TermMonthsMax = cfg.TermMonthsMax
	}
	if cfg.CustomerNameMax > 0 {
		b.CustomerNameMax = cfg.CustomerNameMax
	}
	return b
}

type Validator struct {
	bounds Bounds
}

func NewValidator(bounds Bounds) *Validator {
	return &Validator{bounds: bounds}
}

// Validate runs every field check and reports all failures at once. It never
// consults the store; record existence on update is settled by the store's
// own conditional write.
func (v *Validator) Validate(l *Loan) error {
	errs := &apperrors.ValidationErrors{}
	if l == nil {
		errs.Add("loan", "request body is required")
		return errs
	}

	name := strings.TrimSpace(l.CustomerName)
	if name == "" {
		errs.Add("customerName", "customer name is required")
	} else if len(l.CustomerName) > v.bounds.CustomerNameMax {
		errs.Add("customerName", fmt.Sprintf("customer name must be at most %d characters", v.bounds.CustomerNameMax))
	}

	if l.Amount.LessThan(v.bounds.AmountMin) || l.Amount.GreaterThan(v.bounds.AmountMax) {
		errs.Add("amount", fmt.Sprintf("amount must be between %s and %s",
			v.bounds.AmountMin.String(), v.bounds.AmountMax.String()))
	}

	if l.InterestRate.LessThan(v.bounds.InterestRateMin) || l.InterestRate.GreaterThan(v.bounds.InterestRateMax) {
		errs.Add("interestRate", fmt.Sprintf("interest rate must be a fraction between %s and %s",
			v.bounds.InterestRateMin.String(), v.bounds.InterestRateMax.String()))
	}

	if l.TermInMonths < v.bounds.TermMonthsMin || l.TermInMonths > v.bounds.TermMonthsMax {
		errs.Add("termInMonths", fmt.Sprintf("term must be between %d and %d months",
			v.bounds.TermMonthsMin, v.bounds.TermMonthsMax))
	}

	if l.Status != "" && !l.Status.Valid() {
		errs.Add("status", fmt.Sprintf("status must be one of %s, %s, %s, %s",
			StatusPending, StatusActive, StatusPaid, StatusDefaulted))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
