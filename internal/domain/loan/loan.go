package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	StatusPending   LoanStatus = "PENDING"
	StatusActive    LoanStatus = "ACTIVE"
	StatusPaid      LoanStatus = "PAID"
	StatusDefaulted LoanStatus = "DEFAULTED"
)

func (s LoanStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusPaid, StatusDefaulted:
		return true
	}
	return false
}

// Loan is the single persisted entity. The amortization figures
// (monthly payment, total payment, total interest) are never stored; they are
// recomputed from Amount, InterestRate and TermInMonths on the exact snapshot
// being returned, so principal and derived fields can never drift apart.
type Loan struct {
	ID           int64           `json:"id"`
	CustomerName string          `json:"customerName"`
	Amount       decimal.Decimal `json:"amount"`
	InterestRate decimal.Decimal `json:"interestRate"`
	TermInMonths int             `json:"termInMonths"`
	Status       LoanStatus      `json:"status"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    *time.Time      `json:"updatedAt,omitempty"`
}

// Amortization returns the derived payment figures for the loan's current
// principal fields.
func (l *Loan) Amortization() (Amortization, error) {
	return Amortize(l.Amount, l.InterestRate, l.TermInMonths)
}
