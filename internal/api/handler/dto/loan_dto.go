package dto

import (
	"credit-loan-service/internal/domain/loan"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// LoanRequest is the create/update payload. Amount and interest rate are
// decimals so both JSON numbers and quoted strings are accepted without
// going through float64.
type LoanRequest struct {
	ID           int64           `json:"id,omitempty"`
	CustomerName string          `json:"customerName"`
	Amount       decimal.Decimal `json:"amount"`
	InterestRate decimal.Decimal `json:"interestRate"`
	TermInMonths int             `json:"termInMonths"`
	Status       string          `json:"status,omitempty"`
	Version      int64           `json:"version,omitempty"`
}

// ToDomain maps the request onto a domain loan. Field validation is the
// validation engine's job, not the DTO's.
func (r *LoanRequest) ToDomain() *loan.Loan {
	return &loan.Loan{
		ID:           r.ID,
		CustomerName: r.CustomerName,
		Amount:       r.Amount,
		InterestRate: r.InterestRate,
		TermInMonths: r.TermInMonths,
		Status:       loan.LoanStatus(r.Status),
		Version:      r.Version,
	}
}

type LoanResponse struct {
	ID             string     `json:"id"`
	CustomerName   string     `json:"customerName"`
	Amount         string     `json:"amount"`
	InterestRate   string     `json:"interestRate"`
	TermInMonths   int        `json:"termInMonths"`
	Status         string     `json:"status"`
	Version        int64      `json:"version"`
	MonthlyPayment string     `json:"monthlyPayment"`
	TotalPayment   string     `json:"totalPayment"`
	TotalInterest  string     `json:"totalInterest"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

type StatisticsResponse struct {
	TotalLoans    int            `json:"totalLoans"`
	TotalAmount   string         `json:"totalAmount"`
	AverageAmount string         `json:"averageAmount"`
	TotalInterest string         `json:"totalInterest"`
	StatusCounts  map[string]int `json:"statusCounts"`
}

type ErrorDetail struct {
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// NewLoanResponse renders a loan with its derived payment figures recomputed
// from the same snapshot, so principal and derived fields always agree.
func NewLoanResponse(domainLoan *loan.Loan) LoanResponse {
	resp := LoanResponse{
		ID:           strconv.FormatInt(domainLoan.ID, 10),
		CustomerName: domainLoan.CustomerName,
		Amount:       domainLoan.Amount.StringFixed(2),
		InterestRate: domainLoan.InterestRate.String(),
		TermInMonths: domainLoan.TermInMonths,
		Status:       string(domainLoan.Status),
		Version:      domainLoan.Version,
		CreatedAt:    domainLoan.CreatedAt,
		UpdatedAt:    domainLoan.UpdatedAt,
	}

	if am, err := domainLoan.Amortization(); err == nil {
		resp.MonthlyPayment = am.MonthlyPayment.StringFixed(2)
		resp.TotalPayment = am.TotalPayment.StringFixed(2)
		resp.TotalInterest = am.TotalInterest.StringFixed(2)
	}

	return resp
}

func NewLoanListResponse(loans []loan.Loan) []LoanResponse {
	out := make([]LoanResponse, len(loans))
	for i := range loans {
		out[i] = NewLoanResponse(&loans[i])
	}
	return out
}

func NewStatisticsResponse(stats *loan.Statistics) StatisticsResponse {
	counts := make(map[string]int, len(stats.StatusCounts))
	for status, n := range stats.StatusCounts {
		counts[string(status)] = n
	}
	return StatisticsResponse{
		TotalLoans:    stats.TotalLoans,
		TotalAmount:   stats.TotalAmount.StringFixed(2),
		AverageAmount: stats.AverageAmount.StringFixed(2),
		TotalInterest: stats.TotalInterest.StringFixed(2),
		StatusCounts:  counts,
	}
}
