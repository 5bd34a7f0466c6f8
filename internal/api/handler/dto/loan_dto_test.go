package dto

import (
	"credit-loan-service/internal/domain/loan"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanRequestDecoding(t *testing.T) {
	t.Run("accepts numeric money fields", func(t *testing.T) {
		var req LoanRequest
		body := `{"customerName":"Jane Doe","amount":10000,"interestRate":0.06,"termInMonths":24}`
		require.NoError(t, json.Unmarshal([]byte(body), &req))

		assert.True(t, req.Amount.Equal(decimal.NewFromInt(10000)))
		assert.True(t, req.InterestRate.Equal(decimal.RequireFromString("0.06")))
	})

	t.Run("accepts quoted money fields", func(t *testing.T) {
		var req LoanRequest
		body := `{"customerName":"Jane Doe","amount":"10000.50","interestRate":"0.06","termInMonths":24}`
		require.NoError(t, json.Unmarshal([]byte(body), &req))

		assert.True(t, req.Amount.Equal(decimal.RequireFromString("10000.50")))
	})
}

func TestLoanRequestToDomain(t *testing.T) {
	req := LoanRequest{
		ID:           3,
		CustomerName: "Jane Doe",
		Amount:       decimal.NewFromInt(10000),
		InterestRate: decimal.RequireFromString("0.06"),
		TermInMonths: 24,
		Status:       "ACTIVE",
		Version:      2,
	}

	l := req.ToDomain()

	assert.Equal(t, int64(3), l.ID)
	assert.Equal(t, "Jane Doe", l.CustomerName)
	assert.Equal(t, loan.StatusActive, l.Status)
	assert.Equal(t, int64(2), l.Version)
}

func TestNewLoanResponse(t *testing.T) {
	t.Run("renders money as fixed point strings with derived figures", func(t *testing.T) {
		now := time.Now()
		resp := NewLoanResponse(&loan.Loan{
			ID:           1,
			CustomerName: "Jane Doe",
			Amount:       decimal.NewFromInt(10000),
			InterestRate: decimal.RequireFromString("0.06"),
			TermInMonths: 24,
			Status:       loan.StatusActive,
			Version:      1,
			CreatedAt:    now,
		})

		assert.Equal(t, "1", resp.ID)
		assert.Equal(t, "10000.00", resp.Amount)
		assert.Equal(t, "0.06", resp.InterestRate)
		assert.Equal(t, "443.21", resp.MonthlyPayment)
		assert.Equal(t, "10637.04", resp.TotalPayment)
		assert.Equal(t, "637.04", resp.TotalInterest)
		assert.Nil(t, resp.UpdatedAt)
	})

	t.Run("leaves derived figures empty for an uncomputable record", func(t *testing.T) {
		resp := NewLoanResponse(&loan.Loan{
			ID:           2,
			CustomerName: "Jane Doe",
			Amount:       decimal.NewFromInt(10000),
			TermInMonths: 0,
		})

		assert.Empty(t, resp.MonthlyPayment)
		assert.Empty(t, resp.TotalPayment)
		assert.Empty(t, resp.TotalInterest)
	})
}

func TestNewLoanListResponse(t *testing.T) {
	loans := []loan.Loan{
		{ID: 1, Amount: decimal.NewFromInt(1000), InterestRate: decimal.RequireFromString("0.05"), TermInMonths: 12},
		{ID: 2, Amount: decimal.NewFromInt(2000), InterestRate: decimal.RequireFromString("0.05"), TermInMonths: 12},
	}

	resp := NewLoanListResponse(loans)

	require.Len(t, resp, 2)
	assert.Equal(t, "1", resp[0].ID)
	assert.Equal(t, "2", resp[1].ID)

	empty := NewLoanListResponse(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestNewStatisticsResponse(t *testing.T) {
	resp := NewStatisticsResponse(&loan.Statistics{
		TotalLoans:    3,
		TotalAmount:   decimal.NewFromInt(17000),
		AverageAmount: decimal.RequireFromString("5666.67"),
		TotalInterest: decimal.RequireFromString("1000.5"),
		StatusCounts:  map[loan.LoanStatus]int{loan.StatusActive: 2, loan.StatusPaid: 1},
	})

	assert.Equal(t, 3, resp.TotalLoans)
	assert.Equal(t, "17000.00", resp.TotalAmount)
	assert.Equal(t, "5666.67", resp.AverageAmount)
	assert.Equal(t, "1000.50", resp.TotalInterest)
	assert.Equal(t, map[string]int{"ACTIVE": 2, "PAID": 1}, resp.StatusCounts)
}
