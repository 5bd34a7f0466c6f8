package loan

import (
	"github.com/shopspring/decimal"
)

// Statistics is the aggregate view over the full loan set. TotalInterest is
// amortization-based: the sum of each loan's derived total interest, never
// the simple-interest approximation.
type Statistics struct {
	TotalLoans    int                `json:"totalLoans"`
	TotalAmount   decimal.Decimal    `json:"totalAmount"`
	AverageAmount decimal.Decimal    `json:"averageAmount"`
	TotalInterest decimal.Decimal    `json:"totalInterest"`
	StatusCounts  map[LoanStatus]int `json:"statusCounts"`
}

// Aggregate computes statistics over the given loans. An empty set yields all
// zeroes; the average is defined as zero rather than dividing by zero.
func Aggregate(loans []Loan) Statistics {
	stats := Statistics{
		TotalAmount:   decimal.Zero,
		AverageAmount: decimal.Zero,
		TotalInterest: decimal.Zero,
		StatusCounts:  make(map[LoanStatus]int),
	}

	for i := range loans {
		l := &loans[i]
		stats.TotalLoans++
		stats.TotalAmount = stats.TotalAmount.Add(l.Amount)
		stats.StatusCounts[l.Status]++

		// Loans in the store always carry a valid term; a row that does not
		// simply contributes no interest instead of poisoning the aggregate.
		if am, err := l.Amortization(); err == nil {
			stats.TotalInterest = stats.TotalInterest.Add(am.TotalInterest)
		}
	}

	if stats.TotalLoans > 0 {
		stats.AverageAmount = stats.TotalAmount.
			Div(decimal.NewFromInt(int64(stats.TotalLoans))).
			Round(currencyPlaces)
	}

	return stats
}
