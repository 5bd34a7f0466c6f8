package loan

import (
	"context"
)

// Repository is the persistence contract for loans. The postgres adapter is
// the system of record; the cache-aside decorator wraps it with the same
// interface, so callers cannot tell a cached repository from a direct one.
type Repository interface {
	// GetAll returns every loan.
	GetAll(ctx context.Context) ([]Loan, error)

	// GetByID returns the loan or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*Loan, error)

	// Create inserts a new loan and returns it with its assigned id and
	// timestamps.
	Create(ctx context.Context, l *Loan) (*Loan, error)

	// Update performs a full-record replace conditioned on the loan's
	// version. It returns apperrors.ErrNotFound if the id does not exist and
	// apperrors.ErrConflict if the version is stale.
	Update(ctx context.Context, l *Loan) (*Loan, error)

	// Delete removes the loan or returns apperrors.ErrNotFound.
	Delete(ctx context.Context, id int64) error

	// Search returns loans whose customer name contains the term.
	Search(ctx context.Context, term string) ([]Loan, error)

	// Statistics aggregates over the full current record set, read fresh
	// from the store.
	Statistics(ctx context.Context) (*Statistics, error)
}
