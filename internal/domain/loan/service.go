package loan

import (
	"context"
	"credit-loan-service/internal/event"
	"credit-loan-service/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type LoanService interface {
	ListLoans(ctx context.Context) ([]Loan, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	CreateLoan(ctx context.Context, l *Loan) (*Loan, error)

	UpdateLoan(ctx context.Context, l *Loan) (*Loan, error)

	DeleteLoan(ctx context.Context, loanID int64) error

	SearchLoans(ctx context.Context, term string) ([]Loan, error)

	GetStatistics(ctx context.Context) (*Statistics, error)
}

type loanServiceImpl struct {
	repo      Repository
	validator *Validator
	publisher event.EventPublisher
	logger    *slog.Logger
}

func NewLoanService(r Repository, v *Validator, p event.EventPublisher, logger *slog.Logger) LoanService {
	if p == nil {
		p = event.NoopPublisher{}
	}
	return &loanServiceImpl{repo: r, validator: v, publisher: p, logger: logger}
}

func (s *loanServiceImpl) ListLoans(ctx context.Context) ([]Loan, error) {
	loans, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list loans", "error", err)
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	l, err := s.repo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.Error("Failed to get loan", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("failed to get loan %d: %w", loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, l *Loan) (*Loan, error) {
	s.logger.Info("Creating new loan")

	if l != nil && l.Status == "" {
		l.Status = StatusPending
	}
	if err := s.validator.Validate(l); err != nil {
		s.logger.Warn("Loan failed validation", "error", err)
		return nil, err
	}

	created, err := s.repo.Create(ctx, l)
	if err != nil {
		s.logger.Error("Failed to save loan", "error", err)
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}
	s.logger.Info("Loan created successfully", "loanID", created.ID)

	if pubErr := s.publisher.PublishLoanCreated(ctx, event.LoanCreatedEvent{
		LoanID:       created.ID,
		CustomerName: created.CustomerName,
		Amount:       created.Amount.StringFixed(2),
		Status:       string(created.Status),
		Timestamp:    time.Now(),
	}); pubErr != nil {
		s.logger.Warn("Failed to publish loan created event", "loanID", created.ID, "error", pubErr)
	}

	return created, nil
}

func (s *loanServiceImpl) UpdateLoan(ctx context.Context, l *Loan) (*Loan, error) {
	if l != nil {
		s.logger.Info("Updating loan", "loanID", l.ID)
	}

	if err := s.validator.Validate(l); err != nil {
		s.logger.Warn("Loan failed validation", "error", err)
		return nil, err
	}

	// Existence and version are both settled by the store's conditional
	// write, never by the cache.
	updated, err := s.repo.Update(ctx, l)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			s.logger.Warn("Loan not found for update", "loanID", l.ID)
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, l.ID)
		case errors.Is(err, apperrors.ErrConflict):
			s.logger.Warn("Loan version conflict", "loanID", l.ID, "version", l.Version)
			return nil, err
		}
		s.logger.Error("Failed to update loan", "loanID", l.ID, "error", err)
		return nil, fmt.Errorf("failed to update loan %d: %w", l.ID, err)
	}
	s.logger.Info("Loan updated successfully", "loanID", updated.ID, "version", updated.Version)

	if pubErr := s.publisher.PublishLoanUpdated(ctx, event.LoanUpdatedEvent{
		LoanID:    updated.ID,
		Version:   updated.Version,
		Status:    string(updated.Status),
		Timestamp: time.Now(),
	}); pubErr != nil {
		s.logger.Warn("Failed to publish loan updated event", "loanID", updated.ID, "error", pubErr)
	}

	return updated, nil
}

func (s *loanServiceImpl) DeleteLoan(ctx context.Context, loanID int64) error {
	s.logger.Info("Deleting loan", "loanID", loanID)

	if err := s.repo.Delete(ctx, loanID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Loan not found for delete", "loanID", loanID)
			return fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.Error("Failed to delete loan", "loanID", loanID, "error", err)
		return fmt.Errorf("failed to delete loan %d: %w", loanID, err)
	}
	s.logger.Info("Loan deleted successfully", "loanID", loanID)

	if pubErr := s.publisher.PublishLoanDeleted(ctx, event.LoanDeletedEvent{
		LoanID:    loanID,
		Timestamp: time.Now(),
	}); pubErr != nil {
		s.logger.Warn("Failed to publish loan deleted event", "loanID", loanID, "error", pubErr)
	}

	return nil
}

func (s *loanServiceImpl) SearchLoans(ctx context.Context, term string) ([]Loan, error) {
	// An empty term is the full list; search itself always goes straight to
	// the store.
	if strings.TrimSpace(term) == "" {
		return s.ListLoans(ctx)
	}

	loans, err := s.repo.Search(ctx, term)
	if err != nil {
		s.logger.Error("Failed to search loans", "term", term, "error", err)
		return nil, fmt.Errorf("failed to search loans: %w", err)
	}
	return loans, nil
}

func (s *loanServiceImpl) GetStatistics(ctx context.Context) (*Statistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		s.logger.Error("Failed to compute loan statistics", "error", err)
		return nil, fmt.Errorf("failed to compute statistics: %w", err)
	}
	return stats, nil
}
