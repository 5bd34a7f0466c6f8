package postgres

import (
	"context"
	"credit-loan-service/internal/domain/loan"
	"credit-loan-service/internal/infrastructure/monitoring"
	"credit-loan-service/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

const loanColumns = "id, customer_name, amount, interest_rate, term_months, status, version, created_at, updated_at"

// LoanRepository is the persistent store adapter. It is the system of record:
// anything the cache layer believes is overruled by what these queries return.
type LoanRepository struct {
	db            DBPool
	caseSensitive bool
	logger        *slog.Logger
}

func NewLoanRepository(db DBPool, caseSensitiveSearch bool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{
		db:            db,
		caseSensitive: caseSensitiveSearch,
		logger:        logger.With("component", "LoanRepository"),
	}
}

func (r *LoanRepository) scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.CustomerName, &l.Amount, &l.InterestRate, &l.TermInMonths,
		&l.Status, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) scanLoans(rows pgx.Rows) ([]loan.Loan, error) {
	defer rows.Close()

	loans := make([]loan.Loan, 0)
	for rows.Next() {
		var l loan.Loan
		err := rows.Scan(
			&l.ID, &l.CustomerName, &l.Amount, &l.InterestRate, &l.TermInMonths,
			&l.Status, &l.Version, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (r *LoanRepository) GetAll(ctx context.Context) ([]loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans ORDER BY id`

	startTime := time.Now()

	rows, err := r.db.Query(ctx, query)
	if err == nil {
		loans, scanErr := r.scanLoans(rows)
		if scanErr == nil {
			monitoring.RecordDBQuery("GetAll", "success", time.Since(startTime))
			return loans, nil
		}
		err = scanErr
	}

	monitoring.RecordDBQuery("GetAll", "error", time.Since(startTime))
	r.logger.ErrorContext(ctx, "Failed to get all loans", "error", err)
	return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}

func (r *LoanRepository) GetByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	status := "success"
	startTime := time.Now()

	l, err := r.scanLoan(r.db.QueryRow(ctx, query, loanID))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) Create(ctx context.Context, newLoan *loan.Loan) (*loan.Loan, error) {
	query := `
        INSERT INTO loans (customer_name, amount, interest_rate, term_months, status, version, created_at)
        VALUES ($1, $2, $3, $4, $5, 1, NOW())
        RETURNING ` + loanColumns

	startTime := time.Now()
	created, err := r.scanLoan(r.db.QueryRow(ctx, query,
		newLoan.CustomerName, newLoan.Amount, newLoan.InterestRate,
		newLoan.TermInMonths, newLoan.Status,
	))
	if err != nil {
		monitoring.RecordDBQuery("Create", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, translateDBError(err, r.logger)
	}
	monitoring.RecordDBQuery("Create", "success", time.Since(startTime))

	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)
	return created, nil
}

// Update replaces the full record, conditioned on the caller's version. The
// version check is the only concurrency control on loans; a stale version is
// reported as a conflict, a missing row as not-found.
func (r *LoanRepository) Update(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	query := `
        UPDATE loans
        SET customer_name = $1, amount = $2, interest_rate = $3, term_months = $4,
            status = $5, version = version + 1, updated_at = NOW()
        WHERE id = $6 AND version = $7
        RETURNING ` + loanColumns

	startTime := time.Now()
	updated, err := r.scanLoan(r.db.QueryRow(ctx, query,
		l.CustomerName, l.Amount, l.InterestRate, l.TermInMonths, l.Status,
		l.ID, l.Version,
	))
	if err == nil {
		monitoring.RecordDBQuery("Update", "success", time.Since(startTime))
		r.logger.InfoContext(ctx, "Loan updated in DB", "loan_id", updated.ID, "version", updated.Version)
		return updated, nil
	}
	monitoring.RecordDBQuery("Update", "error", time.Since(startTime))

	if errors.Is(err, pgx.ErrNoRows) {
		// Zero rows means either the id is gone or the version is stale;
		// disambiguate so the API can answer 404 vs 409.
		var exists bool
		checkErr := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM loans WHERE id = $1)`, l.ID).Scan(&exists)
		if checkErr != nil {
			r.logger.ErrorContext(ctx, "Failed to check loan existence after update miss", "loan_id", l.ID, "error", checkErr)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, checkErr)
		}
		if exists {
			r.logger.WarnContext(ctx, "Loan update version conflict", "loan_id", l.ID, "version", l.Version)
			return nil, fmt.Errorf("%w: loan %d was modified concurrently", apperrors.ErrConflict, l.ID)
		}
		r.logger.WarnContext(ctx, "Loan not found for update", "loan_id", l.ID)
		return nil, apperrors.ErrNotFound
	}

	r.logger.ErrorContext(ctx, "Failed to update loan", "loan_id", l.ID, "error", err)
	return nil, translateDBError(err, r.logger)
}

func (r *LoanRepository) Delete(ctx context.Context, loanID int64) error {
	startTime := time.Now()
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM loans WHERE id = $1`, loanID)
	if err != nil {
		monitoring.RecordDBQuery("Delete", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to delete loan", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery("Delete", "success", time.Since(startTime))

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Loan not found for delete", "loan_id", loanID)
		return apperrors.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Loan deleted from DB", "loan_id", loanID)
	return nil
}

func (r *LoanRepository) Search(ctx context.Context, term string) ([]loan.Loan, error) {
	operator := "ILIKE"
	if r.caseSensitive {
		operator = "LIKE"
	}
	query := `SELECT ` + loanColumns + ` FROM loans WHERE customer_name ` + operator + ` '%' || $1 || '%' ORDER BY id`

	startTime := time.Now()
	rows, err := r.db.Query(ctx, query, term)
	if err == nil {
		loans, scanErr := r.scanLoans(rows)
		if scanErr == nil {
			monitoring.RecordDBQuery("Search", "success", time.Since(startTime))
			return loans, nil
		}
		err = scanErr
	}

	monitoring.RecordDBQuery("Search", "error", time.Since(startTime))
	r.logger.ErrorContext(ctx, "Failed to search loans", "term", term, "error", err)
	return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}

// Statistics always reads the full record set fresh from the store; the
// amortization-based interest totals need every row, not a cached snapshot.
func (r *LoanRepository) Statistics(ctx context.Context) (*loan.Statistics, error) {
	loans, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := loan.Aggregate(loans)
	return &stats, nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {

		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
