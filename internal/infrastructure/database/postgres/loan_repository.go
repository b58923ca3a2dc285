package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const (
	insertLoanQuery = `INSERT INTO loans (customer_id, loan_amount, interest_rate, tenure, monthly_installment, repayments_left, emis_paid_on_time, start_date, end_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
RETURNING id, created_at`

	loanColumns = `id, customer_id, loan_amount, interest_rate, tenure, monthly_installment, repayments_left, emis_paid_on_time, start_date, end_date, created_at`

	findLoanByIDQuery = `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	findLoansByCustomerIDQuery = `SELECT ` + loanColumns + ` FROM loans WHERE customer_id = $1 ORDER BY id ASC`

	lockCustomerQuery = `SELECT pg_advisory_xact_lock($1)`
)

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var (
	_ loan.Repository     = (*LoanRepository)(nil)
	_ loan.CustomerLocker = (*LoanRepository)(nil)
)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	if db == nil {
		panic("DBPool cannot be nil for LoanRepository")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) Save(ctx context.Context, l *loan.Loan) (err error) {
	if l == nil {
		return fmt.Errorf("%w: loan cannot be nil", apperrors.ErrInvalidArgument)
	}
	start := time.Now()
	defer func() { observeQuery("InsertLoan", start, err) }()

	err = r.db.QueryRow(ctx, insertLoanQuery,
		l.CustomerID,
		l.LoanAmount,
		l.InterestRate,
		l.Tenure,
		l.MonthlyInstallment,
		l.RepaymentsLeft,
		l.EMIsPaidOnTime,
		l.StartDate,
		l.EndDate,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrNotFound) {
			r.logger.WarnContext(ctx, "Loan references a missing customer", slog.Int64("customerID", l.CustomerID))
			return customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to insert loan", slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Loan inserted successfully", slog.Int64("loanID", l.ID))
	return nil
}

// LockCustomer takes a transaction-scoped advisory lock keyed by the customer
// ID. The lock is held until unlock ends the transaction, so instances sharing
// the database create one customer's loans one at a time.
func (r *LoanRepository) LockCustomer(ctx context.Context, customerID int64) (unlock func(), err error) {
	start := time.Now()
	defer func() { observeQuery("LockCustomer", start, err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin customer lock transaction", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to begin lock transaction: %w", apperrors.ErrDatabase, err)
	}

	if _, err = tx.Exec(ctx, lockCustomerQuery, customerID); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.ErrorContext(ctx, "Failed to roll back customer lock transaction", slog.Any("error", rbErr))
		}
		r.logger.ErrorContext(ctx, "Failed to lock customer", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to lock customer %d: %w", apperrors.ErrDatabase, customerID, err)
	}

	return func() {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.ErrorContext(ctx, "Failed to release customer lock", slog.Int64("customerID", customerID), slog.Any("error", rbErr))
		}
	}, nil
}

func (r *LoanRepository) FindByID(ctx context.Context, loanID int64) (l *loan.Loan, err error) {
	start := time.Now()
	defer func() { observeQuery("FindLoanByID", start, err) }()

	l, err = scanLoan(r.db.QueryRow(ctx, findLoanByIDQuery, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", slog.Int64("loanID", loanID))
			return nil, loan.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find loan by ID", slog.Int64("loanID", loanID), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) FindByCustomerID(ctx context.Context, customerID int64) (loans []*loan.Loan, err error) {
	start := time.Now()
	defer func() { observeQuery("FindLoansByCustomerID", start, err) }()

	rows, err := r.db.Query(ctx, findLoansByCustomerIDQuery, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query loans: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans = make([]*loan.Loan, 0)
	for rows.Next() {
		l, scanErr := scanLoan(rows)
		if scanErr != nil {
			err = scanErr
			r.logger.ErrorContext(ctx, "Failed to scan loan row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed scanning loan: %w", apperrors.ErrDatabase, err)
		}
		loans = append(loans, l)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed iterating loans: %w", apperrors.ErrDatabase, err)
	}

	return loans, nil
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID,
		&l.CustomerID,
		&l.LoanAmount,
		&l.InterestRate,
		&l.Tenure,
		&l.MonthlyInstallment,
		&l.RepaymentsLeft,
		&l.EMIsPaidOnTime,
		&l.StartDate,
		&l.EndDate,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
