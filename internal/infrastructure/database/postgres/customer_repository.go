package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const (
	insertCustomerQuery = `INSERT INTO customers (first_name, last_name, age, monthly_salary, approved_limit, phone_number, current_debt, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
RETURNING id, created_at, updated_at`

	customerColumns = `id, first_name, last_name, age, monthly_salary, approved_limit, phone_number, current_debt, created_at, updated_at`

	findCustomerByIDQuery = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	findAllCustomersQuery = `SELECT ` + customerColumns + ` FROM customers ORDER BY id`

	updateCurrentDebtQuery = `UPDATE customers SET current_debt = $1, updated_at = NOW() WHERE id = $2`
)

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository"),
	}
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) (err error) {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}
	start := time.Now()
	defer func() { observeQuery("InsertCustomer", start, err) }()

	err = r.db.QueryRow(ctx, insertCustomerQuery,
		cust.FirstName,
		cust.LastName,
		cust.Age,
		cust.MonthlySalary,
		cust.ApprovedLimit,
		cust.PhoneNumber,
		cust.CurrentDebt,
	).Scan(
		&cust.CustomerID,
		&cust.CreateDate,
		&cust.UpdatedAt,
	)
	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert customer due to unique constraint violation")
			return customer.ErrDuplicatePhone
		}
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert customer: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Customer inserted successfully", slog.Int64("customerID", cust.CustomerID))
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (cust *customer.Customer, err error) {
	start := time.Now()
	defer func() { observeQuery("FindCustomerByID", start, err) }()

	cust, err = scanCustomer(r.db.QueryRow(ctx, findCustomerByIDQuery, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Customer not found", slog.Int64("customerID", customerID))
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find customer by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to find customer %d: %w", apperrors.ErrDatabase, customerID, err)
	}
	return cust, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context) (customers []*customer.Customer, err error) {
	start := time.Now()
	defer func() { observeQuery("FindAllCustomers", start, err) }()

	rows, err := r.db.Query(ctx, findAllCustomersQuery)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query customers: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers = make([]*customer.Customer, 0)
	for rows.Next() {
		cust, scanErr := scanCustomer(rows)
		if scanErr != nil {
			err = scanErr
			r.logger.ErrorContext(ctx, "Failed to scan customer row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed scanning customer: %w", apperrors.ErrDatabase, err)
		}
		customers = append(customers, cust)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating customer rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed iterating customers: %w", apperrors.ErrDatabase, err)
	}

	return customers, nil
}

func (r *CustomerRepository) UpdateCurrentDebt(ctx context.Context, customerID int64, debt float64) (err error) {
	start := time.Now()
	defer func() { observeQuery("UpdateCurrentDebt", start, err) }()

	cmdTag, err := r.db.Exec(ctx, updateCurrentDebtQuery, debt, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update current debt", slog.Int64("customerID", customerID), slog.Any("error", err))
		return fmt.Errorf("%w: failed to update current debt: %w", apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, customer likely not found", slog.Int64("customerID", customerID))
		return customer.ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var cust customer.Customer
	err := row.Scan(
		&cust.CustomerID,
		&cust.FirstName,
		&cust.LastName,
		&cust.Age,
		&cust.MonthlySalary,
		&cust.ApprovedLimit,
		&cust.PhoneNumber,
		&cust.CurrentDebt,
		&cust.CreateDate,
		&cust.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cust, nil
}
