package loan

import (
	"context"
	"fmt"

	"loan-engine/internal/pkg/apperrors"
)

var ErrNotFound = fmt.Errorf("%w: loan", apperrors.ErrNotFound)

type Repository interface {
	// Save inserts the loan and sets its ID and CreatedAt.
	Save(ctx context.Context, loan *Loan) error

	FindByID(ctx context.Context, loanID int64) (*Loan, error)

	// FindByCustomerID returns the customer's loans oldest first.
	FindByCustomerID(ctx context.Context, customerID int64) ([]*Loan, error)
}

// CustomerLocker is implemented by repositories shared between processes.
// CreateLoan holds the lock across the affordability check and the insert.
type CustomerLocker interface {
	LockCustomer(ctx context.Context, customerID int64) (unlock func(), err error)
}
