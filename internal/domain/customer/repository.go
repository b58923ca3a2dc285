package customer

import (
	"context"
	"fmt"

	"loan-engine/internal/pkg/apperrors"
)

var (
	ErrNotFound = fmt.Errorf("%w: customer", apperrors.ErrNotFound)

	ErrDuplicatePhone = fmt.Errorf("%w: phone number is already registered", apperrors.ErrAlreadyExists)
)

type CustomerRepository interface {
	// Save inserts the customer and sets CustomerID and CreateDate.
	Save(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	FindAll(ctx context.Context) ([]*Customer, error)

	UpdateCurrentDebt(ctx context.Context, customerID int64, debt float64) error
}
