package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"
)

// LoanRepository keeps loans in process memory, indexed by customer in
// insertion order.
type LoanRepository struct {
	mu         sync.RWMutex
	nextID     atomic.Int64
	customers  customer.CustomerRepository
	byID       map[int64]*loan.Loan
	byCustomer map[int64][]int64
}

var _ loan.Repository = (*LoanRepository)(nil)

// NewLoanRepository returns an empty store. When customers is non-nil, Save
// rejects loans for unknown customers the way a foreign key would.
func NewLoanRepository(customers customer.CustomerRepository) *LoanRepository {
	return &LoanRepository{
		customers:  customers,
		byID:       make(map[int64]*loan.Loan),
		byCustomer: make(map[int64][]int64),
	}
}

func (r *LoanRepository) Save(ctx context.Context, l *loan.Loan) error {
	if l == nil {
		return fmt.Errorf("%w: loan cannot be nil", apperrors.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.customers != nil {
		if _, err := r.customers.FindByID(ctx, l.CustomerID); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l.ID = r.nextID.Add(1)
	l.CreatedAt = time.Now().UTC()

	stored := *l
	r.byID[stored.ID] = &stored
	r.byCustomer[stored.CustomerID] = append(r.byCustomer[stored.CustomerID], stored.ID)
	return nil
}

func (r *LoanRepository) FindByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byID[loanID]
	if !ok {
		return nil, loan.ErrNotFound
	}
	l := *stored
	return &l, nil
}

func (r *LoanRepository) FindByCustomerID(ctx context.Context, customerID int64) ([]*loan.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byCustomer[customerID]
	loans := make([]*loan.Loan, 0, len(ids))
	for _, id := range ids {
		l := *r.byID[id]
		loans = append(loans, &l)
	}
	return loans, nil
}
