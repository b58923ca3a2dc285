package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/pkg/apperrors"
)

// CustomerRepository keeps customers in process memory. Copies are handed
// out so callers cannot mutate stored records.
type CustomerRepository struct {
	mu      sync.RWMutex
	nextID  atomic.Int64
	byID    map[int64]*customer.Customer
	byPhone map[string]int64
	order   []int64
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{
		byID:    make(map[int64]*customer.Customer),
		byPhone: make(map[string]int64),
	}
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byPhone[cust.PhoneNumber]; taken {
		return customer.ErrDuplicatePhone
	}

	now := time.Now().UTC()
	cust.CustomerID = r.nextID.Add(1)
	cust.CreateDate = now
	cust.UpdatedAt = now

	stored := *cust
	r.byID[stored.CustomerID] = &stored
	r.byPhone[stored.PhoneNumber] = stored.CustomerID
	r.order = append(r.order, stored.CustomerID)
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byID[customerID]
	if !ok {
		return nil, customer.ErrNotFound
	}
	cust := *stored
	return &cust, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context) ([]*customer.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	customers := make([]*customer.Customer, 0, len(r.order))
	for _, id := range r.order {
		cust := *r.byID[id]
		customers = append(customers, &cust)
	}
	return customers, nil
}

func (r *CustomerRepository) UpdateCurrentDebt(ctx context.Context, customerID int64, debt float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[customerID]
	if !ok {
		return customer.ErrNotFound
	}
	stored.SetCurrentDebt(debt)
	return nil
}
