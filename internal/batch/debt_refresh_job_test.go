package batch_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"loan-engine/internal/batch"
	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/database/memory"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) Register(ctx context.Context, reg customer.Registration) (*customer.Customer, error) {
	args := m.Called(ctx, reg)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) ListCustomers(ctx context.Context) ([]*customer.Customer, error) {
	args := m.Called(ctx)
	if cs, ok := args.Get(0).([]*customer.Customer); ok {
		return cs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) UpdateCurrentDebt(ctx context.Context, customerID int64, debt float64) error {
	return m.Called(ctx, customerID, debt).Error(0)
}

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CheckEligibility(ctx context.Context, app loan.Application) (*loan.EligibilityResult, error) {
	args := m.Called(ctx, app)
	if res, ok := args.Get(0).(*loan.EligibilityResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) CreateLoan(ctx context.Context, app loan.Application) (*loan.CreationResult, error) {
	args := m.Called(ctx, app)
	if res, ok := args.Get(0).(*loan.CreationResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context, customerID int64) ([]*loan.Loan, error) {
	args := m.Called(ctx, customerID)
	if loans, ok := args.Get(0).([]*loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID int64) (*loan.LoanDetail, error) {
	args := m.Called(ctx, loanID)
	if d, ok := args.Get(0).(*loan.LoanDetail); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func runsWith(result string) float64 {
	return testutil.ToFloat64(monitoring.Business.DebtRefreshRunsTotal.WithLabelValues(result))
}

func TestNewDebtRefreshJobPanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() { batch.NewDebtRefreshJob(nil, new(MockLoanService), logger) })
}

func TestDebtRefreshJobRun(t *testing.T) {
	ctx := context.Background()

	t.Run("updates only customers whose debt changed", func(t *testing.T) {
		customers := new(MockCustomerService)
		loans := new(MockLoanService)
		customers.On("ListCustomers", mock.Anything).Return([]*customer.Customer{
			{CustomerID: 1, CurrentDebt: 0},
			{CustomerID: 2, CurrentDebt: 300},
		}, nil).Once()
		loans.On("ListLoans", mock.Anything, int64(1)).Return([]*loan.Loan{{MonthlyInstallment: 250, RepaymentsLeft: 4}}, nil).Once()
		loans.On("ListLoans", mock.Anything, int64(2)).Return([]*loan.Loan{{MonthlyInstallment: 100, RepaymentsLeft: 3}}, nil).Once()
		customers.On("UpdateCurrentDebt", mock.Anything, int64(1), 1000.0).Return(nil).Once()

		before := runsWith("success")
		err := batch.NewDebtRefreshJob(customers, loans, logger).Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, before+1, runsWith("success"))
		customers.AssertExpectations(t)
		loans.AssertExpectations(t)
		customers.AssertNotCalled(t, "UpdateCurrentDebt", mock.Anything, int64(2), mock.Anything)
	})

	t.Run("listing customers fails", func(t *testing.T) {
		customers := new(MockCustomerService)
		customers.On("ListCustomers", mock.Anything).Return(nil, errors.New("db down")).Once()

		before := runsWith("failed")
		err := batch.NewDebtRefreshJob(customers, new(MockLoanService), logger).Run(ctx)

		assert.ErrorContains(t, err, "failed to list customers")
		assert.Equal(t, before+1, runsWith("failed"))
	})

	t.Run("per customer failures are counted", func(t *testing.T) {
		customers := new(MockCustomerService)
		loans := new(MockLoanService)
		customers.On("ListCustomers", mock.Anything).Return([]*customer.Customer{
			{CustomerID: 1},
			{CustomerID: 2},
			{CustomerID: 3},
		}, nil).Once()
		loans.On("ListLoans", mock.Anything, int64(1)).Return(nil, errors.New("timeout")).Once()
		loans.On("ListLoans", mock.Anything, int64(2)).Return([]*loan.Loan{{MonthlyInstallment: 10, RepaymentsLeft: 1}}, nil).Once()
		loans.On("ListLoans", mock.Anything, int64(3)).Return([]*loan.Loan{{MonthlyInstallment: 20, RepaymentsLeft: 1}}, nil).Once()
		customers.On("UpdateCurrentDebt", mock.Anything, int64(2), 10.0).Return(errors.New("write failed")).Once()
		customers.On("UpdateCurrentDebt", mock.Anything, int64(3), 20.0).
			Return(fmt.Errorf("%w: customer with ID 3 does not exist", apperrors.ErrNotFound)).Once()

		before := runsWith("partial")
		err := batch.NewDebtRefreshJob(customers, loans, logger).Run(ctx)

		assert.EqualError(t, err, "job completed with 2 errors")
		assert.Equal(t, before+1, runsWith("partial"))
	})

	t.Run("cancelled context stops the run", func(t *testing.T) {
		customers := new(MockCustomerService)
		customers.On("ListCustomers", mock.Anything).Return([]*customer.Customer{{CustomerID: 1}}, nil).Once()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := batch.NewDebtRefreshJob(customers, new(MockLoanService), logger).Run(cancelled)

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDebtRefreshJobWithMemoryStorage(t *testing.T) {
	ctx := context.Background()
	pub := event.NewLogEventPublisher(logger)
	customerRepo := memory.NewCustomerRepository()
	customers := customer.NewCustomerService(customerRepo, pub, customer.DefaultLimitPolicy(), logger)
	loans := loan.NewLoanService(memory.NewLoanRepository(customerRepo), customers, pub, loan.DefaultPolicy(), logger)

	cust, err := customers.Register(ctx, customer.Registration{FirstName: "Ada", LastName: "Lovelace", Age: 30, MonthlySalary: 50000, PhoneNumber: "9000000001"})
	require.NoError(t, err)
	created, err := loans.CreateLoan(ctx, loan.Application{CustomerID: cust.CustomerID, LoanAmount: 100000, InterestRate: 12, Tenure: 12})
	require.NoError(t, err)
	require.True(t, created.Approved)
	require.NoError(t, customerRepo.UpdateCurrentDebt(ctx, cust.CustomerID, 0))

	require.NoError(t, batch.NewDebtRefreshJob(customers, loans, logger).Run(ctx))

	refreshed, err := customers.GetCustomer(ctx, cust.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, loan.CurrentDebt([]*loan.Loan{created.Loan}), refreshed.CurrentDebt)
	assert.InDelta(t, 8884.88*12, refreshed.CurrentDebt, 0.001)
}
