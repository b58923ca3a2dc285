package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"
)

const defaultRefreshWorkers = 8

// DebtRefreshJob recomputes every customer's current debt as the sum of
// installment times repayments left over their loans.
type DebtRefreshJob struct {
	customerService customer.CustomerService
	loanService     loan.LoanService
	workers         int
	logger          *slog.Logger
}

func NewDebtRefreshJob(customerSvc customer.CustomerService, loanSvc loan.LoanService, logger *slog.Logger) *DebtRefreshJob {
	if customerSvc == nil || loanSvc == nil || logger == nil {
		panic("DebtRefreshJob dependencies cannot be nil")
	}
	return &DebtRefreshJob{
		customerService: customerSvc,
		loanService:     loanSvc,
		workers:         defaultRefreshWorkers,
		logger:          logger.With("job", "DebtRefresh"),
	}
}

func (j *DebtRefreshJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting current debt refresh job.")

	customers, err := j.customerService.ListCustomers(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list customers, aborting job.", slog.Any("error", err))
		monitoring.RecordDebtRefreshRun("failed")
		return fmt.Errorf("cannot run job, failed to list customers: %w", err)
	}

	var wg sync.WaitGroup
	var updated, unchanged, errorCount atomic.Int32
	sem := make(chan struct{}, j.workers)

	for _, cust := range customers {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(c *customer.Customer) {
			defer wg.Done()
			defer func() { <-sem }()

			changed, refreshErr := j.refreshCustomer(ctx, c)
			switch {
			case refreshErr != nil:
				errorCount.Add(1)
			case changed:
				updated.Add(1)
			default:
				unchanged.Add(1)
			}
		}(cust)
	}
	wg.Wait()

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("total_customers", len(customers)),
		slog.Int("customers_updated", int(updated.Load())),
		slog.Int("customers_unchanged", int(unchanged.Load())),
		slog.Int("errors_encountered", int(errorCount.Load())),
	)

	if err := ctx.Err(); err != nil {
		summaryLog.WarnContext(ctx, "Current debt refresh job interrupted.", slog.Any("error", err))
		monitoring.RecordDebtRefreshRun("interrupted")
		return fmt.Errorf("job interrupted: %w", err)
	}
	if n := errorCount.Load(); n > 0 {
		summaryLog.WarnContext(ctx, "Current debt refresh job finished with errors.")
		monitoring.RecordDebtRefreshRun("partial")
		return fmt.Errorf("job completed with %d errors", n)
	}

	summaryLog.InfoContext(ctx, "Current debt refresh job finished successfully.")
	monitoring.RecordDebtRefreshRun("success")
	return nil
}

func (j *DebtRefreshJob) refreshCustomer(ctx context.Context, c *customer.Customer) (bool, error) {
	logCtx := j.logger.With(slog.Int64("customerID", c.CustomerID))

	loans, err := j.loanService.ListLoans(ctx, c.CustomerID)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to list loans", slog.Any("error", err))
		return false, err
	}

	debt := loan.CurrentDebt(loans)
	if debt == c.CurrentDebt {
		logCtx.DebugContext(ctx, "Current debt already correct.", slog.Float64("current_debt", debt))
		return false, nil
	}

	if err := j.customerService.UpdateCurrentDebt(ctx, c.CustomerID, debt); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logCtx.WarnContext(ctx, "Customer disappeared during debt refresh", slog.Any("error", err))
			return false, nil
		}
		logCtx.ErrorContext(ctx, "Failed to update current debt", slog.Any("error", err))
		return false, err
	}

	logCtx.InfoContext(ctx, "Current debt updated.", slog.Float64("previous", c.CurrentDebt), slog.Float64("current_debt", debt))
	return true, nil
}
