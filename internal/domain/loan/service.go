package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"
)

type LoanService interface {
	CheckEligibility(ctx context.Context, app Application) (*EligibilityResult, error)

	CreateLoan(ctx context.Context, app Application) (*CreationResult, error)

	ListLoans(ctx context.Context, customerID int64) ([]*Loan, error)

	GetLoan(ctx context.Context, loanID int64) (*LoanDetail, error)
}

type EligibilityResult struct {
	CustomerID int64
	LoanAmount float64
	Tenure     int
	Decision
}

// CreationResult carries the decision and, when approved, the stored loan.
type CreationResult struct {
	Decision
	Loan *Loan
}

func (r *CreationResult) LoanID() int64 {
	if r.Loan == nil {
		return 0
	}
	return r.Loan.ID
}

type LoanDetail struct {
	Loan     *Loan
	Customer *customer.Customer
}

var _ LoanService = (*loanServiceImpl)(nil)

type loanServiceImpl struct {
	repo            Repository
	customerService customer.CustomerService
	pub             event.EventPublisher
	policy          Policy
	locks           *customerLocks
	now             func() time.Time
	logger          *slog.Logger
}

func NewLoanService(r Repository, cs customer.CustomerService, pub event.EventPublisher, policy Policy, logger *slog.Logger) LoanService {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = event.NewLogEventPublisher(logger)
	}
	return &loanServiceImpl{
		repo:            r,
		customerService: cs,
		pub:             pub,
		policy:          policy,
		locks:           newCustomerLocks(),
		now:             time.Now,
		logger:          logger.With(slog.String("component", "loanService")),
	}
}

func (s *loanServiceImpl) CheckEligibility(ctx context.Context, app Application) (*EligibilityResult, error) {
	logger := s.logger.With(slog.Int64("customerID", app.CustomerID))
	logger.InfoContext(ctx, "Checking loan eligibility")

	decision, _, err := s.evaluate(ctx, app)
	if err != nil {
		return nil, err
	}
	monitoring.RecordLoanDecision("check", decision.Approved)

	logger.InfoContext(ctx, "Eligibility evaluated",
		slog.Bool("approved", decision.Approved),
		slog.Float64("monthlyInstallment", decision.MonthlyInstallment),
	)
	return &EligibilityResult{
		CustomerID: app.CustomerID,
		LoanAmount: app.LoanAmount,
		Tenure:     app.Tenure,
		Decision:   decision,
	}, nil
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, app Application) (*CreationResult, error) {
	logger := s.logger.With(slog.Int64("customerID", app.CustomerID))
	logger.InfoContext(ctx, "Creating new loan")

	if err := s.validate(app); err != nil {
		logger.WarnContext(ctx, "Loan application rejected by validation", slog.Any("error", err))
		return nil, err
	}

	unlock := s.locks.lock(app.CustomerID)
	defer unlock()

	if locker, ok := s.repo.(CustomerLocker); ok {
		release, err := locker.LockCustomer(ctx, app.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to lock customer %d: %w", apperrors.ErrInternalServer, app.CustomerID, err)
		}
		defer release()
	}

	decision, history, err := s.evaluate(ctx, app)
	if err != nil {
		return nil, err
	}
	monitoring.RecordLoanDecision("create", decision.Approved)

	if !decision.Approved {
		logger.InfoContext(ctx, "Loan not approved", slog.String("reason", decision.Message))
		return &CreationResult{Decision: decision}, nil
	}

	loan := NewLoan(app, decision.CorrectedInterestRate, decision.MonthlyInstallment, s.now())
	if err := s.repo.Save(ctx, loan); err != nil {
		logger.ErrorContext(ctx, "Failed to save loan", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to save loan: %w", apperrors.ErrInternalServer, err)
	}

	debt := CurrentDebt(slices.Concat(history, []*Loan{loan}))
	if debtErr := s.customerService.UpdateCurrentDebt(ctx, app.CustomerID, debt); debtErr != nil {
		logger.ErrorContext(ctx, "Loan created, but failed to update current debt", slog.Any("error", debtErr))
	}

	created := event.LoanCreatedEvent{
		Timestamp: time.Now().UTC(),
		Payload:   NewLoanPayload(loan),
	}
	if pubErr := s.pub.PublishLoanCreated(ctx, created); pubErr != nil {
		logger.ErrorContext(ctx, "Loan created, but failed to publish creation event", slog.Any("error", pubErr))
	}

	logger.InfoContext(ctx, "Loan created successfully",
		slog.Int64("loanID", loan.ID),
		slog.Float64("monthlyInstallment", loan.MonthlyInstallment),
	)
	return &CreationResult{Decision: decision, Loan: loan}, nil
}

func (s *loanServiceImpl) ListLoans(ctx context.Context, customerID int64) ([]*Loan, error) {
	if customerID <= 0 {
		return []*Loan{}, nil
	}

	loans, err := s.repo.FindByCustomerID(ctx, customerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to list loans for customer %d: %w", apperrors.ErrInternalServer, customerID, err)
	}
	if loans == nil {
		loans = []*Loan{}
	}
	return loans, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*LoanDetail, error) {
	if loanID <= 0 {
		return nil, apperrors.NewValidationError("loan_id", "must be a positive integer")
	}

	loan, err := s.repo.FindByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", slog.Int64("loanID", loanID))
			return nil, fmt.Errorf("%w: loan with ID %d does not exist", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", slog.Int64("loanID", loanID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get loan %d: %w", apperrors.ErrInternalServer, loanID, err)
	}

	cust, err := s.customerService.GetCustomer(ctx, loan.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner of loan %d: %w", loanID, err)
	}

	return &LoanDetail{Loan: loan, Customer: cust}, nil
}

func (s *loanServiceImpl) validate(app Application) error {
	return app.Validate(s.policy.MaxTenureMonths, s.policy.MaxInterestRate, s.policy.MaxLoanAmount)
}

// evaluate runs the single eligibility path used by both CheckEligibility
// and CreateLoan. It also returns the loan history the decision was based on.
func (s *loanServiceImpl) evaluate(ctx context.Context, app Application) (Decision, []*Loan, error) {
	if err := s.validate(app); err != nil {
		return Decision{}, nil, err
	}

	cust, err := s.customerService.GetCustomer(ctx, app.CustomerID)
	if err != nil {
		return Decision{}, nil, err
	}

	history, err := s.repo.FindByCustomerID(ctx, app.CustomerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load loan history", slog.Int64("customerID", app.CustomerID), slog.Any("error", err))
		return Decision{}, nil, fmt.Errorf("%w: failed to load loan history: %w", apperrors.ErrInternalServer, err)
	}

	decision, err := s.policy.Evaluate(cust, history, app, s.now())
	if err != nil {
		s.logger.WarnContext(ctx, "Loan application cannot be evaluated", slog.Int64("customerID", app.CustomerID), slog.Any("error", err))
		return Decision{}, nil, err
	}
	return decision, history, nil
}

func NewLoanPayload(l *Loan) event.LoanPayload {
	if l == nil {
		return event.LoanPayload{}
	}
	return event.LoanPayload{
		LoanID:             l.ID,
		CustomerID:         l.CustomerID,
		LoanAmount:         l.LoanAmount,
		InterestRate:       l.InterestRate,
		Tenure:             l.Tenure,
		MonthlyInstallment: l.MonthlyInstallment,
		StartDate:          l.StartDate,
		EndDate:            l.EndDate,
	}
}
