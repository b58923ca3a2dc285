package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"
)

type CustomerService interface {
	Register(ctx context.Context, reg Registration) (*Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
	ListCustomers(ctx context.Context) ([]*Customer, error)
	UpdateCurrentDebt(ctx context.Context, customerID int64, debt float64) error
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo   CustomerRepository
	pub    event.EventPublisher
	policy LimitPolicy
	logger *slog.Logger
}

func NewCustomerService(repo CustomerRepository, publisher event.EventPublisher, policy LimitPolicy, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("No logger provided to NewCustomerService, using default stderr handler")
	}

	if publisher == nil {
		publisher = event.NewLogEventPublisher(logger)
	}

	return &customerService{
		repo:   repo,
		pub:    publisher,
		policy: policy,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func NewCustomerPayload(cust *Customer) event.CustomerPayload {
	if cust == nil {
		return event.CustomerPayload{}
	}
	return event.CustomerPayload{
		CustomerID:    cust.CustomerID,
		FirstName:     cust.FirstName,
		LastName:      cust.LastName,
		Age:           cust.Age,
		MonthlySalary: cust.MonthlySalary,
		ApprovedLimit: cust.ApprovedLimit,
		PhoneNumber:   cust.PhoneNumber,
		CreatedAt:     cust.CreateDate,
	}
}

func (s *customerService) Register(ctx context.Context, reg Registration) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to register customer")

	if err := reg.Validate(); err != nil {
		s.logger.WarnContext(ctx, "Registration rejected by validation", slog.Any("error", err))
		return nil, err
	}

	cust := NewCustomer(reg, s.policy)
	if err := s.repo.Save(ctx, cust); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			s.logger.WarnContext(ctx, "Phone number already registered")
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Repository failed to save new customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}
	monitoring.RecordCustomerRegistered()

	logger := s.logger.With(slog.Int64("customerID", cust.CustomerID))
	registered := event.CustomerRegisteredEvent{
		Timestamp: time.Now().UTC(),
		Payload:   NewCustomerPayload(cust),
	}
	if pubErr := s.pub.PublishCustomerRegistered(ctx, registered); pubErr != nil {
		logger.ErrorContext(ctx, "Customer registered, but failed to publish registration event", slog.Any("error", pubErr))
	}

	logger.InfoContext(ctx, "Successfully registered customer", slog.Int64("approvedLimit", cust.ApprovedLimit))
	return cust, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	logger := s.logger.With(slog.Int64("customerID", customerID))
	if customerID <= 0 {
		return nil, apperrors.NewValidationError("customer_id", "must be a positive integer")
	}

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Customer not found by repository")
			return nil, fmt.Errorf("%w: customer with ID %d does not exist", apperrors.ErrNotFound, customerID)
		}
		logger.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %d: %w", customerID, err)
	}

	return cust, nil
}

func (s *customerService) ListCustomers(ctx context.Context) ([]*Customer, error) {
	customers, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) UpdateCurrentDebt(ctx context.Context, customerID int64, debt float64) error {
	if debt < 0 {
		return apperrors.NewValidationError("current_debt", "must not be negative")
	}

	if err := s.repo.UpdateCurrentDebt(ctx, customerID, debt); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: customer with ID %d does not exist", apperrors.ErrNotFound, customerID)
		}
		s.logger.ErrorContext(ctx, "Repository error updating current debt",
			slog.Int64("customerID", customerID), slog.Any("error", err))
		return fmt.Errorf("failed to update current debt for customer %d: %w", customerID, err)
	}
	return nil
}
