package event

import (
	"context"
	"log/slog"

	"loan-engine/internal/infrastructure/monitoring"
)

// LogEventPublisher writes events to the log instead of a broker. It is used
// when RabbitMQ is disabled or unreachable at startup.
type LogEventPublisher struct {
	logger *slog.Logger
}

var _ EventPublisher = (*LogEventPublisher)(nil)

func NewLogEventPublisher(logger *slog.Logger) *LogEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventPublisher{logger: logger.With("component", "LogEventPublisher")}
}

func (p *LogEventPublisher) PublishCustomerRegistered(ctx context.Context, event CustomerRegisteredEvent) error {
	p.logger.InfoContext(ctx, "Domain event",
		slog.String("routingKey", RoutingKeyCustomerRegistered),
		slog.Int64("customerId", event.Payload.CustomerID),
	)
	monitoring.RecordEventPublished(RoutingKeyCustomerRegistered, "logged")
	return nil
}

func (p *LogEventPublisher) PublishLoanCreated(ctx context.Context, event LoanCreatedEvent) error {
	p.logger.InfoContext(ctx, "Domain event",
		slog.String("routingKey", RoutingKeyLoanCreated),
		slog.Int64("loanId", event.Payload.LoanID),
		slog.Int64("customerId", event.Payload.CustomerID),
	)
	monitoring.RecordEventPublished(RoutingKeyLoanCreated, "logged")
	return nil
}
