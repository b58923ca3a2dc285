package event

import (
	"context"
	"time"
)

const (
	RoutingKeyCustomerRegistered = "customer.registered"
	RoutingKeyLoanCreated        = "loan.created"
)

type EventPublisher interface {
	PublishCustomerRegistered(ctx context.Context, event CustomerRegisteredEvent) error
	PublishLoanCreated(ctx context.Context, event LoanCreatedEvent) error
}

type CustomerPayload struct {
	CustomerID    int64     `json:"customerId"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Age           int       `json:"age"`
	MonthlySalary int64     `json:"monthlySalary"`
	ApprovedLimit int64     `json:"approvedLimit"`
	PhoneNumber   string    `json:"phoneNumber"`
	CreatedAt     time.Time `json:"createdAt"`
}

type CustomerRegisteredEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	Payload   CustomerPayload `json:"payload"`
}

type LoanPayload struct {
	LoanID             int64     `json:"loanId"`
	CustomerID         int64     `json:"customerId"`
	LoanAmount         float64   `json:"loanAmount"`
	InterestRate       float64   `json:"interestRate"`
	Tenure             int       `json:"tenure"`
	MonthlyInstallment float64   `json:"monthlyInstallment"`
	StartDate          time.Time `json:"startDate"`
	EndDate            time.Time `json:"endDate"`
}

type LoanCreatedEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	Payload   LoanPayload `json:"payload"`
}
