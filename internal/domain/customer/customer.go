package customer

import (
	"regexp"
	"strings"
	"time"

	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const (
	MinimumAge = 18

	// MaximumMonthlySalary keeps the approved limit well inside int64.
	MaximumMonthlySalary = 1_000_000_000_000
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

type Customer struct {
	CustomerID    int64     `json:"customerId"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Age           int       `json:"age"`
	MonthlySalary int64     `json:"monthlySalary"`
	ApprovedLimit int64     `json:"approvedLimit"`
	PhoneNumber   string    `json:"phoneNumber"`
	CurrentDebt   float64   `json:"currentDebt"`
	CreateDate    time.Time `json:"createDate"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Registration is the intake form for a new customer.
type Registration struct {
	FirstName     string
	LastName      string
	Age           int
	MonthlySalary int64
	PhoneNumber   string
}

// LimitPolicy derives the approved credit limit from the monthly salary:
// the salary times Multiplier, rounded up to a whole multiple of Rounding.
type LimitPolicy struct {
	Multiplier int64
	Rounding   int64
}

func DefaultLimitPolicy() LimitPolicy {
	return LimitPolicy{Multiplier: 36, Rounding: 100000}
}

func (p LimitPolicy) ApprovedLimit(monthlySalary int64) int64 {
	raw := decimal.NewFromInt(p.Multiplier).Mul(decimal.NewFromInt(monthlySalary))
	if p.Rounding <= 0 {
		return raw.IntPart()
	}
	step := decimal.NewFromInt(p.Rounding)
	return raw.Div(step).Ceil().Mul(step).IntPart()
}

// Normalize trims surrounding whitespace from the text fields.
func (r Registration) Normalize() Registration {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	return r
}

// Validate reports every offending field at once.
func (r Registration) Validate() error {
	var errs []error
	if strings.TrimSpace(r.FirstName) == "" {
		errs = append(errs, apperrors.NewValidationError("first_name", "is required"))
	}
	if strings.TrimSpace(r.LastName) == "" {
		errs = append(errs, apperrors.NewValidationError("last_name", "is required"))
	}
	if r.Age < MinimumAge {
		errs = append(errs, apperrors.NewValidationError("age", "must be at least 18"))
	}
	switch {
	case r.MonthlySalary < 0:
		errs = append(errs, apperrors.NewValidationError("monthly_salary", "must not be negative"))
	case r.MonthlySalary > MaximumMonthlySalary:
		errs = append(errs, apperrors.NewValidationError("monthly_salary", "must not exceed 1000000000000"))
	}
	if !phonePattern.MatchString(strings.TrimSpace(r.PhoneNumber)) {
		errs = append(errs, apperrors.NewValidationError("phone_number", "must be exactly 10 digits"))
	}
	return apperrors.JoinValidation(errs...)
}

func NewCustomer(reg Registration, policy LimitPolicy) *Customer {
	now := time.Now().UTC()
	reg = reg.Normalize()
	return &Customer{
		FirstName:     reg.FirstName,
		LastName:      reg.LastName,
		Age:           reg.Age,
		MonthlySalary: reg.MonthlySalary,
		ApprovedLimit: policy.ApprovedLimit(reg.MonthlySalary),
		PhoneNumber:   reg.PhoneNumber,
		CreateDate:    now,
		UpdatedAt:     now,
	}
}

func (c *Customer) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c *Customer) SetCurrentDebt(debt float64) {
	if c.CurrentDebt != debt {
		c.CurrentDebt = debt
		c.UpdatedAt = time.Now().UTC()
	}
}
