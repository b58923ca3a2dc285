package loan

import (
	"math"
	"time"

	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const (
	DefaultMaxTenureMonths = 600
	DefaultMaxInterestRate = 100.0
	DefaultMaxLoanAmount   = 1_000_000_000_000.0
)

// Column limits of loans.loan_amount NUMERIC(15,2) and loans.interest_rate
// NUMERIC(7,4). Configured maximums above these are clamped so every
// validated application can be stored as-is.
const (
	storableLoanAmount   = 1_000_000_000_000.0
	storableInterestRate = 999.9999
	loanAmountDecimals   = 2
	interestRateDecimals = 4
)

type Loan struct {
	ID                 int64
	CustomerID         int64
	LoanAmount         float64
	InterestRate       float64
	Tenure             int
	MonthlyInstallment float64
	RepaymentsLeft     int
	EMIsPaidOnTime     int
	StartDate          time.Time
	EndDate            time.Time
	CreatedAt          time.Time
}

// Application is a request for a new loan. It is evaluated the same way
// whether or not the caller intends to persist the result.
type Application struct {
	CustomerID   int64
	LoanAmount   float64
	InterestRate float64
	Tenure       int
}

// Validate checks the application against the configured maximums. Zero
// maximums fall back to the defaults.
func (a Application) Validate(maxTenure int, maxRate, maxAmount float64) error {
	if maxTenure <= 0 {
		maxTenure = DefaultMaxTenureMonths
	}
	if maxRate <= 0 {
		maxRate = DefaultMaxInterestRate
	}
	if maxAmount <= 0 {
		maxAmount = DefaultMaxLoanAmount
	}
	maxRate = min(maxRate, storableInterestRate)
	maxAmount = min(maxAmount, storableLoanAmount)

	var errs []error
	if a.CustomerID <= 0 {
		errs = append(errs, apperrors.NewValidationError("customer_id", "must be a positive integer"))
	}
	switch {
	case !(a.LoanAmount > 0):
		errs = append(errs, apperrors.NewValidationError("loan_amount", "must be greater than 0"))
	case a.LoanAmount > maxAmount:
		errs = append(errs, apperrors.NewValidationError("loan_amount", "must not exceed the maximum loan amount"))
	case !hasAtMostDecimals(a.LoanAmount, loanAmountDecimals):
		errs = append(errs, apperrors.NewValidationError("loan_amount", "must have at most 2 decimal places"))
	}
	switch {
	case !(a.InterestRate > 0):
		errs = append(errs, apperrors.NewValidationError("interest_rate", "must be greater than 0"))
	case a.InterestRate > maxRate:
		errs = append(errs, apperrors.NewValidationError("interest_rate", "must not exceed the maximum annual rate"))
	case !hasAtMostDecimals(a.InterestRate, interestRateDecimals):
		errs = append(errs, apperrors.NewValidationError("interest_rate", "must have at most 4 decimal places"))
	}
	switch {
	case a.Tenure < 1:
		errs = append(errs, apperrors.NewValidationError("tenure", "must be at least 1 month"))
	case a.Tenure > maxTenure:
		errs = append(errs, apperrors.NewValidationError("tenure", "must not exceed the maximum tenure"))
	}
	return apperrors.JoinValidation(errs...)
}

func hasAtMostDecimals(v float64, places int32) bool {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return false
	}
	d := decimal.NewFromFloat(v)
	return d.Equal(d.Round(places))
}

// NewLoan builds an approved loan. The installment is fixed here and never
// recomputed.
func NewLoan(app Application, appliedRate, monthlyInstallment float64, now time.Time) *Loan {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return &Loan{
		CustomerID:         app.CustomerID,
		LoanAmount:         app.LoanAmount,
		InterestRate:       appliedRate,
		Tenure:             app.Tenure,
		MonthlyInstallment: monthlyInstallment,
		RepaymentsLeft:     app.Tenure,
		EMIsPaidOnTime:     0,
		StartDate:          start,
		EndDate:            start.AddDate(0, app.Tenure, 0),
		CreatedAt:          now,
	}
}

func (l *Loan) IsActive() bool {
	return l.RepaymentsLeft > 0
}

// OutstandingAmount is what remains to be paid at the fixed installment.
func (l *Loan) OutstandingAmount() float64 {
	if !l.IsActive() {
		return 0
	}
	return roundMoney(l.MonthlyInstallment * float64(l.RepaymentsLeft))
}

// CurrentDebt is what a customer still owes across the given loans.
func CurrentDebt(loans []*Loan) float64 {
	total := decimal.Zero
	for _, l := range loans {
		total = total.Add(decimal.NewFromFloat(l.OutstandingAmount()))
	}
	return total.Round(2).InexactFloat64()
}
