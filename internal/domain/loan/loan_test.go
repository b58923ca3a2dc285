package loan

import (
	"math"
	"testing"
	"time"

	"loan-engine/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestApplication_Validate(t *testing.T) {
	valid := Application{CustomerID: 1, LoanAmount: 100000, InterestRate: 12.5, Tenure: 12}

	t.Run("valid application", func(t *testing.T) {
		assert.NoError(t, valid.Validate(600, 100, 0))
	})

	t.Run("zero limits fall back to defaults", func(t *testing.T) {
		app := valid
		app.Tenure = DefaultMaxTenureMonths
		app.LoanAmount = DefaultMaxLoanAmount
		app.InterestRate = 99.9999
		assert.NoError(t, app.Validate(0, 0, 0))
	})

	t.Run("configured maximums above the storable range are clamped", func(t *testing.T) {
		app := valid
		app.LoanAmount = storableLoanAmount + 1
		app.InterestRate = 1000

		err := app.Validate(600, 5000, 1e15)

		fields := apperrors.FieldErrors(err)
		assert.Equal(t, "must not exceed the maximum loan amount", fields["loan_amount"])
		assert.Equal(t, "must not exceed the maximum annual rate", fields["interest_rate"])
	})

	tests := []struct {
		name   string
		mutate func(a *Application)
		field  string
	}{
		{"missing customer", func(a *Application) { a.CustomerID = 0 }, "customer_id"},
		{"zero amount", func(a *Application) { a.LoanAmount = 0 }, "loan_amount"},
		{"negative amount", func(a *Application) { a.LoanAmount = -10 }, "loan_amount"},
		{"zero rate", func(a *Application) { a.InterestRate = 0 }, "interest_rate"},
		{"rate above maximum", func(a *Application) { a.InterestRate = 100.01 }, "interest_rate"},
		{"amount above maximum", func(a *Application) { a.LoanAmount = DefaultMaxLoanAmount + 0.01 }, "loan_amount"},
		{"overflowing amount", func(a *Application) { a.LoanAmount = 1e307 }, "loan_amount"},
		{"infinite amount", func(a *Application) { a.LoanAmount = math.Inf(1) }, "loan_amount"},
		{"fractional cents", func(a *Application) { a.LoanAmount = 1000.005 }, "loan_amount"},
		{"rate finer than four decimals", func(a *Application) { a.InterestRate = 0.00001 }, "interest_rate"},
		{"vanishing rate", func(a *Application) { a.InterestRate = 1e-15 }, "interest_rate"},
		{"not a number rate", func(a *Application) { a.InterestRate = math.NaN() }, "interest_rate"},
		{"zero tenure", func(a *Application) { a.Tenure = 0 }, "tenure"},
		{"tenure above maximum", func(a *Application) { a.Tenure = 601 }, "tenure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := valid
			tt.mutate(&app)

			err := app.Validate(600, 100, 0)

			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Contains(t, apperrors.FieldErrors(err), tt.field)
		})
	}
}

func TestNewLoan(t *testing.T) {
	now := time.Date(2025, time.January, 31, 15, 4, 5, 0, time.FixedZone("IST", 5*3600+1800))
	app := Application{CustomerID: 7, LoanAmount: 100000, InterestRate: 12, Tenure: 12}

	l := NewLoan(app, 14, 8978.71, now)

	assert.Equal(t, int64(0), l.ID)
	assert.Equal(t, int64(7), l.CustomerID)
	assert.Equal(t, 100000.0, l.LoanAmount)
	assert.Equal(t, 14.0, l.InterestRate)
	assert.Equal(t, 8978.71, l.MonthlyInstallment)
	assert.Equal(t, 12, l.RepaymentsLeft)
	assert.Equal(t, 0, l.EMIsPaidOnTime)
	assert.Equal(t, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), l.StartDate)
	assert.Equal(t, l.StartDate.AddDate(0, 12, 0), l.EndDate)
	assert.True(t, l.IsActive())
}

func TestLoan_OutstandingAmount(t *testing.T) {
	l := &Loan{MonthlyInstallment: 8884.88, RepaymentsLeft: 3}
	assert.Equal(t, 26654.64, l.OutstandingAmount())

	l.RepaymentsLeft = 0
	assert.False(t, l.IsActive())
	assert.Zero(t, l.OutstandingAmount())
}

func TestCurrentDebt(t *testing.T) {
	loans := []*Loan{
		{MonthlyInstallment: 8884.88, RepaymentsLeft: 12},
		{MonthlyInstallment: 100.10, RepaymentsLeft: 3},
		{MonthlyInstallment: 5000, RepaymentsLeft: 0},
	}

	assert.Equal(t, 106918.86, CurrentDebt(loans))
	assert.Equal(t, 0.0, CurrentDebt(nil))
}
