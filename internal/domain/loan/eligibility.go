package loan

import (
	"fmt"
	"time"

	"loan-engine/internal/domain/customer"

	"github.com/shopspring/decimal"
)

const (
	// NoHistoryCreditScore is assigned to customers without any loans.
	NoHistoryCreditScore = 50

	mediumRiskFloorRate = 12.0
	highRiskFloorRate   = 16.0
)

// Policy is the underwriting configuration shared by eligibility checks and
// loan creation.
type Policy struct {
	AffordabilityRatio          float64
	IncludeExistingInstallments bool
	CreditScoring               bool
	MaxTenureMonths             int
	MaxInterestRate             float64
	MaxLoanAmount               float64
}

func DefaultPolicy() Policy {
	return Policy{
		AffordabilityRatio:          0.5,
		IncludeExistingInstallments: true,
		MaxTenureMonths:             DefaultMaxTenureMonths,
		MaxInterestRate:             DefaultMaxInterestRate,
		MaxLoanAmount:               DefaultMaxLoanAmount,
	}
}

type Decision struct {
	Approved              bool
	InterestRate          float64
	CorrectedInterestRate float64
	MonthlyInstallment    float64
	ExistingInstallments  float64
	AffordableLimit       float64
	CreditScore           int
	Message               string
}

// Evaluate decides whether cust can take on the loan described by app given
// the loans already on record. It has no side effects. An error means the
// installment itself could not be computed.
func (p Policy) Evaluate(cust *customer.Customer, history []*Loan, app Application, now time.Time) (Decision, error) {
	d := Decision{
		InterestRate:          app.InterestRate,
		CorrectedInterestRate: app.InterestRate,
	}

	if p.CreditScoring {
		d.CreditScore = CreditScore(cust, history, now)
		rate, ok := CorrectedRate(d.CreditScore, app.InterestRate)
		d.CorrectedInterestRate = rate
		if !ok {
			emi, err := MonthlyInstallment(app.LoanAmount, rate, app.Tenure)
			if err != nil {
				return Decision{}, err
			}
			d.MonthlyInstallment = emi
			d.Message = fmt.Sprintf("credit score %d is too low for a new loan", d.CreditScore)
			return d, nil
		}
	}

	emi, err := MonthlyInstallment(app.LoanAmount, d.CorrectedInterestRate, app.Tenure)
	if err != nil {
		return Decision{}, err
	}
	d.MonthlyInstallment = emi

	existing := decimal.Zero
	if p.IncludeExistingInstallments {
		for _, l := range history {
			if l.IsActive() {
				existing = existing.Add(decimal.NewFromFloat(l.MonthlyInstallment))
			}
		}
	}
	limit := decimal.NewFromInt(cust.MonthlySalary).Mul(decimal.NewFromFloat(p.AffordabilityRatio)).Round(2)
	total := existing.Add(decimal.NewFromFloat(d.MonthlyInstallment))

	d.ExistingInstallments = existing.InexactFloat64()
	d.AffordableLimit = limit.InexactFloat64()

	if total.GreaterThan(limit) {
		if existing.IsZero() {
			d.Message = fmt.Sprintf("installment exceeds affordable limit: %s per month against a limit of %s",
				total.StringFixed(2), limit.StringFixed(2))
		} else {
			d.Message = fmt.Sprintf("installment exceeds affordable limit: %s per month including %s of existing installments against a limit of %s",
				total.StringFixed(2), existing.StringFixed(2), limit.StringFixed(2))
		}
		return d, nil
	}

	d.Approved = true
	return d, nil
}

// CreditScore rates a customer from 0 to 100 using their loan history.
func CreditScore(cust *customer.Customer, history []*Loan, now time.Time) int {
	if len(history) == 0 {
		return NoHistoryCreditScore
	}

	var (
		totalEMIs, paidOnTime, currentYear int
		volume, activePrincipal            decimal.Decimal
	)
	year := now.Year()
	for _, l := range history {
		totalEMIs += l.Tenure
		paidOnTime += l.EMIsPaidOnTime
		if l.StartDate.Year() == year || l.EndDate.Year() == year {
			currentYear++
		}
		amount := decimal.NewFromFloat(l.LoanAmount)
		volume = volume.Add(amount)
		if l.IsActive() {
			activePrincipal = activePrincipal.Add(amount)
		}
	}

	onTime := 0
	if totalEMIs > 0 {
		onTime = min(30, int(float64(paidOnTime)/float64(totalEMIs)*30))
	}
	count := min(15, len(history)*3)
	recent := min(20, currentYear*5)

	var volumeScore int
	switch {
	case volume.GreaterThan(decimal.NewFromInt(1_000_000)):
		volumeScore = 20
	case volume.GreaterThan(decimal.NewFromInt(500_000)):
		volumeScore = 15
	case volume.GreaterThan(decimal.NewFromInt(100_000)):
		volumeScore = 10
	case volume.IsPositive():
		volumeScore = 5
	}

	limitScore := 15
	if activePrincipal.GreaterThan(decimal.NewFromInt(cust.ApprovedLimit)) {
		limitScore = 0
	}

	return onTime + count + recent + volumeScore + limitScore
}

// CorrectedRate applies the rate floor for a credit score band. ok is false
// when the score is too low for any loan.
func CorrectedRate(score int, rate float64) (corrected float64, ok bool) {
	switch {
	case score > 50:
		return rate, true
	case score > 30:
		return max(rate, mediumRiskFloorRate), true
	case score > 10:
		return max(rate, highRiskFloorRate), true
	default:
		return rate, false
	}
}
