package loan

import (
	"math"

	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// MonthlyInstallment returns the equated monthly installment for an
// amortizing loan, rounded up to the cent so that installment × tenure
// always covers the principal. Inputs whose installment cannot be
// represented are reported as a validation error on loan_amount.
func MonthlyInstallment(principal, annualRate float64, tenure int) (float64, error) {
	if tenure <= 0 || principal <= 0 {
		return 0, nil
	}

	r := annualRate / 12 / 100
	var emi float64
	if r == 0 {
		emi = principal / float64(tenure)
	} else {
		// P·r / (1 − (1+r)^−n); expm1/log1p keep the denominator exact for tiny r.
		discount := -math.Expm1(-float64(tenure) * math.Log1p(r))
		emi = principal * (r / discount)
	}

	if math.IsNaN(emi) || math.IsInf(emi, 0) || emi <= 0 {
		return 0, apperrors.NewValidationError("loan_amount", "results in an installment that cannot be computed")
	}
	return decimal.NewFromFloat(emi).RoundCeil(2).InexactFloat64(), nil
}

func roundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
