package dto

import (
	"encoding/json"

	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"
)

const dateLayout = "2006-01-02"

// LoanApplicationRequest is shared by the eligibility and create-loan endpoints.
type LoanApplicationRequest struct {
	CustomerID   json.Number `json:"customer_id" swaggertype:"integer" example:"1"`
	LoanAmount   json.Number `json:"loan_amount" swaggertype:"number" example:"100000"`
	InterestRate json.Number `json:"interest_rate" swaggertype:"number" example:"12"`
	Tenure       json.Number `json:"tenure" swaggertype:"integer" example:"12"`
}

func (r *LoanApplicationRequest) ToApplication() (loan.Application, error) {
	customerID, customerErr := parseWholeNumber("customer_id", r.CustomerID)
	amount, amountErr := parseNumber("loan_amount", r.LoanAmount)
	rate, rateErr := parseNumber("interest_rate", r.InterestRate)
	tenure, tenureErr := parseCount("tenure", r.Tenure)
	if err := apperrors.JoinValidation(customerErr, amountErr, rateErr, tenureErr); err != nil {
		return loan.Application{}, err
	}

	return loan.Application{
		CustomerID:   customerID,
		LoanAmount:   amount.InexactFloat64(),
		InterestRate: rate.InexactFloat64(),
		Tenure:       tenure,
	}, nil
}

type EligibilityResponse struct {
	CustomerID            int64   `json:"customer_id"`
	LoanAmount            float64 `json:"loan_amount"`
	Approved              bool    `json:"approved"`
	InterestRate          float64 `json:"interest_rate"`
	CorrectedInterestRate float64 `json:"corrected_interest_rate"`
	Tenure                int     `json:"tenure"`
	MonthlyInstallment    float64 `json:"monthly_installment"`
	Message               string  `json:"message,omitempty"`
}

func NewEligibilityResponse(res *loan.EligibilityResult) EligibilityResponse {
	return EligibilityResponse{
		CustomerID:            res.CustomerID,
		LoanAmount:            roundMoney(res.LoanAmount),
		Approved:              res.Approved,
		InterestRate:          res.InterestRate,
		CorrectedInterestRate: res.CorrectedInterestRate,
		Tenure:                res.Tenure,
		MonthlyInstallment:    roundMoney(res.MonthlyInstallment),
		Message:               res.Message,
	}
}

// CreateLoanResponse omits loan_id when the loan was not approved.
type CreateLoanResponse struct {
	LoanID                *int64  `json:"loan_id,omitempty"`
	CustomerID            int64   `json:"customer_id"`
	LoanApproved          bool    `json:"loan_approved"`
	InterestRate          float64 `json:"interest_rate"`
	CorrectedInterestRate float64 `json:"corrected_interest_rate"`
	MonthlyInstallment    float64 `json:"monthly_installment"`
	Message               string  `json:"message,omitempty"`
}

func NewCreateLoanResponse(customerID int64, res *loan.CreationResult) CreateLoanResponse {
	resp := CreateLoanResponse{
		CustomerID:            customerID,
		LoanApproved:          res.Approved,
		InterestRate:          res.InterestRate,
		CorrectedInterestRate: res.CorrectedInterestRate,
		MonthlyInstallment:    roundMoney(res.MonthlyInstallment),
		Message:               res.Message,
	}
	if res.Loan != nil {
		id := res.LoanID()
		resp.LoanID = &id
	}
	return resp
}

type LoanSummaryResponse struct {
	LoanID             int64   `json:"loan_id"`
	LoanAmount         float64 `json:"loan_amount"`
	InterestRate       float64 `json:"interest_rate"`
	MonthlyInstallment float64 `json:"monthly_installment"`
	RepaymentsLeft     int     `json:"repayments_left"`
}

func NewLoanSummaryResponse(l *loan.Loan) LoanSummaryResponse {
	return LoanSummaryResponse{
		LoanID:             l.ID,
		LoanAmount:         roundMoney(l.LoanAmount),
		InterestRate:       l.InterestRate,
		MonthlyInstallment: roundMoney(l.MonthlyInstallment),
		RepaymentsLeft:     l.RepaymentsLeft,
	}
}

// NewLoanSummaryList never returns nil so an empty history encodes as [].
func NewLoanSummaryList(loans []*loan.Loan) []LoanSummaryResponse {
	out := make([]LoanSummaryResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, NewLoanSummaryResponse(l))
	}
	return out
}

type LoanDetailResponse struct {
	LoanID             int64                   `json:"loan_id"`
	Customer           CustomerSummaryResponse `json:"customer"`
	LoanAmount         float64                 `json:"loan_amount"`
	InterestRate       float64                 `json:"interest_rate"`
	MonthlyInstallment float64                 `json:"monthly_installment"`
	Tenure             int                     `json:"tenure"`
	RepaymentsLeft     int                     `json:"repayments_left"`
	StartDate          string                  `json:"start_date" example:"2025-06-01"`
	EndDate            string                  `json:"end_date" example:"2026-06-01"`
}

func NewLoanDetailResponse(d *loan.LoanDetail) LoanDetailResponse {
	l := d.Loan
	resp := LoanDetailResponse{
		LoanID:             l.ID,
		LoanAmount:         roundMoney(l.LoanAmount),
		InterestRate:       l.InterestRate,
		MonthlyInstallment: roundMoney(l.MonthlyInstallment),
		Tenure:             l.Tenure,
		RepaymentsLeft:     l.RepaymentsLeft,
		StartDate:          l.StartDate.Format(dateLayout),
		EndDate:            l.EndDate.Format(dateLayout),
	}
	if d.Customer != nil {
		resp.Customer = NewCustomerSummaryResponse(d.Customer)
	}
	return resp
}
