package handler

import (
	"log/slog"
	"net/http"

	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/loan"
)

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
	}
}

func (h *LoanHandler) decodeApplication(r *http.Request) (loan.Application, error) {
	var req dto.LoanApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Rejected loan request body", "error", err)
		return loan.Application{}, err
	}
	return req.ToApplication()
}

// CheckEligibility evaluates a loan application without persisting anything.
//
// @Summary Check loan eligibility
// @Description Computes the monthly installment for the requested loan and decides whether the customer can afford it. A rejection is a normal 200 response with approved=false.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.LoanApplicationRequest true "Loan application payload"
// @Success 200 {object} dto.EligibilityResponse "Eligibility decision"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload or field validation error"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/check-eligibility [post]
func (h *LoanHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	app, err := h.decodeApplication(r)
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := h.service.CheckEligibility(r.Context(), app)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewEligibilityResponse(result))
}

// CreateLoan evaluates a loan application and stores the loan when approved.
//
// @Summary Create a loan
// @Description Runs the eligibility evaluation and, when approved, creates the loan. A rejection is a normal 200 response with loan_approved=false and no loan_id.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.LoanApplicationRequest true "Loan application payload"
// @Success 200 {object} dto.CreateLoanResponse "Loan decision"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload or field validation error"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/create-loan [post]
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	app, err := h.decodeApplication(r)
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := h.service.CreateLoan(r.Context(), app)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewCreateLoanResponse(app.CustomerID, result))
}

// ViewLoan returns one loan together with its owner.
//
// @Summary View a loan
// @Description Retrieves a loan and the customer that owns it.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.LoanDetailResponse "Loan details"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/view-loan/{loanID} [get]
func (h *LoanHandler) ViewLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getIDFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	detail, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanDetailResponse(detail))
}

// ViewLoans lists a customer's loans, oldest first.
//
// @Summary View a customer's loans
// @Description Lists every loan of the customer in creation order. Unknown customers get an empty list.
// @Tags Loans
// @Produce json
// @Param customerID path int true "Customer ID"
// @Success 200 {array} dto.LoanSummaryResponse "Loans of the customer"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/view-loans/{customerID} [get]
func (h *LoanHandler) ViewLoans(w http.ResponseWriter, r *http.Request) {
	customerID, err := getIDFromURL(r, "customerID")
	if err != nil {
		respondError(w, err)
		return
	}

	loans, err := h.service.ListLoans(r.Context(), customerID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanSummaryList(loans))
}
