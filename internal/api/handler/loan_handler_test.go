package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CheckEligibility(ctx context.Context, app loan.Application) (*loan.EligibilityResult, error) {
	args := m.Called(ctx, app)
	if res, ok := args.Get(0).(*loan.EligibilityResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) CreateLoan(ctx context.Context, app loan.Application) (*loan.CreationResult, error) {
	args := m.Called(ctx, app)
	if res, ok := args.Get(0).(*loan.CreationResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context, customerID int64) ([]*loan.Loan, error) {
	args := m.Called(ctx, customerID)
	if loans, ok := args.Get(0).([]*loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID int64) (*loan.LoanDetail, error) {
	args := m.Called(ctx, loanID)
	if detail, ok := args.Get(0).(*loan.LoanDetail); ok {
		return detail, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ loan.LoanService = (*MockLoanService)(nil)

func newLoanHandler() (*LoanHandler, *MockLoanService) {
	mockService := new(MockLoanService)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLoanHandler(mockService, logger), mockService
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{Keys: []string{key}, Values: []string{value}},
	}))
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

const applicationBody = `{"customer_id":1,"loan_amount":"100000","interest_rate":"12","tenure":"12"}`

var expectedApplication = loan.Application{CustomerID: 1, LoanAmount: 100000, InterestRate: 12, Tenure: 12}

func TestLoanHandlerCheckEligibility(t *testing.T) {
	t.Run("approved", func(t *testing.T) {
		h, mockService := newLoanHandler()
		mockService.On("CheckEligibility", mock.Anything, expectedApplication).Return(&loan.EligibilityResult{
			CustomerID: 1,
			LoanAmount: 100000,
			Tenure:     12,
			Decision:   loan.Decision{Approved: true, InterestRate: 12, CorrectedInterestRate: 12, MonthlyInstallment: 8884.88},
		}, nil).Once()

		rec := httptest.NewRecorder()
		h.CheckEligibility(rec, jsonRequest(http.MethodPost, "/api/check-eligibility", applicationBody))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.EligibilityResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Approved)
		assert.Equal(t, 8884.88, resp.MonthlyInstallment)
		assert.Equal(t, 100000.0, resp.LoanAmount)
		mockService.AssertExpectations(t)
	})

	t.Run("rejection is still a 200", func(t *testing.T) {
		h, mockService := newLoanHandler()
		mockService.On("CheckEligibility", mock.Anything, expectedApplication).Return(&loan.EligibilityResult{
			CustomerID: 1,
			LoanAmount: 100000,
			Tenure:     12,
			Decision:   loan.Decision{Approved: false, InterestRate: 12, MonthlyInstallment: 8884.88, Message: "installment exceeds affordable limit"},
		}, nil).Once()

		rec := httptest.NewRecorder()
		h.CheckEligibility(rec, jsonRequest(http.MethodPost, "/api/check-eligibility", applicationBody))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.EligibilityResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.Approved)
		assert.Equal(t, "installment exceeds affordable limit", resp.Message)
	})

	t.Run("unknown customer", func(t *testing.T) {
		h, mockService := newLoanHandler()
		notFound := fmt.Errorf("%w: customer with ID 1 does not exist", apperrors.ErrNotFound)
		mockService.On("CheckEligibility", mock.Anything, expectedApplication).Return(nil, notFound).Once()

		rec := httptest.NewRecorder()
		h.CheckEligibility(rec, jsonRequest(http.MethodPost, "/api/check-eligibility", applicationBody))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Message, "customer with ID 1 does not exist")
	})

	t.Run("missing fields", func(t *testing.T) {
		h, mockService := newLoanHandler()

		rec := httptest.NewRecorder()
		h.CheckEligibility(rec, jsonRequest(http.MethodPost, "/api/check-eligibility", `{"customer_id":1}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Len(t, resp.Fields, 3)
		mockService.AssertNotCalled(t, "CheckEligibility", mock.Anything, mock.Anything)
	})
}

func TestLoanHandlerCreateLoan(t *testing.T) {
	t.Run("approved", func(t *testing.T) {
		h, mockService := newLoanHandler()
		mockService.On("CreateLoan", mock.Anything, expectedApplication).Return(&loan.CreationResult{
			Decision: loan.Decision{Approved: true, InterestRate: 12, CorrectedInterestRate: 12, MonthlyInstallment: 8884.88},
			Loan:     &loan.Loan{ID: 9, CustomerID: 1, MonthlyInstallment: 8884.88},
		}, nil).Once()

		rec := httptest.NewRecorder()
		h.CreateLoan(rec, jsonRequest(http.MethodPost, "/api/create-loan", applicationBody))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.CreateLoanResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.LoanApproved)
		require.NotNil(t, resp.LoanID)
		assert.Equal(t, int64(9), *resp.LoanID)
		assert.Equal(t, int64(1), resp.CustomerID)
		mockService.AssertExpectations(t)
	})

	t.Run("rejected has no loan id", func(t *testing.T) {
		h, mockService := newLoanHandler()
		mockService.On("CreateLoan", mock.Anything, expectedApplication).Return(&loan.CreationResult{
			Decision: loan.Decision{Approved: false, InterestRate: 12, MonthlyInstallment: 8884.88, Message: "installment exceeds affordable limit"},
		}, nil).Once()

		rec := httptest.NewRecorder()
		h.CreateLoan(rec, jsonRequest(http.MethodPost, "/api/create-loan", applicationBody))

		assert.Equal(t, http.StatusOK, rec.Code)
		var raw map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
		assert.Equal(t, false, raw["loan_approved"])
		assert.NotContains(t, raw, "loan_id")
		assert.Equal(t, "installment exceeds affordable limit", raw["message"])
	})

	t.Run("service validation error", func(t *testing.T) {
		h, mockService := newLoanHandler()
		mockService.On("CreateLoan", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewValidationError("tenure", "must be at least 1")).Once()

		rec := httptest.NewRecorder()
		h.CreateLoan(rec, jsonRequest(http.MethodPost, "/api/create-loan", `{"customer_id":1,"loan_amount":1000,"interest_rate":10,"tenure":0}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "tenure: must be at least 1", resp.Message)
	})

	t.Run("storage failure", func(t *testing.T) {
		h, mockService := newLoanHandler()
		mockService.On("CreateLoan", mock.Anything, expectedApplication).
			Return(nil, fmt.Errorf("%w: failed to save loan", apperrors.ErrInternalServer)).Once()

		rec := httptest.NewRecorder()
		h.CreateLoan(rec, jsonRequest(http.MethodPost, "/api/create-loan", applicationBody))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestLoanHandlerViewLoan(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		h, mockService := newLoanHandler()
		start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		mockService.On("GetLoan", mock.Anything, int64(5)).Return(&loan.LoanDetail{
			Loan:     &loan.Loan{ID: 5, CustomerID: 1, LoanAmount: 1000, Tenure: 6, StartDate: start, EndDate: start.AddDate(0, 6, 0)},
			Customer: &customer.Customer{CustomerID: 1, FirstName: "Asha", LastName: "Verma"},
		}, nil).Once()

		rec := httptest.NewRecorder()
		h.ViewLoan(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/view-loan/5", nil), "loanID", "5"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanDetailResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, int64(5), resp.LoanID)
		assert.Equal(t, "Asha", resp.Customer.FirstName)
		assert.Equal(t, "2025-12-01", resp.EndDate)
	})

	t.Run("invalid id", func(t *testing.T) {
		h, mockService := newLoanHandler()

		rec := httptest.NewRecorder()
		h.ViewLoan(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/view-loan/abc", nil), "loanID", "abc"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "GetLoan", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		h, mockService := newLoanHandler()
		mockService.On("GetLoan", mock.Anything, int64(77)).Return(nil, fmt.Errorf("%w: loan with ID 77 does not exist", apperrors.ErrNotFound)).Once()

		rec := httptest.NewRecorder()
		h.ViewLoan(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/view-loan/77", nil), "loanID", "77"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLoanHandlerViewLoans(t *testing.T) {
	t.Run("lists loans in order", func(t *testing.T) {
		h, mockService := newLoanHandler()
		mockService.On("ListLoans", mock.Anything, int64(1)).Return([]*loan.Loan{
			{ID: 1, LoanAmount: 1000, InterestRate: 10, MonthlyInstallment: 87.92, RepaymentsLeft: 12},
			{ID: 3, LoanAmount: 2000, InterestRate: 11, MonthlyInstallment: 176.77, RepaymentsLeft: 12},
		}, nil).Once()

		rec := httptest.NewRecorder()
		h.ViewLoans(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/view-loans/1", nil), "customerID", "1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []dto.LoanSummaryResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp, 2)
		assert.Equal(t, int64(1), resp[0].LoanID)
		assert.Equal(t, int64(3), resp[1].LoanID)
	})

	t.Run("no loans is an empty array", func(t *testing.T) {
		h, mockService := newLoanHandler()
		mockService.On("ListLoans", mock.Anything, int64(404)).Return([]*loan.Loan{}, nil).Once()

		rec := httptest.NewRecorder()
		h.ViewLoans(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/view-loans/404", nil), "customerID", "404"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("non-integer customer id", func(t *testing.T) {
		h, _ := newLoanHandler()

		rec := httptest.NewRecorder()
		h.ViewLoans(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/view-loans/x1", nil), "customerID", "x1"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Message, "customerID must be an integer")
	})
}
