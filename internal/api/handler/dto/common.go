package dto

import (
	"encoding/json"
	"math"

	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// ErrorResponse carries the failure text under both "error" and "message"
// so either form in the browser client can show it as-is.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func NewErrorResponse(message string, fields map[string]string) ErrorResponse {
	return ErrorResponse{Error: message, Message: message, Fields: fields}
}

type HealthResponse struct {
	Status string `json:"status"`
}

func parseNumber(field string, n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, apperrors.NewValidationError(field, "is required")
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError(field, "must be a number")
	}
	return d, nil
}

func parseWholeNumber(field string, n json.Number) (int64, error) {
	d, err := parseNumber(field, n)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, apperrors.NewValidationError(field, "must be a whole number")
	}
	if !d.BigInt().IsInt64() {
		return 0, apperrors.NewValidationError(field, "is out of range")
	}
	return d.IntPart(), nil
}

// parseCount is parseWholeNumber for fields stored as a 32-bit integer.
func parseCount(field string, n json.Number) (int, error) {
	v, err := parseWholeNumber(field, n)
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, apperrors.NewValidationError(field, "is out of range")
	}
	return int(v), nil
}

func roundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
