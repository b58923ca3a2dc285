package dto

import (
	"encoding/json"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/pkg/apperrors"
)

// RegisterCustomerRequest accepts numeric fields either as JSON numbers or
// as numeric strings, which is what an HTML form posts.
type RegisterCustomerRequest struct {
	FirstName     string      `json:"first_name" example:"Asha"`
	LastName      string      `json:"last_name" example:"Verma"`
	Age           json.Number `json:"age" swaggertype:"integer" example:"30"`
	MonthlySalary json.Number `json:"monthly_salary" swaggertype:"integer" example:"50000"`
	PhoneNumber   string      `json:"phone_number" example:"9876543210"`
}

// ToRegistration converts the payload into the domain intake form. Field
// level problems are reported together.
func (r *RegisterCustomerRequest) ToRegistration() (customer.Registration, error) {
	age, ageErr := parseCount("age", r.Age)
	salary, salaryErr := parseWholeNumber("monthly_salary", r.MonthlySalary)
	if err := apperrors.JoinValidation(ageErr, salaryErr); err != nil {
		return customer.Registration{}, err
	}

	return customer.Registration{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Age:           age,
		MonthlySalary: salary,
		PhoneNumber:   r.PhoneNumber,
	}, nil
}

type RegisterCustomerResponse struct {
	CustomerID    int64  `json:"customer_id"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	MonthlySalary int64  `json:"monthly_salary"`
	ApprovedLimit int64  `json:"approved_limit"`
	PhoneNumber   string `json:"phone_number"`
}

func NewRegisterCustomerResponse(c *customer.Customer) RegisterCustomerResponse {
	return RegisterCustomerResponse{
		CustomerID:    c.CustomerID,
		Name:          c.Name(),
		Age:           c.Age,
		MonthlySalary: c.MonthlySalary,
		ApprovedLimit: c.ApprovedLimit,
		PhoneNumber:   c.PhoneNumber,
	}
}

type CustomerSummaryResponse struct {
	CustomerID  int64  `json:"customer_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Age         int    `json:"age"`
}

func NewCustomerSummaryResponse(c *customer.Customer) CustomerSummaryResponse {
	return CustomerSummaryResponse{
		CustomerID:  c.CustomerID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		PhoneNumber: c.PhoneNumber,
		Age:         c.Age,
	}
}
