package handler

import (
	"log/slog"
	"net/http"

	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/customer"
)

type CustomerHandler struct {
	service customer.CustomerService
	logger  *slog.Logger
}

func NewCustomerHandler(s customer.CustomerService, l *slog.Logger) *CustomerHandler {
	if s == nil {
		panic("customer service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &CustomerHandler{
		service: s,
		logger:  l.With("component", "CustomerHandler"),
	}
}

// Register handles POST /api/register
// @Summary Register a customer
// @Description Registers a new customer and assigns an approved credit limit derived from the monthly salary. Numeric fields may be sent as numbers or numeric strings.
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body dto.RegisterCustomerRequest true "Customer registration payload"
// @Success 200 {object} dto.RegisterCustomerResponse "Customer registered"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload or field validation error"
// @Failure 409 {object} dto.ErrorResponse "Phone number already registered"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/register [post]
func (h *CustomerHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received register customer request")

	var req dto.RegisterCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Rejected register request body", "error", err)
		respondError(w, err)
		return
	}

	reg, err := req.ToRegistration()
	if err != nil {
		respondError(w, err)
		return
	}

	cust, err := h.service.Register(r.Context(), reg)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewRegisterCustomerResponse(cust))
}
