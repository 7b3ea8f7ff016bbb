package handler

import (
	"credit-application-system/internal/api/handler/dto"
	"credit-application-system/internal/domain/credit"
	"credit-application-system/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CreditHandler struct {
	service credit.CreditService
	policy  credit.Policy
	now     func() time.Time
	logger  *slog.Logger
}

func NewCreditHandler(s credit.CreditService, policy credit.Policy, l *slog.Logger) *CreditHandler {
	if s == nil {
		panic("credit service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &CreditHandler{
		service: s,
		policy:  policy,
		now:     time.Now,
		logger:  l.With("component", "CreditHandler"),
	}
}

// CreateCredit handles POST /credits
// @Summary Apply for a credit
// @Description Registers a credit application for an existing customer. A credit code is generated for it.
// @Tags Credits
// @Accept json
// @Produce json
// @Param request body dto.CreateCreditRequest true "Credit application"
// @Success 201 {object} dto.CreditResponse "Credit application registered"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload, past installment date or installments out of range"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /credits [post]
// @Security BearerAuth
func (h *CreditHandler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCreditRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	c, err := req.ToDomain(h.policy, h.now())
	if err != nil {
		h.logger.WarnContext(r.Context(), "Credit application rejected by validation", slog.Any("error", err))
		respondError(w, err)
		return
	}

	saved, err := h.service.Save(r.Context(), c)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to register credit", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Credit registered successfully", slog.String("creditCode", saved.CreditCode.String()))
	respondJSON(w, http.StatusCreated, dto.NewCreditResponse(saved))
}

// ListCredits handles GET /credits?customerId={id}
// @Summary List a customer's credits
// @Description Lists every credit application of the customer in registration order. A customer without credits yields an empty list.
// @Tags Credits
// @Produce json
// @Param customerId query int true "Customer ID" Minimum(1)
// @Success 200 {array} dto.CreditListItem "Credits of the customer"
// @Failure 400 {object} dto.ErrorResponse "Missing or invalid customerId"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /credits [get]
// @Security BearerAuth
func (h *CreditHandler) ListCredits(w http.ResponseWriter, r *http.Request) {
	customerID, err := getCustomerIDFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	credits, err := h.service.FindAllByCustomer(r.Context(), customerID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list credits", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewCreditListResponse(credits))
}

// GetCredit handles GET /credits/{creditCode}?customerId={id}
// @Summary Retrieve a credit by code
// @Description Retrieves a credit application by its code, scoped to the customer that owns it.
// @Tags Credits
// @Produce json
// @Param creditCode path string true "Credit code (UUID)"
// @Param customerId query int true "Customer ID" Minimum(1)
// @Success 200 {object} dto.CreditResponse "Credit details"
// @Failure 400 {object} dto.ErrorResponse "Malformed credit code or customerId"
// @Failure 403 {object} dto.ErrorResponse "Credit belongs to another customer"
// @Failure 404 {object} dto.ErrorResponse "Credit code not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /credits/{creditCode} [get]
// @Security BearerAuth
func (h *CreditHandler) GetCredit(w http.ResponseWriter, r *http.Request) {
	code, err := uuid.Parse(chi.URLParam(r, "creditCode"))
	if err != nil {
		respondError(w, apperrors.NewValidationError("creditCode", "must be a valid UUID"))
		return
	}
	customerID, err := getCustomerIDFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	c, err := h.service.FindByCreditCode(r.Context(), customerID, code)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrBusiness) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to get credit", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewCreditResponse(c))
}
