package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/utils"
)

type PaymentHandler struct {
	BaseHandler
	service services.PaymentService
}

func NewPaymentHandler(service services.PaymentService, logger utils.Logger) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// InitiatePayment opens a pending payment and, when a gateway is configured,
// returns its checkout URL.
// @Summary Initiate payment
// @Tags payments
// @Accept json
// @Produce json
// @Param payment body services.InitiatePaymentRequest true "Payment data"
// @Success 201 {object} models.Payment
// @Failure 400 {object} ErrorResponse
// @Router /payments/initiate [post]
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.InitiatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	payment, err := h.service.Initiate(c.Request.Context(), &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// UpdatePaymentStatus moves a pending payment to successful or failed
// @Summary Update payment status
// @Tags payments
// @Accept json
// @Produce json
// @Param id path int true "Payment ID"
// @Param status body services.UpdatePaymentStatusRequest true "Target status"
// @Success 200 {object} models.Payment
// @Failure 409 {object} ErrorResponse
// @Router /payments/{id}/status [put]
func (h *PaymentHandler) UpdatePaymentStatus(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.UpdatePaymentStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	payment, err := h.service.UpdateStatus(c.Request.Context(), id, &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "payment status updated", "payment_id", id, "status", payment.Status)
	c.JSON(http.StatusOK, payment)
}

// SearchPayment looks a payment up by transaction reference or student ID (?q=)
func (h *PaymentHandler) SearchPayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		h.RespondWithError(c, http.StatusBadRequest, "Query parameter q is required", nil)
		return
	}

	payment, err := h.service.Search(c.Request.Context(), query, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	limit, offset := h.pagination(c)
	filters := models.PaymentFilters{
		BranchID:  h.optionalID(c, "branch_id"),
		LearnerID: h.optionalID(c, "learner_id"),
		Limit:     limit,
		Offset:    offset,
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		s := models.PaymentStatus(status)
		filters.Status = &s
	}

	response, err := h.service.List(c.Request.Context(), filters, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *PaymentHandler) ListMyPayments(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	payments, err := h.service.ListMine(c.Request.Context(), principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	payment, err := h.service.GetByID(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}
