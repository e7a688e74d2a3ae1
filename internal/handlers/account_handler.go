package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/utils"
)

type AccountHandler struct {
	BaseHandler
	service services.AccountService
}

func NewAccountHandler(service services.AccountService, logger utils.Logger) *AccountHandler {
	return &AccountHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// CreateAccount registers a learner, teacher or admin. Learners get the next
// student ID of their branch.
// @Summary Create account
// @Tags accounts
// @Accept json
// @Produce json
// @Param account body services.CreateAccountRequest true "Account data"
// @Success 201 {object} models.Account
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.CreateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	account, err := h.service.Create(c.Request.Context(), &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

// GetAccount
// @Summary Get account
// @Tags accounts
// @Produce json
// @Param id path uint true "Account ID"
// @Success 200 {object} models.Account
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	account, err := h.service.GetByID(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// ListAccounts
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Param role query string false "student, teacher, branch_admin or super_admin"
// @Param branch_id query int false "Branch filter (super admins only)"
// @Param class_level query string false "Class level"
// @Param search query string false "Name, email or student ID"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} services.AccountListResponse
// @Router /accounts [get]
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Listing accounts")

	filters := h.parseAccountFilters(c)
	resp, err := h.service.List(c.Request.Context(), filters, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateAccount
// @Summary Update account
// @Tags accounts
// @Accept json
// @Produce json
// @Param id path uint true "Account ID"
// @Param account body services.UpdateAccountRequest true "Fields to change"
// @Success 200 {object} models.Account
// @Router /accounts/{id} [put]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.UpdateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	account, err := h.service.Update(c.Request.Context(), id, &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// DeleteAccount
// @Summary Delete account
// @Tags accounts
// @Param id path uint true "Account ID"
// @Success 200 {object} SuccessResponse
// @Router /accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, principal); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Account deleted successfully"})
}

func (h *AccountHandler) parseAccountFilters(c *gin.Context) models.AccountFilters {
	limit, offset := h.pagination(c)
	filters := models.AccountFilters{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  limit,
		Offset: offset,
	}

	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filters.Role = &r
	}
	if branchID := h.parseIntQuery(c, "branch_id", 0); branchID > 0 {
		id := uint(branchID)
		filters.BranchID = &id
	}
	if classLevel := strings.TrimSpace(c.Query("class_level")); classLevel != "" {
		filters.ClassLevel = &classLevel
	}
	return filters
}
