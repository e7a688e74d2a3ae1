package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	accounts services.AccountService
}

func NewAuthHandler(accounts services.AccountService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		accounts:    accounts,
	}
}

// Login exchanges an email or student ID and password for an access token
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body services.LoginRequest true "Email or student ID and password"
// @Success 200 {object} services.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.accounts.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the caller's account
// @Summary Current account
// @Tags auth
// @Produce json
// @Success 200 {object} models.Account
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	account, err := h.accounts.GetByID(c.Request.Context(), principal.ID, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}
