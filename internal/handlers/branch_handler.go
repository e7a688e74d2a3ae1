package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/utils"
)

type BranchHandler struct {
	BaseHandler
	service services.BranchService
}

func NewBranchHandler(service services.BranchService, logger utils.Logger) *BranchHandler {
	return &BranchHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

func (h *BranchHandler) CreateBranch(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.CreateBranchRequest
	if !h.bindJSON(c, &req) {
		return
	}

	branch, err := h.service.Create(c.Request.Context(), &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, branch)
}

func (h *BranchHandler) GetBranch(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	branch, err := h.service.GetByID(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, branch)
}

func (h *BranchHandler) ListBranches(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	branches, err := h.service.List(c.Request.Context(), principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, branches)
}

func (h *BranchHandler) UpdateBranch(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.UpdateBranchRequest
	if !h.bindJSON(c, &req) {
		return
	}

	branch, err := h.service.Update(c.Request.Context(), id, &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, branch)
}

// DeleteBranch refuses with 409 while accounts, exams or payments reference the branch
func (h *BranchHandler) DeleteBranch(c *gin.Context) {
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

	c.JSON(http.StatusOK, SuccessResponse{Message: "Branch deleted successfully"})
}
