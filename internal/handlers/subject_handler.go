package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/utils"
)

type SubjectHandler struct {
	BaseHandler
	service services.SubjectService
}

func NewSubjectHandler(service services.SubjectService, logger utils.Logger) *SubjectHandler {
	return &SubjectHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

func (h *SubjectHandler) CreateSubject(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.CreateSubjectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	subject, err := h.service.Create(c.Request.Context(), &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, subject)
}

// ListSubjects optionally filters by ?class_level=
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	var classLevel *string
	if value := strings.TrimSpace(c.Query("class_level")); value != "" {
		classLevel = &value
	}

	subjects, err := h.service.List(c.Request.Context(), classLevel)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, subjects)
}

func (h *SubjectHandler) DeleteSubject(c *gin.Context) {
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

	c.JSON(http.StatusOK, SuccessResponse{Message: "Subject deleted successfully"})
}
