package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/utils"
)

type ResultHandler struct {
	BaseHandler
	service services.ResultService
}

func NewResultHandler(service services.ResultService, logger utils.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListMyResults
// @Summary My results
// @Tags results
// @Produce json
// @Success 200 {array} models.Result
// @Router /results/my [get]
func (h *ResultHandler) ListMyResults(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	results, err := h.service.ListMine(c.Request.Context(), principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *ResultHandler) GetResult(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	result, err := h.service.GetByID(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
