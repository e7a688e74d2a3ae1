package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
}

func NewDashboardHandler(service services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetDashboardStats returns headline counts for the caller's branch, or for
// every branch when called by a super admin.
// @Summary Get dashboard statistics
// @Description Learner, exam and result counts, average percentage and payment totals
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.DashboardStats
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetDashboardStats(c *gin.Context) {
	h.LogRequest(c, "Getting dashboard stats")

	principal, ok := h.principal(c)
	if !ok {
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
