package handlers

import (
	"kb-portal/helper"
	"kb-portal/services"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService services.DashboardService
	Helper           *helper.HTTPHelper
}

func NewDashboardHandler(dashboardService services.DashboardService, h *helper.HTTPHelper) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, Helper: h}
}

func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboardService.Stats(c.Request.Context())
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "", stats)
}
