package handlers

import (
	"kb-portal/helper"
	"kb-portal/models"
	"kb-portal/services"

	"github.com/gin-gonic/gin"
)

type OrgUnitHandler struct {
	orgService services.OrgService
	Helper     *helper.HTTPHelper
}

func NewOrgUnitHandler(orgService services.OrgService, h *helper.HTTPHelper) *OrgUnitHandler {
	return &OrgUnitHandler{orgService: orgService, Helper: h}
}

func (h *OrgUnitHandler) GetOrgUnits(c *gin.Context) {
	params := models.ListParams{
		Search:  c.Query("search"),
		Type:    c.Query("type"),
		All:     queryBool(c, "all"),
		Page:    queryInt(c, "page"),
		PerPage: queryInt(c, "per_page"),
	}

	units, total, page, err := h.orgService.List(c.Request.Context(), params)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendPaginated(c, units, total, page)
}

func (h *OrgUnitHandler) GetOrgUnit(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}

	unit, err := h.orgService.Get(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "", unit)
}

func (h *OrgUnitHandler) CreateOrgUnit(c *gin.Context) {
	var req models.OrgUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	unit, err := h.orgService.Create(c.Request.Context(), req)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Unit created", unit)
}

func (h *OrgUnitHandler) UpdateOrgUnit(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}
	var req models.OrgUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	unit, err := h.orgService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Unit updated", unit)
}

func (h *OrgUnitHandler) DeleteOrgUnit(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}

	if err := h.orgService.Delete(c.Request.Context(), id); err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Unit deleted", h.Helper.EmptyJsonMap())
}
