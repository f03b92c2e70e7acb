package handlers

import (
	"kb-portal/helper"
	"kb-portal/models"
	"kb-portal/services"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	categoryService services.CategoryService
	Helper          *helper.HTTPHelper
}

func NewCategoryHandler(categoryService services.CategoryService, h *helper.HTTPHelper) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, Helper: h}
}

func (h *CategoryHandler) GetCategories(c *gin.Context) {
	params := models.ListParams{
		Search:  c.Query("search"),
		Page:    queryInt(c, "page"),
		PerPage: queryInt(c, "per_page"),
	}

	categories, total, page, err := h.categoryService.List(c.Request.Context(), params)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendPaginated(c, categories, total, page)
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	category, err := h.categoryService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "", category)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), req)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Category created", category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}
	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Category updated", category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}

	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Category deleted", h.Helper.EmptyJsonMap())
}
