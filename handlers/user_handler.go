package handlers

import (
	"kb-portal/helper"
	"kb-portal/middleware"
	"kb-portal/models"
	"kb-portal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService services.UserService
	Helper      *helper.HTTPHelper
}

func NewUserHandler(userService services.UserService, h *helper.HTTPHelper) *UserHandler {
	return &UserHandler{userService: userService, Helper: h}
}

func (h *UserHandler) GetUsers(c *gin.Context) {
	params := services.UserListParams{
		Search:  c.Query("search"),
		Role:    c.Query("role"),
		Page:    queryInt(c, "page"),
		PerPage: queryInt(c, "per_page"),
	}

	users, total, page, err := h.userService.List(c.Request.Context(), params)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendPaginated(c, users, total, page)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "", user)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req models.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), req)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendCreated(c, "User created", user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}
	var req models.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "User updated", user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), id, middleware.PrincipalFrom(c)); err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "User deleted", h.Helper.EmptyJsonMap())
}
