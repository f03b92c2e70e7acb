package handlers

import (
	"kb-portal/helper"
	"kb-portal/middleware"
	"kb-portal/models"
	"kb-portal/services"

	"github.com/gin-gonic/gin"
)

type ArticleHandler struct {
	articleService services.ArticleService
	ratingService  services.RatingService
	Helper         *helper.HTTPHelper
}

func NewArticleHandler(articleService services.ArticleService, ratingService services.RatingService, h *helper.HTTPHelper) *ArticleHandler {
	return &ArticleHandler{articleService: articleService, ratingService: ratingService, Helper: h}
}

func (h *ArticleHandler) GetPublicArticles(c *gin.Context) {
	h.list(c, helper.PublicPerPage)
}

func (h *ArticleHandler) GetArticles(c *gin.Context) {
	h.list(c, helper.AdminPerPage)
}

func (h *ArticleHandler) list(c *gin.Context, perPage int) {
	params := models.ArticleListParams{
		Category:       c.Query("category"),
		Type:           c.Query("type"),
		Search:         c.Query("search"),
		Visibility:     c.Query("visibility"),
		Sort:           c.Query("sort"),
		Accessible:     queryBool(c, "accessible"),
		Page:           queryInt(c, "page"),
		PerPage:        queryInt(c, "per_page"),
		DefaultPerPage: perPage,
	}

	articles, total, page, err := h.articleService.List(c.Request.Context(), params, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendPaginated(c, articles, total, page)
}

func (h *ArticleHandler) GetPublicArticle(c *gin.Context) {
	detail, err := h.articleService.GetBySlug(c.Request.Context(), c.Param("slug"), middleware.PrincipalFrom(c), c.ClientIP())
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "", detail)
}

func (h *ArticleHandler) GetArticle(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}

	article, err := h.articleService.GetForEdit(c.Request.Context(), id, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "", article)
}

func (h *ArticleHandler) CreateArticle(c *gin.Context) {
	var req models.ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	article, err := h.articleService.Create(c.Request.Context(), req, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Article created", article)
}

func (h *ArticleHandler) UpdateArticle(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}
	var req models.ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	article, err := h.articleService.Update(c.Request.Context(), id, req, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Article updated", article)
}

func (h *ArticleHandler) DeleteArticle(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}

	if err := h.articleService.Delete(c.Request.Context(), id, middleware.PrincipalFrom(c)); err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Article deleted", h.Helper.EmptyJsonMap())
}

func (h *ArticleHandler) RateArticle(c *gin.Context) {
	var req models.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	result, err := h.ratingService.Rate(c.Request.Context(), c.Param("slug"), middleware.PrincipalFrom(c), req)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Rating saved", result)
}

func (h *ArticleHandler) RemoveRating(c *gin.Context) {
	result, err := h.ratingService.Remove(c.Request.Context(), c.Param("slug"), middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Rating removed", result)
}

func (h *ArticleHandler) GetMyRating(c *gin.Context) {
	rating, err := h.ratingService.Mine(c.Request.Context(), c.Param("slug"), middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "", rating)
}

func (h *ArticleHandler) GetRatings(c *gin.Context) {
	ratings, err := h.ratingService.List(c.Request.Context(), c.Param("slug"), middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "", ratings)
}

func (h *ArticleHandler) GetRatingStats(c *gin.Context) {
	stats, err := h.ratingService.Stats(c.Request.Context(), c.Param("slug"), middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "", stats)
}
