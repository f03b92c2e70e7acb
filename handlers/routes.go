package handlers

import (
	"net/http"

	"kb-portal/middleware"
	"kb-portal/models"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Auth       *AuthHandler
	Article    *ArticleHandler
	Attachment *AttachmentHandler
	Category   *CategoryHandler
	OrgUnit    *OrgUnitHandler
	User       *UserHandler
	Gallery    *GalleryHandler
	Dashboard  *DashboardHandler
}

func RegisterRoutes(router *gin.Engine, h Handlers, auth middleware.Authenticator) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
		}

		// Public reads; a token, when sent, widens what is visible.
		public := v1.Group("")
		public.Use(middleware.OptionalAuth(auth))
		{
			public.GET("/articles", h.Article.GetPublicArticles)
			public.GET("/articles/:slug", h.Article.GetPublicArticle)
			public.GET("/articles/:slug/ratings", h.Article.GetRatings)
			public.GET("/articles/:slug/ratings/stats", h.Article.GetRatingStats)
			public.GET("/articles/:slug/download", h.Attachment.DownloadAttachment)
			public.GET("/categories", h.Category.GetCategories)
			public.GET("/categories/:slug", h.Category.GetCategory)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(auth))
		{
			protected.GET("/profile", h.Auth.GetProfile)
			protected.GET("/org-units", h.OrgUnit.GetOrgUnits)

			protected.GET("/articles/:slug/rating", h.Article.GetMyRating)
			protected.POST("/articles/:slug/rating", h.Article.RateArticle)
			protected.DELETE("/articles/:slug/rating", h.Article.RemoveRating)
		}

		staff := v1.Group("/admin")
		staff.Use(middleware.AuthMiddleware(auth), middleware.RequireRole(models.RoleAdmin, models.RoleEditor))
		{
			articles := staff.Group("/articles")
			{
				articles.GET("", h.Article.GetArticles)
				articles.POST("", h.Article.CreateArticle)
				articles.GET("/:id", h.Article.GetArticle)
				articles.PUT("/:id", h.Article.UpdateArticle)
				articles.DELETE("/:id", h.Article.DeleteArticle)

				articles.PUT("/:id/attachment", h.Attachment.UploadAttachment)
				articles.DELETE("/:id/attachment", h.Attachment.RemoveAttachment)

				articles.GET("/:id/images", h.Gallery.GetArticleImages)
				articles.POST("/:id/images", h.Gallery.UploadToArticle)
				articles.PUT("/:id/images/reorder", h.Gallery.ReorderImages)
			}

			images := staff.Group("/images")
			{
				images.PUT("/:imageId", h.Gallery.UpdateImage)
				images.PUT("/:imageId/primary", h.Gallery.SetPrimaryImage)
				images.DELETE("/:imageId", h.Gallery.DeleteImage)
			}

			gallery := staff.Group("/gallery")
			{
				gallery.POST("/upload", h.Gallery.UploadTemporary)
				gallery.POST("/link-temporary", h.Gallery.LinkTemporary)
				gallery.GET("/temp/:session", h.Gallery.GetTemporaryImages)
				gallery.DELETE("/temp/:session", h.Gallery.DiscardSession)
			}
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(auth), middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/dashboard", h.Dashboard.GetStats)

			admin.POST("/categories", h.Category.CreateCategory)
			admin.PUT("/categories/:id", h.Category.UpdateCategory)
			admin.DELETE("/categories/:id", h.Category.DeleteCategory)

			admin.GET("/org-units/:id", h.OrgUnit.GetOrgUnit)
			admin.POST("/org-units", h.OrgUnit.CreateOrgUnit)
			admin.PUT("/org-units/:id", h.OrgUnit.UpdateOrgUnit)
			admin.DELETE("/org-units/:id", h.OrgUnit.DeleteOrgUnit)

			admin.GET("/users", h.User.GetUsers)
			admin.GET("/users/:id", h.User.GetUser)
			admin.POST("/users", h.User.CreateUser)
			admin.PUT("/users/:id", h.User.UpdateUser)
			admin.DELETE("/users/:id", h.User.DeleteUser)
		}
	}
}
