package models

import "time"

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type UserRequest struct {
	Name         string   `json:"name" binding:"required,min=3,max=255"`
	Email        string   `json:"email" binding:"required,email"`
	Password     string   `json:"password" binding:"omitempty,min=6"`
	Role         UserRole `json:"role" binding:"omitempty,oneof=admin editor user"`
	Position     string   `json:"position" binding:"max=255"`
	DivisionID   *uint    `json:"division_id"`
	DepartmentID *uint    `json:"department_id"`
}

type ArticleRequest struct {
	Title         string        `json:"title" binding:"required,min=1,max=255"`
	Description   string        `json:"description"`
	Content       string        `json:"content"`
	Type          ArticleType   `json:"type" binding:"required,oneof=SOP Kebijakan Panduan"`
	DocumentType  string        `json:"document_type" binding:"max=100"`
	CategoryID    uint          `json:"category_id" binding:"required"`
	Status        ArticleStatus `json:"status" binding:"required,oneof=draft published"`
	Visibility    Visibility    `json:"visibility" binding:"omitempty,oneof=public private"`
	DivisionIDs   []uint        `json:"division_ids"`
	DepartmentIDs []uint        `json:"department_ids"`
	ImageIDs      []uint        `json:"images"`
}

type RatingRequest struct {
	Stars   int     `json:"rating" binding:"required,min=1,max=5"`
	Comment *string `json:"comment" binding:"omitempty,max=1000"`
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Icon        string `json:"icon" binding:"max=100"`
	Description string `json:"description" binding:"max=500"`
}

type OrgUnitRequest struct {
	Name        string      `json:"name" binding:"required,min=1,max=255"`
	Type        OrgUnitType `json:"type" binding:"required,oneof=division department"`
	Description string      `json:"description" binding:"max=500"`
}

type GalleryImageUpdate struct {
	AltText   *string `json:"alt_text" binding:"omitempty,max=255"`
	Caption   *string `json:"caption" binding:"omitempty,max=500"`
	IsPrimary *bool   `json:"is_primary"`
	SortOrder *int    `json:"sort_order" binding:"omitempty,min=1"`
}

type ImageOrder struct {
	ID        uint `json:"id" binding:"required"`
	SortOrder int  `json:"sort_order" binding:"required,min=1"`
}

type ReorderImagesRequest struct {
	Images []ImageOrder `json:"images" binding:"required,dive"`
}

type LinkTemporaryRequest struct {
	ArticleID  uint   `json:"article_id" binding:"required"`
	SessionKey string `json:"session_key" binding:"required"`
}

// ArticleListParams is the listing filter. Page and PerPage are normalised
// by the query builder; zero or negative values mean "default".
type ArticleListParams struct {
	Category       string `form:"category"`
	Type           string `form:"type"`
	Search         string `form:"search"`
	Visibility     string `form:"visibility"`
	Sort           string `form:"sort"`
	Accessible     bool   `form:"accessible"`
	Page           int    `form:"page"`
	PerPage        int    `form:"per_page"`
	DefaultPerPage int    `form:"-"`
}

type ListParams struct {
	Search  string `form:"search"`
	Type    string `form:"type"`
	All     bool   `form:"all"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
}

// ArticleSummary is the listing shape.
type ArticleSummary struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Excerpt     string        `json:"excerpt"`
	Type        ArticleType   `json:"type"`
	Status      ArticleStatus `json:"status"`
	Visibility  Visibility    `json:"visibility"`
	ViewCount   int64         `json:"view_count"`
	Rating      float64       `json:"rating"`
	RatingCount int64         `json:"rating_count"`
	Category    *Category     `json:"category"`
	Author      *User         `json:"author"`
	PublishedAt *time.Time    `json:"published_at"`
}

func NewArticleSummary(a Article) ArticleSummary {
	s := ArticleSummary{
		ID:          a.ID,
		Title:       a.Title,
		Slug:        a.Slug,
		Excerpt:     a.Excerpt(),
		Type:        a.Type,
		Status:      a.Status,
		Visibility:  a.Visibility,
		ViewCount:   a.ViewCount,
		Rating:      a.Rating,
		RatingCount: a.RatingCount,
		Category:    a.Category,
		Author:      a.Author,
		PublishedAt: a.PublishedAt,
	}
	return s
}

type ArticleDetail struct {
	Article         *Article         `json:"article"`
	RelatedArticles []ArticleSummary `json:"related_articles"`
}

type DashboardStats struct {
	TotalArticles     int64            `json:"total_articles"`
	PublishedArticles int64            `json:"published_articles"`
	TotalCategories   int64            `json:"total_categories"`
	TotalUsers        int64            `json:"total_users"`
	MostViewed        []ArticleSummary `json:"most_viewed"`
	HighestRated      []ArticleSummary `json:"highest_rated"`
	RecentlyViewed    []ArticleSummary `json:"recently_viewed"`
}

type LinkResult struct {
	LinkedCount       int   `json:"linked_count"`
	TotalGalleryCount int64 `json:"total_gallery_count"`
}

// RatingResult is a saved rating with the article's refreshed counters.
type RatingResult struct {
	Rating      *Rating `json:"rating"`
	Average     float64 `json:"article_rating"`
	RatingCount int64   `json:"rating_count"`
}
