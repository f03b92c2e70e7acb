package repositories

import (
	"strings"
	"time"

	"kb-portal/helper"
	"kb-portal/models"
	"kb-portal/policy"

	"gorm.io/gorm"
)

type ArticleSort string

const (
	SortLatest  ArticleSort = "latest"
	SortPopular ArticleSort = "popular"
	SortRating  ArticleSort = "rating"
)

var sortOrders = map[ArticleSort]string{
	SortLatest:  "articles.published_at DESC, articles.created_at DESC, articles.id DESC",
	SortPopular: "articles.view_count DESC, articles.id DESC",
	SortRating:  "articles.rating DESC, articles.rating_count DESC, articles.id DESC",
}

// ArticleQuery is a normalised listing request. Rule, when set, limits the
// result to articles the principal may read; it is applied before paging.
type ArticleQuery struct {
	CategorySlug string
	Type         models.ArticleType
	Search       string
	Visibility   models.Visibility
	Sort         ArticleSort
	Rule         *policy.Rule
	Now          time.Time
	Page         helper.Page
}

// NewArticleQuery validates and normalises listing parameters. Bad paging
// input and unknown sort keys fall back to defaults; an unknown type or
// visibility is a validation error.
func NewArticleQuery(p models.ArticleListParams, principal *policy.Principal, now time.Time) (ArticleQuery, error) {
	q := ArticleQuery{
		CategorySlug: strings.TrimSpace(p.Category),
		Search:       strings.TrimSpace(p.Search),
		Sort:         ArticleSort(p.Sort),
		Now:          now,
		Page:         helper.NormalizePage(p.Page, p.PerPage, p.DefaultPerPage),
	}
	if _, ok := sortOrders[q.Sort]; !ok {
		q.Sort = SortLatest
	}

	verr := models.ErrorValidation{}
	if p.Type != "" {
		q.Type = models.ArticleType(p.Type)
		if !models.ValidArticleType(q.Type) {
			verr = verr.Add("type", "The selected type is invalid.")
		}
	}
	if p.Visibility != "" {
		q.Visibility = models.Visibility(p.Visibility)
		if q.Visibility != models.VisibilityPublic && q.Visibility != models.VisibilityPrivate {
			verr = verr.Add("visibility", "The selected visibility is invalid.")
		}
	}
	if !verr.Empty() {
		return ArticleQuery{}, verr
	}

	if p.Accessible {
		rule := policy.For(principal)
		q.Rule = &rule
	}
	return q, nil
}

// Published keeps only articles that are published with a publication time
// not in the future.
func Published(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("articles.status = ? AND articles.published_at IS NOT NULL AND articles.published_at <= ?",
			models.StatusPublished, now.UTC())
	}
}

func (q ArticleQuery) filter(db *gorm.DB) *gorm.DB {
	db = db.Scopes(Published(q.Now))
	if q.CategorySlug != "" {
		db = db.Where("EXISTS (SELECT 1 FROM categories WHERE categories.id = articles.category_id AND categories.slug = ? AND categories.deleted_at IS NULL)", q.CategorySlug)
	}
	if q.Type != "" {
		db = db.Where("articles.type = ?", q.Type)
	}
	if q.Visibility != "" {
		db = db.Where("articles.visibility = ?", q.Visibility)
	}
	if q.Search != "" {
		like := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		db = db.Where("LOWER(articles.title) LIKE ? ESCAPE '!' OR LOWER(articles.description) LIKE ? ESCAPE '!' OR LOWER(articles.content) LIKE ? ESCAPE '!'",
			like, like, like)
	}
	if q.Rule != nil {
		db = db.Scopes(q.Rule.Scope)
	}
	return db
}

func (q ArticleQuery) order() string {
	if o, ok := sortOrders[q.Sort]; ok {
		return o
	}
	return sortOrders[SortLatest]
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
