package repositories

import (
	"context"
	"time"

	"kb-portal/helper"
	"kb-portal/models"
	"kb-portal/policy"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Grants are the org units a private article is restricted to.
type Grants struct {
	Divisions   []models.OrgUnit
	Departments []models.OrgUnit
}

type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article, grants Grants, imageIDs []uint) error
	Update(ctx context.Context, article *models.Article, grants Grants, imageIDs []uint) error
	FindByID(ctx context.Context, id uint) (*models.Article, error)
	FindBySlug(ctx context.Context, slug string) (*models.Article, error)
	List(ctx context.Context, q ArticleQuery) ([]models.Article, int64, error)
	Related(ctx context.Context, article *models.Article, rule policy.Rule, now time.Time, limit int) ([]models.Article, error)
	RecentlyViewed(ctx context.Context, now time.Time, limit int) ([]models.Article, error)
	Count(ctx context.Context) (int64, error)
	CountPublished(ctx context.Context, now time.Time) (int64, error)
	SoftDelete(ctx context.Context, id uint) ([]models.PendingBlobRelease, error)
	ReplaceAttachment(ctx context.Context, id uint, att models.Attachment) ([]models.PendingBlobRelease, error)
	UniqueSlug(ctx context.Context, base string, exceptID uint) (string, error)
}

type articleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *models.Article, grants Grants, imageIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(article).Error; err != nil {
			return err
		}
		if err := replaceGrants(tx, article, grants); err != nil {
			return err
		}
		if len(imageIDs) > 0 {
			if _, err := linkImages(tx, article.ID, imageIDs, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// editableColumns are the columns an article edit writes. Counters and the
// attachment have their own write paths and must not be overwritten from a
// stale copy.
var editableColumns = []string{
	"title", "description", "content", "type", "document_type",
	"category_id", "visibility", "status", "published_at", "updated_at",
}

func (r *articleRepository) Update(ctx context.Context, article *models.Article, grants Grants, imageIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(article).Select(editableColumns).Updates(article)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrorNotFound{Resource: "article", Key: article.ID}
		}
		if err := replaceGrants(tx, article, grants); err != nil {
			return err
		}
		if len(imageIDs) > 0 {
			if _, err := linkImages(tx, article.ID, imageIDs, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func replaceGrants(tx *gorm.DB, article *models.Article, grants Grants) error {
	for name, units := range map[string][]models.OrgUnit{
		"Divisions":   grants.Divisions,
		"Departments": grants.Departments,
	} {
		assoc := tx.Model(article).Association(name)
		var err error
		if len(units) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(units)
		}
		if err != nil {
			return err
		}
	}
	article.Divisions = grants.Divisions
	article.Departments = grants.Departments
	return nil
}

func preloadDetail(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").
		Preload("Author").
		Preload("Divisions").
		Preload("Departments").
		Preload("Gallery", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Preload("Ratings", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Preload("Ratings.User")
}

func (r *articleRepository) FindByID(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	err := r.db.WithContext(ctx).Scopes(preloadDetail).First(&article, id).Error
	if err != nil {
		return nil, notFound(err, "article", id)
	}
	return &article, nil
}

func (r *articleRepository) FindBySlug(ctx context.Context, slug string) (*models.Article, error) {
	var article models.Article
	err := r.db.WithContext(ctx).Scopes(preloadDetail).Where("slug = ?", slug).First(&article).Error
	if err != nil {
		return nil, notFound(err, "article", slug)
	}
	return &article, nil
}

func (r *articleRepository) List(ctx context.Context, q ArticleQuery) ([]models.Article, int64, error) {
	var total int64
	if err := q.filter(r.db.WithContext(ctx).Model(&models.Article{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var articles []models.Article
	err := q.filter(r.db.WithContext(ctx).Model(&models.Article{})).
		Preload("Category").
		Preload("Author").
		Order(q.order()).
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit()).
		Find(&articles).Error
	return articles, total, err
}

func (r *articleRepository) Related(ctx context.Context, article *models.Article, rule policy.Rule, now time.Time, limit int) ([]models.Article, error) {
	var articles []models.Article
	err := r.db.WithContext(ctx).
		Model(&models.Article{}).
		Scopes(Published(now), rule.Scope).
		Where("articles.category_id = ? AND articles.id <> ?", article.CategoryID, article.ID).
		Preload("Category").
		Preload("Author").
		Order(sortOrders[SortPopular]).
		Limit(limit).
		Find(&articles).Error
	return articles, err
}

func (r *articleRepository) RecentlyViewed(ctx context.Context, now time.Time, limit int) ([]models.Article, error) {
	lastViews := r.db.WithContext(ctx).
		Model(&models.View{}).
		Select("article_id, MAX(viewed_at) AS last_viewed_at").
		Group("article_id")

	var articles []models.Article
	err := r.db.WithContext(ctx).
		Model(&models.Article{}).
		Joins("JOIN (?) AS lv ON lv.article_id = articles.id", lastViews).
		Scopes(Published(now)).
		Preload("Category").
		Preload("Author").
		Order("lv.last_viewed_at DESC, articles.id DESC").
		Limit(limit).
		Find(&articles).Error
	return articles, err
}

func (r *articleRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Article{}).Count(&n).Error
	return n, err
}

func (r *articleRepository) CountPublished(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Article{}).Scopes(Published(now)).Count(&n).Error
	return n, err
}

// SoftDelete marks the article deleted and drops its grants and gallery rows
// in one transaction. The gallery files and the attachment are not touched;
// a pending release is recorded for each and returned for the caller to
// process.
func (r *articleRepository) SoftDelete(ctx context.Context, id uint) ([]models.PendingBlobRelease, error) {
	var releases []models.PendingBlobRelease
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var article models.Article
		if err := tx.First(&article, id).Error; err != nil {
			return notFound(err, "article", id)
		}

		var images []models.GalleryImage
		if err := tx.Where("article_id = ?", id).Find(&images).Error; err != nil {
			return err
		}

		if err := replaceGrants(tx, &article, Grants{}); err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&models.GalleryImage{}).Error; err != nil {
			return err
		}

		paths := make([]string, 0, len(images)+1)
		for _, img := range images {
			paths = append(paths, img.Path)
		}
		paths = append(paths, article.AttachmentPath)

		var err error
		if releases, err = queuePaths(tx, paths...); err != nil {
			return err
		}

		return tx.Delete(&article).Error
	})
	if err != nil {
		return nil, err
	}
	return releases, nil
}

// ReplaceAttachment stores att on the article, or clears it for the zero
// value. The previous file, if any, is queued for release in the same
// transaction.
func (r *articleRepository) ReplaceAttachment(ctx context.Context, id uint, att models.Attachment) ([]models.PendingBlobRelease, error) {
	var releases []models.PendingBlobRelease
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var article models.Article
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "attachment_path").
			First(&article, id).Error
		if err != nil {
			return notFound(err, "article", id)
		}
		previous := article.AttachmentPath

		err = tx.Model(&models.Article{}).Where("id = ?", id).Updates(map[string]interface{}{
			"attachment_path": att.Path,
			"attachment_name": att.Name,
			"attachment_size": att.Size,
		}).Error
		if err != nil {
			return err
		}

		if previous != att.Path {
			releases, err = queuePaths(tx, previous)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return releases, nil
}

func (r *articleRepository) UniqueSlug(ctx context.Context, base string, exceptID uint) (string, error) {
	return helper.EnsureUniqueSlug(ctx, r.db, models.ArticlesTable, "slug", base, exceptID)
}
