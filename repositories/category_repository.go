package repositories

import (
	"context"
	"strings"
	"time"

	"kb-portal/helper"
	"kb-portal/models"

	"gorm.io/gorm"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context, search string, page helper.Page, now time.Time) ([]models.Category, int64, error)
	NameTaken(ctx context.Context, name string, exceptID uint) (bool, error)
	Count(ctx context.Context) (int64, error)
	UniqueSlug(ctx context.Context, base string, exceptID uint) (string, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

// Delete refuses while any live article is filed under the category.
func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, id).Error; err != nil {
			return notFound(err, "category", id)
		}
		var inUse int64
		if err := tx.Model(&models.Article{}).Where("category_id = ?", id).Count(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			return models.ErrorConflict{Message: "category still has articles"}
		}
		return tx.Delete(&category).Error
	})
}

func (r *categoryRepository) FindByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, notFound(err, "category", id)
	}
	return &category, nil
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, notFound(err, "category", slug)
	}
	return &category, nil
}

// List orders by name and fills ArticleCount with published articles.
func (r *categoryRepository) List(ctx context.Context, search string, page helper.Page, now time.Time) ([]models.Category, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Category{})
		if search = strings.TrimSpace(search); search != "" {
			q = q.Where("LOWER(categories.name) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(search))+"%")
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var categories []models.Category
	err := base().
		Select("categories.*, (SELECT COUNT(*) FROM articles WHERE articles.category_id = categories.id AND articles.deleted_at IS NULL AND articles.status = ? AND articles.published_at IS NOT NULL AND articles.published_at <= ?) AS article_count",
			models.StatusPublished, now.UTC()).
		Order("categories.name ASC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&categories).Error
	return categories, total, err
}

func (r *categoryRepository) NameTaken(ctx context.Context, name string, exceptID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Unscoped().Model(&models.Category{}).Where("name = ?", name)
	if exceptID > 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *categoryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Count(&n).Error
	return n, err
}

func (r *categoryRepository) UniqueSlug(ctx context.Context, base string, exceptID uint) (string, error) {
	return helper.EnsureUniqueSlug(ctx, r.db, "categories", "slug", base, exceptID)
}
