package repositories

import (
	"context"

	"kb-portal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ViewRepository interface {
	Record(ctx context.Context, view *models.View) (bool, error)
	CountByArticle(ctx context.Context, articleID uint) (int64, error)
}

type viewRepository struct {
	db *gorm.DB
}

func NewViewRepository(db *gorm.DB) ViewRepository {
	return &viewRepository{db: db}
}

// Record inserts the view and bumps view_count in one transaction. The
// unique (article, identity, day) index turns a repeat into a no-op, and
// the counter only moves when the insert did; it reports whether it counted.
func (r *viewRepository) Record(ctx context.Context, view *models.View) (bool, error) {
	counted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(view)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		counted = true
		return tx.Model(&models.Article{}).
			Where("id = ?", view.ArticleID).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).
			Error
	})
	if err != nil {
		return false, err
	}
	return counted, nil
}

func (r *viewRepository) CountByArticle(ctx context.Context, articleID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.View{}).Where("article_id = ?", articleID).Count(&n).Error
	return n, err
}
