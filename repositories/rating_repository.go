package repositories

import (
	"context"
	"math"
	"time"

	"kb-portal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepository interface {
	Upsert(ctx context.Context, rating *models.Rating) error
	Delete(ctx context.Context, articleID, userID uint) error
	FindByArticleAndUser(ctx context.Context, articleID, userID uint) (*models.Rating, error)
	ListByArticle(ctx context.Context, articleID uint) ([]models.Rating, error)
	Stats(ctx context.Context, articleID uint) (models.RatingStats, error)
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// Upsert writes the user's rating for the article and refreshes the
// article's average and count in the same transaction. The article row is
// locked first so concurrent raters of one article recompute in turn; a
// duplicate insert becomes an update through the unique (article, user) key.
func (r *ratingRepository) Upsert(ctx context.Context, rating *models.Rating) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockArticle(tx, rating.ArticleID); err != nil {
			return err
		}

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "article_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"stars":      rating.Stars,
				"comment":    rating.Comment,
				"updated_at": time.Now().UTC(),
			}),
		}).Create(rating).Error
		if err != nil {
			return err
		}

		if err := recomputeRating(tx, rating.ArticleID); err != nil {
			return err
		}
		var saved models.Rating
		if err := tx.Where("article_id = ? AND user_id = ?", rating.ArticleID, rating.UserID).First(&saved).Error; err != nil {
			return err
		}
		*rating = saved
		return nil
	})
}

func (r *ratingRepository) Delete(ctx context.Context, articleID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockArticle(tx, articleID); err != nil {
			return err
		}
		res := tx.Where("article_id = ? AND user_id = ?", articleID, userID).Delete(&models.Rating{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrorNotFound{Resource: "rating", Key: articleID}
		}
		return recomputeRating(tx, articleID)
	})
}

func (r *ratingRepository) FindByArticleAndUser(ctx context.Context, articleID, userID uint) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.WithContext(ctx).Where("article_id = ? AND user_id = ?", articleID, userID).First(&rating).Error
	if err != nil {
		return nil, notFound(err, "rating", articleID)
	}
	return &rating, nil
}

func (r *ratingRepository) ListByArticle(ctx context.Context, articleID uint) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("article_id = ?", articleID).
		Order("created_at DESC, id DESC").
		Find(&ratings).Error
	return ratings, err
}

func (r *ratingRepository) Stats(ctx context.Context, articleID uint) (models.RatingStats, error) {
	var rows []struct {
		Stars int
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Select("stars, COUNT(*) AS total").
		Where("article_id = ?", articleID).
		Group("stars").
		Scan(&rows).Error
	if err != nil {
		return models.RatingStats{}, err
	}

	stats := models.RatingStats{
		Distribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		Percentages:  map[int]float64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	var sum int64
	for _, row := range rows {
		stats.Distribution[row.Stars] = row.Total
		stats.Total += row.Total
		sum += int64(row.Stars) * row.Total
	}
	if stats.Total > 0 {
		stats.Average = round1(float64(sum) / float64(stats.Total))
		for star, n := range stats.Distribution {
			stats.Percentages[star] = round1(float64(n) * 100 / float64(stats.Total))
		}
	}
	return stats, nil
}

func lockArticle(tx *gorm.DB, articleID uint) error {
	var article models.Article
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&article, articleID).Error
	return notFound(err, "article", articleID)
}

// recomputeRating rebuilds the article's rating and rating_count from the
// ratings table. Deleted articles are included so user removal can refresh
// every article the user rated.
func recomputeRating(tx *gorm.DB, articleID uint) error {
	var agg struct {
		Average float64
		Total   int64
	}
	err := tx.Model(&models.Rating{}).
		Select("COALESCE(AVG(stars), 0) AS average, COUNT(*) AS total").
		Where("article_id = ?", articleID).
		Scan(&agg).Error
	if err != nil {
		return err
	}
	return tx.Unscoped().
		Model(&models.Article{}).
		Where("id = ?", articleID).
		UpdateColumns(map[string]interface{}{
			"rating":       round1(agg.Average),
			"rating_count": agg.Total,
		}).Error
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
