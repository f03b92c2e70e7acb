package repositories

import (
	"context"

	"kb-portal/models"

	"gorm.io/gorm"
)

// BlobReleaseRepository tracks storage paths still waiting to be deleted.
type BlobReleaseRepository interface {
	Pending(ctx context.Context, limit int) ([]models.PendingBlobRelease, error)
	Done(ctx context.Context, id uint) error
	Failed(ctx context.Context, id uint, cause error) error
}

type blobReleaseRepository struct {
	db *gorm.DB
}

func NewBlobReleaseRepository(db *gorm.DB) BlobReleaseRepository {
	return &blobReleaseRepository{db: db}
}

func (r *blobReleaseRepository) Pending(ctx context.Context, limit int) ([]models.PendingBlobRelease, error) {
	var releases []models.PendingBlobRelease
	err := r.db.WithContext(ctx).Order("attempts ASC, id ASC").Limit(limit).Find(&releases).Error
	return releases, err
}

func (r *blobReleaseRepository) Done(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PendingBlobRelease{}, id).Error
}

func (r *blobReleaseRepository) Failed(ctx context.Context, id uint, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return r.db.WithContext(ctx).
		Model(&models.PendingBlobRelease{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + ?", 1),
			"last_error": msg,
		}).Error
}
