package repositories

import (
	"context"
	"time"

	"kb-portal/models"

	"gorm.io/gorm"
)

type GalleryRepository interface {
	Create(ctx context.Context, image *models.GalleryImage) error
	FindByID(ctx context.Context, id uint) (*models.GalleryImage, error)
	ListByArticle(ctx context.Context, articleID uint) ([]models.GalleryImage, error)
	ListTemporary(ctx context.Context, sessionKey string) ([]models.GalleryImage, error)
	Update(ctx context.Context, image *models.GalleryImage) error
	SetPrimary(ctx context.Context, articleID, imageID uint) error
	Reorder(ctx context.Context, articleID uint, orders []models.ImageOrder) error
	Delete(ctx context.Context, id uint) (*models.PendingBlobRelease, error)
	LinkTemporary(ctx context.Context, articleID uint, sessionKey string) (int, int64, error)
	DiscardSession(ctx context.Context, sessionKey string) ([]models.PendingBlobRelease, error)
	SweepTemporary(ctx context.Context, cutoff time.Time) ([]models.PendingBlobRelease, error)
}

type galleryRepository struct {
	db *gorm.DB
}

func NewGalleryRepository(db *gorm.DB) GalleryRepository {
	return &galleryRepository{db: db}
}

// Create stores the image. Attached images go to the end of the article's
// order; the first one becomes primary.
func (r *galleryRepository) Create(ctx context.Context, image *models.GalleryImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if image.ArticleID == nil {
			return tx.Create(image).Error
		}
		articleID := *image.ArticleID

		if image.SortOrder <= 0 {
			next, err := nextSortOrder(tx, articleID)
			if err != nil {
				return err
			}
			image.SortOrder = next
		}
		if image.IsPrimary {
			if err := clearPrimary(tx, articleID); err != nil {
				return err
			}
		}
		if err := tx.Create(image).Error; err != nil {
			return err
		}
		if err := ensurePrimary(tx, articleID); err != nil {
			return err
		}
		if err := syncGalleryCount(tx, articleID); err != nil {
			return err
		}
		return tx.First(image, image.ID).Error
	})
}

func (r *galleryRepository) FindByID(ctx context.Context, id uint) (*models.GalleryImage, error) {
	var image models.GalleryImage
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		return nil, notFound(err, "image", id)
	}
	return &image, nil
}

func (r *galleryRepository) ListByArticle(ctx context.Context, articleID uint) ([]models.GalleryImage, error) {
	var images []models.GalleryImage
	err := r.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("sort_order ASC, id ASC").
		Find(&images).Error
	return images, err
}

func (r *galleryRepository) ListTemporary(ctx context.Context, sessionKey string) ([]models.GalleryImage, error) {
	var images []models.GalleryImage
	err := r.db.WithContext(ctx).
		Where("article_id IS NULL AND session_key = ?", sessionKey).
		Order("sort_order ASC, id ASC").
		Find(&images).Error
	return images, err
}

// Update saves the editable fields. Marking an image primary unmarks the
// others of the same article.
func (r *galleryRepository) Update(ctx context.Context, image *models.GalleryImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if image.IsPrimary && image.ArticleID != nil {
			if err := clearPrimary(tx, *image.ArticleID); err != nil {
				return err
			}
		}
		return tx.Model(image).
			Select("alt_text", "caption", "sort_order", "is_primary", "updated_at").
			Updates(image).Error
	})
}

func (r *galleryRepository) SetPrimary(ctx context.Context, articleID, imageID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearPrimary(tx, articleID); err != nil {
			return err
		}
		res := tx.Model(&models.GalleryImage{}).
			Where("id = ? AND article_id = ?", imageID, articleID).
			UpdateColumn("is_primary", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrorNotFound{Resource: "image", Key: imageID}
		}
		return nil
	})
}

func (r *galleryRepository) Reorder(ctx context.Context, articleID uint, orders []models.ImageOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range orders {
			res := tx.Model(&models.GalleryImage{}).
				Where("id = ? AND article_id = ?", o.ID, articleID).
				UpdateColumn("sort_order", o.SortOrder)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return models.ErrorNotFound{Resource: "image", Key: o.ID}
			}
		}
		return nil
	})
}

// Delete removes the row, promotes the next image when the primary goes and
// records the file for release.
func (r *galleryRepository) Delete(ctx context.Context, id uint) (*models.PendingBlobRelease, error) {
	var release *models.PendingBlobRelease
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image models.GalleryImage
		if err := tx.First(&image, id).Error; err != nil {
			return notFound(err, "image", id)
		}
		if err := tx.Delete(&image).Error; err != nil {
			return err
		}
		if image.ArticleID != nil {
			if err := ensurePrimary(tx, *image.ArticleID); err != nil {
				return err
			}
			if err := syncGalleryCount(tx, *image.ArticleID); err != nil {
				return err
			}
		}
		rels, err := queueReleases(tx, []models.GalleryImage{image})
		if err != nil {
			return err
		}
		if len(rels) > 0 {
			release = &rels[0]
		}
		return nil
	})
	return release, err
}

func (r *galleryRepository) LinkTemporary(ctx context.Context, articleID uint, sessionKey string) (int, int64, error) {
	var (
		linked int
		total  int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		linked, err = linkImages(tx, articleID, nil, &sessionKey)
		if err != nil {
			return err
		}
		return tx.Model(&models.GalleryImage{}).Where("article_id = ?", articleID).Count(&total).Error
	})
	return linked, total, err
}

func (r *galleryRepository) DiscardSession(ctx context.Context, sessionKey string) ([]models.PendingBlobRelease, error) {
	return r.deleteTemporary(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("session_key = ?", sessionKey)
	})
}

// SweepTemporary drops unattached uploads created before cutoff.
func (r *galleryRepository) SweepTemporary(ctx context.Context, cutoff time.Time) ([]models.PendingBlobRelease, error) {
	return r.deleteTemporary(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("is_temporary = ? AND created_at < ?", true, cutoff.UTC())
	})
}

func (r *galleryRepository) deleteTemporary(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]models.PendingBlobRelease, error) {
	var releases []models.PendingBlobRelease
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var images []models.GalleryImage
		if err := tx.Scopes(scope).Where("article_id IS NULL").Find(&images).Error; err != nil {
			return err
		}
		if len(images) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(images))
		for _, img := range images {
			ids = append(ids, img.ID)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.GalleryImage{}).Error; err != nil {
			return err
		}
		var err error
		releases, err = queueReleases(tx, images)
		return err
	})
	return releases, err
}

// linkImages attaches unattached images, selected by id or by session key,
// to the article after its existing images.
func linkImages(tx *gorm.DB, articleID uint, ids []uint, sessionKey *string) (int, error) {
	q := tx.Where("article_id IS NULL")
	if ids != nil {
		q = q.Where("id IN ?", ids)
	}
	if sessionKey != nil {
		q = q.Where("session_key = ?", *sessionKey)
	}
	var images []models.GalleryImage
	if err := q.Order("sort_order ASC, id ASC").Find(&images).Error; err != nil {
		return 0, err
	}
	if len(images) == 0 {
		return 0, nil
	}

	next, err := nextSortOrder(tx, articleID)
	if err != nil {
		return 0, err
	}
	for i := range images {
		err := tx.Model(&images[i]).Updates(map[string]interface{}{
			"article_id":   articleID,
			"is_temporary": false,
			"session_key":  nil,
			"is_primary":   false,
			"sort_order":   next + i,
		}).Error
		if err != nil {
			return 0, err
		}
	}
	if err := ensurePrimary(tx, articleID); err != nil {
		return 0, err
	}
	return len(images), syncGalleryCount(tx, articleID)
}

func nextSortOrder(tx *gorm.DB, articleID uint) (int, error) {
	var max int
	err := tx.Model(&models.GalleryImage{}).
		Where("article_id = ?", articleID).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&max).Error
	return max + 1, err
}

func clearPrimary(tx *gorm.DB, articleID uint) error {
	return tx.Model(&models.GalleryImage{}).
		Where("article_id = ? AND is_primary = ?", articleID, true).
		UpdateColumn("is_primary", false).Error
}

// ensurePrimary marks the first image by order primary when none is.
func ensurePrimary(tx *gorm.DB, articleID uint) error {
	var count int64
	if err := tx.Model(&models.GalleryImage{}).
		Where("article_id = ? AND is_primary = ?", articleID, true).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	var first models.GalleryImage
	err := tx.Where("article_id = ?", articleID).Order("sort_order ASC, id ASC").Limit(1).Find(&first).Error
	if err != nil || first.ID == 0 {
		return err
	}
	return tx.Model(&first).UpdateColumn("is_primary", true).Error
}

func syncGalleryCount(tx *gorm.DB, articleID uint) error {
	return tx.Model(&models.Article{}).
		Where("id = ?", articleID).
		UpdateColumn("gallery_count", gorm.Expr("(SELECT COUNT(*) FROM gallery_images WHERE gallery_images.article_id = ?)", articleID)).
		Error
}

func queueReleases(tx *gorm.DB, images []models.GalleryImage) ([]models.PendingBlobRelease, error) {
	paths := make([]string, 0, len(images))
	for _, img := range images {
		paths = append(paths, img.Path)
	}
	return queuePaths(tx, paths...)
}

// queuePaths records a pending release for every non-empty path.
func queuePaths(tx *gorm.DB, paths ...string) ([]models.PendingBlobRelease, error) {
	var releases []models.PendingBlobRelease
	for _, p := range paths {
		if p != "" {
			releases = append(releases, models.PendingBlobRelease{Path: p})
		}
	}
	if len(releases) == 0 {
		return nil, nil
	}
	if err := tx.Create(&releases).Error; err != nil {
		return nil, err
	}
	return releases, nil
}
