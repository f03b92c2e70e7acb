package repositories

import (
	"context"
	"strings"

	"kb-portal/helper"
	"kb-portal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserFilter struct {
	Search string
	Role   models.UserRole
	Page   helper.Page
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, f UserFilter) ([]models.User, int64, error)
	EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

// Delete removes the user together with their ratings, and recomputes the
// rating of every article they had rated, in one transaction.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return notFound(err, "user", id)
		}

		var articleIDs []uint
		if err := tx.Model(&models.Rating{}).
			Where("user_id = ?", id).
			Distinct().
			Pluck("article_id", &articleIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Rating{}).Error; err != nil {
			return err
		}
		for _, articleID := range articleIDs {
			if err := recomputeRating(tx, articleID); err != nil {
				return err
			}
		}

		return tx.Delete(&user).Error
	})
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Division").Preload("Department").First(&user, id).Error
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, notFound(err, "user", email)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.User{})
		if f.Role != "" {
			q = q.Where("role = ?", f.Role)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			like := "%" + escapeLike(strings.ToLower(s)) + "%"
			q = q.Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'", like, like)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := base().
		Preload("Division").
		Preload("Department").
		Order("created_at DESC, id DESC").
		Offset(f.Page.Offset()).
		Limit(f.Page.Limit()).
		Find(&users).Error
	return users, total, err
}

// EmailTaken also sees soft-deleted users, whose address the unique index
// still holds.
func (r *userRepository) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Unscoped().Model(&models.User{}).Where("email = ?", email)
	if exceptID > 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}
