package repositories

import (
	"context"
	"strings"

	"kb-portal/helper"
	"kb-portal/models"

	"gorm.io/gorm"
)

type OrgUnitFilter struct {
	Type   models.OrgUnitType
	Search string
	All    bool
	Page   helper.Page
}

type OrgUnitRepository interface {
	Create(ctx context.Context, unit *models.OrgUnit) error
	Update(ctx context.Context, unit *models.OrgUnit) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.OrgUnit, error)
	FindByIDs(ctx context.Context, ids []uint, unitType models.OrgUnitType) ([]models.OrgUnit, error)
	List(ctx context.Context, f OrgUnitFilter) ([]models.OrgUnit, int64, error)
	NameTaken(ctx context.Context, name string, unitType models.OrgUnitType, exceptID uint) (bool, error)
}

type orgUnitRepository struct {
	db *gorm.DB
}

func NewOrgUnitRepository(db *gorm.DB) OrgUnitRepository {
	return &orgUnitRepository{db: db}
}

func (r *orgUnitRepository) Create(ctx context.Context, unit *models.OrgUnit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *orgUnitRepository) Update(ctx context.Context, unit *models.OrgUnit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

// Delete refuses while users are assigned to the unit. Article grants that
// name the unit are dropped with it, otherwise the restriction would outlive
// the unit in queries while disappearing from loaded articles.
func (r *orgUnitRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unit models.OrgUnit
		if err := tx.First(&unit, id).Error; err != nil {
			return notFound(err, "org unit", id)
		}

		column := "division_id"
		grants := models.ArticleDivisionsTable
		if unit.Type == models.OrgUnitDepartment {
			column = "department_id"
			grants = models.ArticleDepartmentsTable
		}

		var assigned int64
		if err := tx.Model(&models.User{}).Where(column+" = ?", id).Count(&assigned).Error; err != nil {
			return err
		}
		if assigned > 0 {
			return models.ErrorConflict{Message: "org unit still has users"}
		}

		if err := tx.Exec("DELETE FROM "+grants+" WHERE org_unit_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&unit).Error
	})
}

func (r *orgUnitRepository) FindByID(ctx context.Context, id uint) (*models.OrgUnit, error) {
	var unit models.OrgUnit
	if err := r.db.WithContext(ctx).First(&unit, id).Error; err != nil {
		return nil, notFound(err, "org unit", id)
	}
	return &unit, nil
}

// FindByIDs loads the units of the given type; missing or mistyped ids are
// simply absent from the result.
func (r *orgUnitRepository) FindByIDs(ctx context.Context, ids []uint, unitType models.OrgUnitType) ([]models.OrgUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var units []models.OrgUnit
	err := r.db.WithContext(ctx).
		Where("id IN ? AND type = ?", ids, unitType).
		Order("name ASC").
		Find(&units).Error
	return units, err
}

func (r *orgUnitRepository) List(ctx context.Context, f OrgUnitFilter) ([]models.OrgUnit, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.OrgUnit{})
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			q = q.Where("LOWER(name) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(s))+"%")
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var units []models.OrgUnit
	q := base().Order("name ASC")
	if !f.All {
		q = q.Offset(f.Page.Offset()).Limit(f.Page.Limit())
	}
	err := q.Find(&units).Error
	return units, total, err
}

func (r *orgUnitRepository) NameTaken(ctx context.Context, name string, unitType models.OrgUnitType, exceptID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Unscoped().Model(&models.OrgUnit{}).Where("name = ? AND type = ?", name, unitType)
	if exceptID > 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}
