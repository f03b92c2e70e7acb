package services

import (
	"context"
	"strings"

	"kb-portal/helper"
	"kb-portal/models"
	"kb-portal/repositories"
)

type OrgService interface {
	List(ctx context.Context, params models.ListParams) ([]models.OrgUnit, int64, helper.Page, error)
	Get(ctx context.Context, id uint) (*models.OrgUnit, error)
	Create(ctx context.Context, req models.OrgUnitRequest) (*models.OrgUnit, error)
	Update(ctx context.Context, id uint, req models.OrgUnitRequest) (*models.OrgUnit, error)
	Delete(ctx context.Context, id uint) error
}

type orgService struct {
	orgRepo repositories.OrgUnitRepository
}

func NewOrgService(orgRepo repositories.OrgUnitRepository) OrgService {
	return &orgService{orgRepo: orgRepo}
}

func (s *orgService) List(ctx context.Context, params models.ListParams) ([]models.OrgUnit, int64, helper.Page, error) {
	f := repositories.OrgUnitFilter{
		Search: params.Search,
		All:    params.All,
		Page:   helper.NormalizePage(params.Page, params.PerPage, helper.DirectoryPerPage),
	}
	if params.Type != "" {
		f.Type = models.OrgUnitType(params.Type)
		if !models.ValidOrgUnitType(f.Type) {
			return nil, 0, helper.Page{}, models.NewValidationError("type", "The selected type is invalid.")
		}
	}
	units, total, err := s.orgRepo.List(ctx, f)
	if err != nil {
		return nil, 0, helper.Page{}, err
	}
	if f.All {
		f.Page = helper.Page{Page: 1, PerPage: int(total)}
		if f.Page.PerPage < 1 {
			f.Page.PerPage = 1
		}
	}
	return units, total, f.Page, nil
}

func (s *orgService) Get(ctx context.Context, id uint) (*models.OrgUnit, error) {
	return s.orgRepo.FindByID(ctx, id)
}

func (s *orgService) Create(ctx context.Context, req models.OrgUnitRequest) (*models.OrgUnit, error) {
	name, err := s.checkName(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	unit := &models.OrgUnit{Name: name, Type: req.Type, Description: req.Description}
	if err := s.orgRepo.Create(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// Update may rename a unit but not move it between division and department.
func (s *orgService) Update(ctx context.Context, id uint, req models.OrgUnitRequest) (*models.OrgUnit, error) {
	unit, err := s.orgRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Type != "" && req.Type != unit.Type {
		return nil, models.NewValidationError("type", "The type of an existing unit cannot change.")
	}
	req.Type = unit.Type
	name, err := s.checkName(ctx, req, id)
	if err != nil {
		return nil, err
	}
	unit.Name = name
	unit.Description = req.Description
	if err := s.orgRepo.Update(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

func (s *orgService) Delete(ctx context.Context, id uint) error {
	return s.orgRepo.Delete(ctx, id)
}

func (s *orgService) checkName(ctx context.Context, req models.OrgUnitRequest, exceptID uint) (string, error) {
	verr := models.ErrorValidation{}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		verr = verr.Add("name", "The name field is required.")
	}
	if !models.ValidOrgUnitType(req.Type) {
		verr = verr.Add("type", "The selected type is invalid.")
	}
	if !verr.Empty() {
		return "", verr
	}
	taken, err := s.orgRepo.NameTaken(ctx, name, req.Type, exceptID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", models.NewValidationError("name", "The name has already been taken.")
	}
	return name, nil
}
