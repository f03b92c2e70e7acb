package services

import (
	"context"
	"strings"

	"kb-portal/helper"
	"kb-portal/models"
	"kb-portal/repositories"
)

type CategoryService interface {
	List(ctx context.Context, params models.ListParams) ([]models.Category, int64, helper.Page, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	Create(ctx context.Context, req models.CategoryRequest) (*models.Category, error)
	Update(ctx context.Context, id uint, req models.CategoryRequest) (*models.Category, error)
	Delete(ctx context.Context, id uint) error
}

type categoryService struct {
	categoryRepo repositories.CategoryRepository
	now          Clock
}

func NewCategoryService(categoryRepo repositories.CategoryRepository, now Clock) CategoryService {
	return &categoryService{categoryRepo: categoryRepo, now: orSystem(now)}
}

func (s *categoryService) List(ctx context.Context, params models.ListParams) ([]models.Category, int64, helper.Page, error) {
	page := helper.NormalizePage(params.Page, params.PerPage, helper.CategoryPerPage)
	if params.All {
		page = helper.Page{Page: 1, PerPage: helper.MaxPerPage}
	}
	categories, total, err := s.categoryRepo.List(ctx, params.Search, page, s.now())
	return categories, total, page, err
}

func (s *categoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.categoryRepo.FindBySlug(ctx, slug)
}

func (s *categoryService) Create(ctx context.Context, req models.CategoryRequest) (*models.Category, error) {
	name, err := s.checkName(ctx, req.Name, 0)
	if err != nil {
		return nil, err
	}
	slug, err := s.categoryRepo.UniqueSlug(ctx, helper.Slugify(name), 0)
	if err != nil {
		return nil, err
	}
	category := &models.Category{
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		Icon:        req.Icon,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Update re-derives the slug when the name changes.
func (s *categoryService) Update(ctx context.Context, id uint, req models.CategoryRequest) (*models.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err := s.checkName(ctx, req.Name, id)
	if err != nil {
		return nil, err
	}
	if name != category.Name {
		slug, err := s.categoryRepo.UniqueSlug(ctx, helper.Slugify(name), id)
		if err != nil {
			return nil, err
		}
		category.Slug = slug
	}
	category.Name = name
	category.Description = req.Description
	category.Icon = req.Icon
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, id uint) error {
	return s.categoryRepo.Delete(ctx, id)
}

func (s *categoryService) checkName(ctx context.Context, name string, exceptID uint) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.NewValidationError("name", "The name field is required.")
	}
	taken, err := s.categoryRepo.NameTaken(ctx, name, exceptID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", models.NewValidationError("name", "The name has already been taken.")
	}
	return name, nil
}
