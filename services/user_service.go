package services

import (
	"context"
	"strings"

	"kb-portal/helper"
	"kb-portal/models"
	"kb-portal/policy"
	"kb-portal/repositories"
)

type UserListParams struct {
	Search  string `form:"search"`
	Role    string `form:"role"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
}

type UserService interface {
	List(ctx context.Context, params UserListParams) ([]models.User, int64, helper.Page, error)
	Get(ctx context.Context, id uint) (*models.User, error)
	Create(ctx context.Context, req models.UserRequest) (*models.User, error)
	Update(ctx context.Context, id uint, req models.UserRequest) (*models.User, error)
	Delete(ctx context.Context, id uint, principal *policy.Principal) error
}

type userService struct {
	userRepo repositories.UserRepository
	orgRepo  repositories.OrgUnitRepository
}

func NewUserService(userRepo repositories.UserRepository, orgRepo repositories.OrgUnitRepository) UserService {
	return &userService{userRepo: userRepo, orgRepo: orgRepo}
}

func (s *userService) List(ctx context.Context, params UserListParams) ([]models.User, int64, helper.Page, error) {
	f := repositories.UserFilter{
		Search: params.Search,
		Page:   helper.NormalizePage(params.Page, params.PerPage, helper.AdminPerPage),
	}
	if params.Role != "" {
		f.Role = models.UserRole(params.Role)
		if !models.ValidRole(f.Role) {
			return nil, 0, helper.Page{}, models.NewValidationError("role", "The selected role is invalid.")
		}
	}
	users, total, err := s.userRepo.List(ctx, f)
	return users, total, f.Page, err
}

func (s *userService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

func (s *userService) Create(ctx context.Context, req models.UserRequest) (*models.User, error) {
	if strings.TrimSpace(req.Password) == "" {
		return nil, models.NewValidationError("password", "The password field is required.")
	}
	user := &models.User{}
	if err := s.apply(ctx, user, req, 0); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.userRepo.FindByID(ctx, user.ID)
}

// Update leaves the password alone when none is given.
func (s *userService) Update(ctx context.Context, id uint, req models.UserRequest) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, user, req, id); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.userRepo.FindByID(ctx, id)
}

// Delete removes the user and their ratings; admins cannot remove
// themselves.
func (s *userService) Delete(ctx context.Context, id uint, principal *policy.Principal) error {
	if principal != nil && principal.UserID == id {
		return models.ErrorConflict{Message: "you cannot delete your own account"}
	}
	return s.userRepo.Delete(ctx, id)
}

func (s *userService) apply(ctx context.Context, user *models.User, req models.UserRequest, exceptID uint) error {
	verr := models.ErrorValidation{}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		verr = verr.Add("name", "The name field is required.")
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		verr = verr.Add("email", "The email field is required.")
	} else {
		taken, err := s.userRepo.EmailTaken(ctx, email, exceptID)
		if err != nil {
			return err
		}
		if taken {
			verr = verr.Add("email", "The email has already been taken.")
		}
	}
	role := req.Role
	if role == "" {
		role = user.Role
	}
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		verr = verr.Add("role", "The selected role is invalid.")
	}
	if err := s.checkUnit(ctx, req.DivisionID, models.OrgUnitDivision, "division_id", &verr); err != nil {
		return err
	}
	if err := s.checkUnit(ctx, req.DepartmentID, models.OrgUnitDepartment, "department_id", &verr); err != nil {
		return err
	}
	if !verr.Empty() {
		return verr
	}

	if req.Password != "" {
		hashed, err := hashPassword(req.Password)
		if err != nil {
			return err
		}
		user.Password = hashed
	}
	user.Name = name
	user.Email = email
	user.Role = role
	user.Position = strings.TrimSpace(req.Position)
	user.DivisionID = req.DivisionID
	user.DepartmentID = req.DepartmentID
	user.Division = nil
	user.Department = nil
	return nil
}

func (s *userService) checkUnit(ctx context.Context, id *uint, unitType models.OrgUnitType, field string, verr *models.ErrorValidation) error {
	if id == nil {
		return nil
	}
	units, err := s.orgRepo.FindByIDs(ctx, []uint{*id}, unitType)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		*verr = verr.Add(field, "The selected "+string(unitType)+" is invalid.")
	}
	return nil
}
