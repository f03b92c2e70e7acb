package services

import (
	"testing"
	"time"

	"kb-portal/config"
	"kb-portal/models"
	"kb-portal/repositories"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)

	res, err := e.auth.Register(ctx, models.RegisterRequest{Name: " New User ", Email: "New@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "new@example.com", res.User.Email)
	assert.Equal(t, "New User", res.User.Name)
	assert.Equal(t, models.RoleUser, res.User.Role)

	_, err = e.auth.Register(ctx, models.RegisterRequest{Name: "Again", Email: "new@example.com", Password: "secret123"})
	var verr models.ErrorValidation
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")

	login, err := e.auth.Login(ctx, models.LoginRequest{Email: "NEW@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = e.auth.Login(ctx, models.LoginRequest{Email: "new@example.com", Password: "wrong"})
	assert.ErrorAs(t, err, &models.ErrorUnauthorized{})

	_, err = e.auth.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorAs(t, err, &models.ErrorUnauthorized{})
}

func TestAuthenticate(t *testing.T) {
	e := newEnv(t)
	res, err := e.auth.Register(ctx, models.RegisterRequest{Name: "Token", Email: "token@example.com", Password: "secret123"})
	require.NoError(t, err)

	user, err := e.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)

	_, err = e.auth.Authenticate(ctx, "not-a-token")
	assert.ErrorAs(t, err, &models.ErrorUnauthorized{})

	other := NewAuthService(e.userRepo, config.JWTConfig{Secret: "another-secret"}, nil)
	_, err = other.Authenticate(ctx, res.Token)
	assert.ErrorAs(t, err, &models.ErrorUnauthorized{})

	require.NoError(t, e.userRepo.Delete(ctx, res.User.ID))
	_, err = e.auth.Authenticate(ctx, res.Token)
	assert.ErrorAs(t, err, &models.ErrorUnauthorized{})
}

func TestAuthenticateUsesServiceClock(t *testing.T) {
	e := newEnv(t)
	res, err := e.auth.Register(ctx, models.RegisterRequest{Name: "Clock", Email: "clock@example.com", Password: "secret123"})
	require.NoError(t, err)

	e.now = fixedNow.Add(59 * time.Minute)
	_, err = e.auth.Authenticate(ctx, res.Token)
	assert.NoError(t, err)

	e.now = fixedNow.Add(61 * time.Minute)
	_, err = e.auth.Authenticate(ctx, res.Token)
	assert.ErrorAs(t, err, &models.ErrorUnauthorized{})

	e.now = fixedNow.Add(-time.Minute)
	_, err = e.auth.Authenticate(ctx, res.Token)
	assert.ErrorAs(t, err, &models.ErrorUnauthorized{}, "token is not valid before it was issued")
}

func TestAuthenticateRejectsExpired(t *testing.T) {
	e := newEnv(t)
	issuedAt := time.Now().Add(-3 * time.Hour)
	cfg := config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}
	old := NewAuthService(e.userRepo, cfg, func() time.Time { return issuedAt })
	res, err := old.Register(ctx, models.RegisterRequest{Name: "Old", Email: "old@example.com", Password: "secret123"})
	require.NoError(t, err)

	live := NewAuthService(e.userRepo, cfg, nil)
	_, err = live.Authenticate(ctx, res.Token)
	assert.ErrorAs(t, err, &models.ErrorUnauthorized{})
}

func TestAuthenticateRejectsOtherAlgorithms(t *testing.T) {
	e := newEnv(t)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = e.auth.Authenticate(ctx, signed)
	assert.ErrorAs(t, err, &models.ErrorUnauthorized{})
}

func TestTokenRequiresSecret(t *testing.T) {
	e := newEnv(t)
	svc := NewAuthService(repositories.NewUserRepository(e.db), config.JWTConfig{}, nil)
	_, err := svc.Register(ctx, models.RegisterRequest{Name: "No secret", Email: "nosecret@example.com", Password: "secret123"})
	assert.EqualError(t, err, "jwt secret is not configured")
}

func TestUserServiceRules(t *testing.T) {
	e := newEnv(t)
	admin := e.user("admin", models.RoleAdmin)
	finance := e.unit("Finance", models.OrgUnitDivision)

	_, err := e.users.Create(ctx, models.UserRequest{Name: "No Pass", Email: "nopass@example.com"})
	var verr models.ErrorValidation
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")

	_, err = e.users.Create(ctx, models.UserRequest{Name: "Dup", Email: "ADMIN@example.com", Password: "secret123"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")

	_, err = e.users.Create(ctx, models.UserRequest{Name: "Wrong unit", Email: "wrong@example.com", Password: "secret123", DepartmentID: &finance.ID})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "department_id")

	u, err := e.users.Create(ctx, models.UserRequest{Name: "Member", Email: "member@example.com", Password: "secret123", DivisionID: &finance.ID})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	require.NotNil(t, u.Division)
	assert.Equal(t, "Finance", u.Division.Name)

	updated, err := e.users.Update(ctx, u.ID, models.UserRequest{Name: "Member Two", Email: "member@example.com", Role: models.RoleEditor})
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, updated.Role)
	assert.Nil(t, updated.DivisionID)

	_, err = e.auth.Login(ctx, models.LoginRequest{Email: "member@example.com", Password: "secret123"})
	assert.NoError(t, err)

	users, total, page, err := e.users.List(ctx, UserListParams{Role: "editor"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, 15, page.PerPage)
	assert.Equal(t, u.ID, users[0].ID)

	_, _, _, err = e.users.List(ctx, UserListParams{Role: "root"})
	assert.ErrorAs(t, err, &models.ErrorValidation{})

	assert.ErrorAs(t, e.users.Delete(ctx, admin.UserID, admin), &models.ErrorConflict{})
	require.NoError(t, e.users.Delete(ctx, u.ID, admin))
	_, err = e.users.Get(ctx, u.ID)
	assert.ErrorAs(t, err, &models.ErrorNotFound{})
}

func TestOrgAndCategoryServices(t *testing.T) {
	e := newEnv(t)
	finance := e.unit("Finance", models.OrgUnitDivision)

	_, err := e.orgs.Create(ctx, models.OrgUnitRequest{Name: "Finance", Type: models.OrgUnitDivision})
	assert.ErrorAs(t, err, &models.ErrorValidation{})

	_, err = e.orgs.Create(ctx, models.OrgUnitRequest{Name: "Finance", Type: models.OrgUnitDepartment})
	assert.NoError(t, err)

	_, err = e.orgs.Update(ctx, finance.ID, models.OrgUnitRequest{Name: "Finance", Type: models.OrgUnitDepartment})
	assert.ErrorAs(t, err, &models.ErrorValidation{})

	renamed, err := e.orgs.Update(ctx, finance.ID, models.OrgUnitRequest{Name: "Treasury"})
	require.NoError(t, err)
	assert.Equal(t, "Treasury", renamed.Name)
	assert.Equal(t, models.OrgUnitDivision, renamed.Type)

	units, total, page, err := e.orgs.List(ctx, models.ListParams{All: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, units, 2)
	assert.Equal(t, 2, page.PerPage)

	cat := e.category("Human Resources")
	assert.Equal(t, "human-resources", cat.Slug)

	_, err = e.cats.Create(ctx, models.CategoryRequest{Name: "Human Resources"})
	assert.ErrorAs(t, err, &models.ErrorValidation{})

	updated, err := e.cats.Update(ctx, cat.ID, models.CategoryRequest{Name: "People Ops"})
	require.NoError(t, err)
	assert.Equal(t, "people-ops", updated.Slug)

	got, err := e.cats.GetBySlug(ctx, "people-ops")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, got.ID)

	require.NoError(t, e.cats.Delete(ctx, cat.ID))
}
