package services

import (
	"bytes"
	"context"
	"image/color"
	"testing"
	"time"

	"kb-portal/config"
	"kb-portal/events"
	"kb-portal/models"
	"kb-portal/policy"
	"kb-portal/repositories"
	"kb-portal/storage"
	"kb-portal/testdb"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	ctx      = context.Background()
	fixedNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
)

// env wires every service against one in-memory database and a local
// store under t.TempDir.
type env struct {
	t      *testing.T
	db     *gorm.DB
	now    time.Time
	store  *storage.LocalStore
	events *events.Recorder

	userRepo    repositories.UserRepository
	orgRepo     repositories.OrgUnitRepository
	articleRepo repositories.ArticleRepository
	galleryRepo repositories.GalleryRepository
	releaseRepo repositories.BlobReleaseRepository

	auth        AuthService
	users       UserService
	orgs        OrgService
	cats        CategoryService
	views       ViewService
	articles    ArticleService
	ratings     RatingService
	gallery     GalleryService
	attachments AttachmentService
	releaser    *BlobReleaser
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{t: t, db: testdb.Open(t), now: fixedNow, events: &events.Recorder{}}
	clock := func() time.Time { return e.now }

	store, err := storage.NewLocalStore(t.TempDir(), "/storage")
	require.NoError(t, err)
	e.store = store

	e.userRepo = repositories.NewUserRepository(e.db)
	e.orgRepo = repositories.NewOrgUnitRepository(e.db)
	e.articleRepo = repositories.NewArticleRepository(e.db)
	e.galleryRepo = repositories.NewGalleryRepository(e.db)
	e.releaseRepo = repositories.NewBlobReleaseRepository(e.db)
	categoryRepo := repositories.NewCategoryRepository(e.db)

	e.releaser = NewBlobReleaser(store, e.releaseRepo, e.events)
	e.auth = NewAuthService(e.userRepo, config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}, clock)
	e.users = NewUserService(e.userRepo, e.orgRepo)
	e.orgs = NewOrgService(e.orgRepo)
	e.cats = NewCategoryService(categoryRepo, clock)
	e.views = NewViewService(repositories.NewViewRepository(e.db), nil, e.events, time.UTC, clock)
	e.articles = NewArticleService(e.articleRepo, categoryRepo, e.orgRepo, e.views, e.releaser, e.events, clock)
	e.ratings = NewRatingService(e.articleRepo, repositories.NewRatingRepository(e.db), e.events, clock)
	e.gallery = NewGalleryService(e.galleryRepo, e.articleRepo, store, e.releaser, e.events, config.GalleryConfig{
		TempTTL:       24 * time.Hour,
		MaxEdge:       64,
		MaxUploadSize: 1 << 20,
	}, clock)
	e.attachments = NewAttachmentService(e.articleRepo, store, e.releaser, e.events, clock)
	return e
}

func (e *env) user(name string, role models.UserRole) *policy.Principal {
	e.t.Helper()
	u, err := e.users.Create(ctx, models.UserRequest{
		Name:     name,
		Email:    name + "@example.com",
		Password: "secret123",
		Role:     role,
	})
	require.NoError(e.t, err)
	return policy.PrincipalOf(u)
}

func (e *env) member(name string, division, department *models.OrgUnit) *policy.Principal {
	e.t.Helper()
	req := models.UserRequest{Name: name, Email: name + "@example.com", Password: "secret123"}
	if division != nil {
		req.DivisionID = &division.ID
	}
	if department != nil {
		req.DepartmentID = &department.ID
	}
	u, err := e.users.Create(ctx, req)
	require.NoError(e.t, err)
	return policy.PrincipalOf(u)
}

func (e *env) category(name string) *models.Category {
	e.t.Helper()
	c, err := e.cats.Create(ctx, models.CategoryRequest{Name: name})
	require.NoError(e.t, err)
	return c
}

func (e *env) unit(name string, unitType models.OrgUnitType) *models.OrgUnit {
	e.t.Helper()
	u, err := e.orgs.Create(ctx, models.OrgUnitRequest{Name: name, Type: unitType})
	require.NoError(e.t, err)
	return u
}

func articleRequest(title string, categoryID uint) models.ArticleRequest {
	return models.ArticleRequest{
		Title:      title,
		Content:    "Body of " + title,
		Type:       models.TypeSOP,
		CategoryID: categoryID,
		Status:     models.StatusPublished,
	}
}

func (e *env) article(author *policy.Principal, req models.ArticleRequest) *models.Article {
	e.t.Helper()
	a, err := e.articles.Create(ctx, req, author)
	require.NoError(e.t, err)
	return a
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}
