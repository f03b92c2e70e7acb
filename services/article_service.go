package services

import (
	"context"
	"log/slog"
	"strings"

	"kb-portal/events"
	"kb-portal/helper"
	"kb-portal/models"
	"kb-portal/policy"
	"kb-portal/repositories"
)

const relatedArticlesLimit = 3

type ArticleService interface {
	List(ctx context.Context, params models.ArticleListParams, principal *policy.Principal) ([]models.ArticleSummary, int64, helper.Page, error)
	GetBySlug(ctx context.Context, slug string, principal *policy.Principal, ip string) (*models.ArticleDetail, error)
	GetForEdit(ctx context.Context, id uint, principal *policy.Principal) (*models.Article, error)
	Create(ctx context.Context, req models.ArticleRequest, principal *policy.Principal) (*models.Article, error)
	Update(ctx context.Context, id uint, req models.ArticleRequest, principal *policy.Principal) (*models.Article, error)
	Delete(ctx context.Context, id uint, principal *policy.Principal) error
}

type articleService struct {
	articleRepo  repositories.ArticleRepository
	categoryRepo repositories.CategoryRepository
	orgRepo      repositories.OrgUnitRepository
	views        ViewService
	releaser     *BlobReleaser
	publisher    events.Publisher
	now          Clock
}

func NewArticleService(
	articleRepo repositories.ArticleRepository,
	categoryRepo repositories.CategoryRepository,
	orgRepo repositories.OrgUnitRepository,
	views ViewService,
	releaser *BlobReleaser,
	publisher events.Publisher,
	now Clock,
) ArticleService {
	return &articleService{
		articleRepo:  articleRepo,
		categoryRepo: categoryRepo,
		orgRepo:      orgRepo,
		views:        views,
		releaser:     releaser,
		publisher:    publisher,
		now:          orSystem(now),
	}
}

// List returns one page of published articles. With Accessible set the
// page only holds articles the principal may read, and the total counts
// only those.
func (s *articleService) List(ctx context.Context, params models.ArticleListParams, principal *policy.Principal) ([]models.ArticleSummary, int64, helper.Page, error) {
	q, err := repositories.NewArticleQuery(params, principal, s.now())
	if err != nil {
		return nil, 0, helper.Page{}, err
	}
	articles, total, err := s.articleRepo.List(ctx, q)
	if err != nil {
		return nil, 0, helper.Page{}, err
	}
	return summaries(articles), total, q.Page, nil
}

// GetBySlug is the public read: published only, access checked, view
// recorded, with related articles the principal may also read.
func (s *articleService) GetBySlug(ctx context.Context, slug string, principal *policy.Principal, ip string) (*models.ArticleDetail, error) {
	now := s.now()
	article, err := loadReadable(ctx, s.articleRepo, slug, principal, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.views.Record(ctx, article, principal, ip); err != nil {
		slog.ErrorContext(ctx, "record view", "article_id", article.ID, "error", err)
	}

	related, err := s.articleRepo.Related(ctx, article, policy.For(principal), now, relatedArticlesLimit)
	if err != nil {
		return nil, err
	}
	return &models.ArticleDetail{Article: article, RelatedArticles: summaries(related)}, nil
}

// GetForEdit loads any status for the author, editors and admins.
func (s *articleService) GetForEdit(ctx context.Context, id uint, principal *policy.Principal) (*models.Article, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	article, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanAuthor() && principal.UserID != article.AuthorID {
		return nil, forbidden("you may not edit this article")
	}
	return article, nil
}

func (s *articleService) Create(ctx context.Context, req models.ArticleRequest, principal *policy.Principal) (*models.Article, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	if !principal.CanAuthor() {
		return nil, forbidden("only editors and admins may create articles")
	}
	grants, err := s.validate(ctx, &req)
	if err != nil {
		return nil, err
	}

	slug, err := s.articleRepo.UniqueSlug(ctx, helper.Slugify(req.Title), 0)
	if err != nil {
		return nil, err
	}
	article := &models.Article{
		Slug:     slug,
		AuthorID: principal.UserID,
	}
	applyArticleRequest(article, req)
	article.ApplyStatus(req.Status, s.now())

	if err := s.articleRepo.Create(ctx, article, grants, uniqueIDs(req.ImageIDs)); err != nil {
		return nil, err
	}
	saved, err := s.articleRepo.FindByID(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, events.Event{
		Type:      events.ArticleCreated,
		ArticleID: saved.ID,
		UserID:    uintPtr(principal.UserID),
		Payload:   map[string]interface{}{"slug": saved.Slug, "status": saved.Status},
	})
	return saved, nil
}

// Update keeps the slug stable; published_at follows the status.
func (s *articleService) Update(ctx context.Context, id uint, req models.ArticleRequest, principal *policy.Principal) (*models.Article, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	article, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanManage(article) {
		return nil, forbidden("only the author or an admin may change this article")
	}
	grants, err := s.validate(ctx, &req)
	if err != nil {
		return nil, err
	}

	applyArticleRequest(article, req)
	article.ApplyStatus(req.Status, s.now())

	if err := s.articleRepo.Update(ctx, article, grants, uniqueIDs(req.ImageIDs)); err != nil {
		return nil, err
	}
	saved, err := s.articleRepo.FindByID(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, events.Event{
		Type:      events.ArticleUpdated,
		ArticleID: saved.ID,
		UserID:    uintPtr(principal.UserID),
		Payload:   map[string]interface{}{"slug": saved.Slug, "status": saved.Status},
	})
	return saved, nil
}

// Delete soft-deletes the article, then releases its gallery files. A file
// that cannot be removed now stays queued for the retry job.
func (s *articleService) Delete(ctx context.Context, id uint, principal *policy.Principal) error {
	if err := requireUser(principal); err != nil {
		return err
	}
	article, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !principal.CanManage(article) {
		return forbidden("only the author or an admin may delete this article")
	}

	releases, err := s.articleRepo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if s.releaser != nil && len(releases) > 0 {
		s.releaser.Release(ctx, releases)
	}
	publish(ctx, s.publisher, events.Event{
		Type:      events.ArticleDeleted,
		ArticleID: id,
		UserID:    uintPtr(principal.UserID),
		Payload:   map[string]interface{}{"slug": article.Slug, "released_files": len(releases)},
	})
	return nil
}

// validate checks references and returns the grants to store. Public
// articles never keep grants.
func (s *articleService) validate(ctx context.Context, req *models.ArticleRequest) (repositories.Grants, error) {
	verr := models.ErrorValidation{}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		verr = verr.Add("title", "The title field is required.")
	}
	if !models.ValidArticleType(req.Type) {
		verr = verr.Add("type", "The selected type is invalid.")
	}
	if req.Status != models.StatusDraft && req.Status != models.StatusPublished {
		verr = verr.Add("status", "The selected status is invalid.")
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPublic
	}
	if req.Visibility != models.VisibilityPublic && req.Visibility != models.VisibilityPrivate {
		verr = verr.Add("visibility", "The selected visibility is invalid.")
	}

	if req.CategoryID == 0 {
		verr = verr.Add("category_id", "The category id field is required.")
	} else if _, err := s.categoryRepo.FindByID(ctx, req.CategoryID); err != nil {
		if !isNotFound(err) {
			return repositories.Grants{}, err
		}
		verr = verr.Add("category_id", "The selected category id is invalid.")
	}

	var grants repositories.Grants
	if req.Visibility == models.VisibilityPrivate {
		var err error
		grants.Divisions, err = s.loadUnits(ctx, req.DivisionIDs, models.OrgUnitDivision, "division_ids", &verr)
		if err != nil {
			return repositories.Grants{}, err
		}
		grants.Departments, err = s.loadUnits(ctx, req.DepartmentIDs, models.OrgUnitDepartment, "department_ids", &verr)
		if err != nil {
			return repositories.Grants{}, err
		}
	}

	if !verr.Empty() {
		return repositories.Grants{}, verr
	}
	return grants, nil
}

func (s *articleService) loadUnits(ctx context.Context, ids []uint, unitType models.OrgUnitType, field string, verr *models.ErrorValidation) ([]models.OrgUnit, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	units, err := s.orgRepo.FindByIDs(ctx, ids, unitType)
	if err != nil {
		return nil, err
	}
	if len(units) != len(ids) {
		*verr = verr.Add(field, "The selected "+string(unitType)+" is invalid.")
		return nil, nil
	}
	return units, nil
}

func applyArticleRequest(article *models.Article, req models.ArticleRequest) {
	article.Title = req.Title
	article.Description = req.Description
	article.Content = req.Content
	article.Type = req.Type
	article.DocumentType = req.DocumentType
	article.CategoryID = req.CategoryID
	article.Visibility = req.Visibility
	article.Category = nil
}
