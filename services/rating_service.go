package services

import (
	"context"
	"strings"

	"kb-portal/events"
	"kb-portal/models"
	"kb-portal/policy"
	"kb-portal/repositories"
)

const maxCommentLength = 1000

type RatingService interface {
	Rate(ctx context.Context, slug string, principal *policy.Principal, req models.RatingRequest) (*models.RatingResult, error)
	Remove(ctx context.Context, slug string, principal *policy.Principal) (*models.RatingResult, error)
	Mine(ctx context.Context, slug string, principal *policy.Principal) (*models.Rating, error)
	List(ctx context.Context, slug string, principal *policy.Principal) ([]models.Rating, error)
	Stats(ctx context.Context, slug string, principal *policy.Principal) (models.RatingStats, error)
}

type ratingService struct {
	articleRepo repositories.ArticleRepository
	ratingRepo  repositories.RatingRepository
	publisher   events.Publisher
	now         Clock
}

func NewRatingService(articleRepo repositories.ArticleRepository, ratingRepo repositories.RatingRepository, publisher events.Publisher, now Clock) RatingService {
	return &ratingService{
		articleRepo: articleRepo,
		ratingRepo:  ratingRepo,
		publisher:   publisher,
		now:         orSystem(now),
	}
}

func validateRating(req models.RatingRequest) error {
	verr := models.ErrorValidation{}
	if req.Stars < 1 || req.Stars > 5 {
		verr = verr.Add("rating", "The rating must be between 1 and 5.")
	}
	if req.Comment != nil && len([]rune(*req.Comment)) > maxCommentLength {
		verr = verr.Add("comment", "The comment may not be greater than 1000 characters.")
	}
	if !verr.Empty() {
		return verr
	}
	return nil
}

// Rate creates or replaces the caller's rating of a readable article.
func (s *ratingService) Rate(ctx context.Context, slug string, principal *policy.Principal, req models.RatingRequest) (*models.RatingResult, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	if err := validateRating(req); err != nil {
		return nil, err
	}
	article, err := loadReadable(ctx, s.articleRepo, slug, principal, s.now())
	if err != nil {
		return nil, err
	}

	comment := req.Comment
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}
	rating := &models.Rating{
		ArticleID: article.ID,
		UserID:    principal.UserID,
		Stars:     req.Stars,
		Comment:   comment,
	}
	if err := s.ratingRepo.Upsert(ctx, rating); err != nil {
		return nil, err
	}

	result, err := s.result(ctx, article.ID, rating)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, events.Event{
		Type:      events.ArticleRated,
		ArticleID: article.ID,
		UserID:    uintPtr(principal.UserID),
		Payload: map[string]interface{}{
			"stars":        rating.Stars,
			"rating":       result.Average,
			"rating_count": result.RatingCount,
		},
	})
	return result, nil
}

// Remove deletes the caller's own rating.
func (s *ratingService) Remove(ctx context.Context, slug string, principal *policy.Principal) (*models.RatingResult, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	article, err := loadReadable(ctx, s.articleRepo, slug, principal, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.ratingRepo.Delete(ctx, article.ID, principal.UserID); err != nil {
		return nil, err
	}

	result, err := s.result(ctx, article.ID, nil)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, events.Event{
		Type:      events.ArticleUnrated,
		ArticleID: article.ID,
		UserID:    uintPtr(principal.UserID),
		Payload: map[string]interface{}{
			"rating":       result.Average,
			"rating_count": result.RatingCount,
		},
	})
	return result, nil
}

func (s *ratingService) Mine(ctx context.Context, slug string, principal *policy.Principal) (*models.Rating, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	article, err := loadReadable(ctx, s.articleRepo, slug, principal, s.now())
	if err != nil {
		return nil, err
	}
	return s.ratingRepo.FindByArticleAndUser(ctx, article.ID, principal.UserID)
}

func (s *ratingService) List(ctx context.Context, slug string, principal *policy.Principal) ([]models.Rating, error) {
	article, err := loadReadable(ctx, s.articleRepo, slug, principal, s.now())
	if err != nil {
		return nil, err
	}
	return s.ratingRepo.ListByArticle(ctx, article.ID)
}

func (s *ratingService) Stats(ctx context.Context, slug string, principal *policy.Principal) (models.RatingStats, error) {
	article, err := loadReadable(ctx, s.articleRepo, slug, principal, s.now())
	if err != nil {
		return models.RatingStats{}, err
	}
	return s.ratingRepo.Stats(ctx, article.ID)
}

func (s *ratingService) result(ctx context.Context, articleID uint, rating *models.Rating) (*models.RatingResult, error) {
	article, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return &models.RatingResult{
		Rating:      rating,
		Average:     article.Rating,
		RatingCount: article.RatingCount,
	}, nil
}
