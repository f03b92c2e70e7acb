package services

import (
	"context"
	"time"

	"kb-portal/helper"
	"kb-portal/models"
	"kb-portal/repositories"
)

const dashboardTopN = 5

type DashboardService interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

type dashboardService struct {
	articleRepo  repositories.ArticleRepository
	categoryRepo repositories.CategoryRepository
	userRepo     repositories.UserRepository
	now          Clock
}

func NewDashboardService(
	articleRepo repositories.ArticleRepository,
	categoryRepo repositories.CategoryRepository,
	userRepo repositories.UserRepository,
	now Clock,
) DashboardService {
	return &dashboardService{
		articleRepo:  articleRepo,
		categoryRepo: categoryRepo,
		userRepo:     userRepo,
		now:          orSystem(now),
	}
}

func (s *dashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	now := s.now()
	stats := &models.DashboardStats{}
	var err error

	if stats.TotalArticles, err = s.articleRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.PublishedArticles, err = s.articleRepo.CountPublished(ctx, now); err != nil {
		return nil, err
	}
	if stats.TotalCategories, err = s.categoryRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalUsers, err = s.userRepo.Count(ctx); err != nil {
		return nil, err
	}

	if stats.MostViewed, err = s.top(ctx, repositories.SortPopular, now); err != nil {
		return nil, err
	}
	if stats.HighestRated, err = s.top(ctx, repositories.SortRating, now); err != nil {
		return nil, err
	}
	recent, err := s.articleRepo.RecentlyViewed(ctx, now, dashboardTopN)
	if err != nil {
		return nil, err
	}
	stats.RecentlyViewed = summaries(recent)
	return stats, nil
}

func (s *dashboardService) top(ctx context.Context, sort repositories.ArticleSort, now time.Time) ([]models.ArticleSummary, error) {
	q := repositories.ArticleQuery{
		Sort: sort,
		Now:  now,
		Page: helper.Page{Page: 1, PerPage: dashboardTopN},
	}
	articles, _, err := s.articleRepo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return summaries(articles), nil
}
