package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"kb-portal/helper"
	"kb-portal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	ctx      = context.Background()
	fixedNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
)

func seedUser(t *testing.T, db *gorm.DB, name string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", helper.Slugify(name)),
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: helper.Slugify(name)}
	require.NoError(t, db.Create(c).Error)
	return c
}

func seedUnit(t *testing.T, db *gorm.DB, name string, unitType models.OrgUnitType) *models.OrgUnit {
	t.Helper()
	u := &models.OrgUnit{Name: name, Type: unitType}
	require.NoError(t, db.Create(u).Error)
	return u
}

// seedArticle fills in a published, public SOP unless a says otherwise.
// Titles that slugify alike get numbered slugs.
func seedArticle(t *testing.T, db *gorm.DB, a models.Article, grants Grants) *models.Article {
	t.Helper()
	repo := NewArticleRepository(db)
	if a.Slug == "" {
		slug, err := repo.UniqueSlug(ctx, helper.Slugify(a.Title), 0)
		require.NoError(t, err)
		a.Slug = slug
	}
	if a.Type == "" {
		a.Type = models.TypeSOP
	}
	if a.Visibility == "" {
		a.Visibility = models.VisibilityPublic
	}
	if a.Status == "" {
		a.Status = models.StatusPublished
		published := fixedNow.Add(-time.Hour)
		a.PublishedAt = &published
	}
	require.NoError(t, repo.Create(ctx, &a, grants, nil))
	return &a
}

func articleIDs(articles []models.Article) []uint {
	ids := make([]uint, 0, len(articles))
	for _, a := range articles {
		ids = append(ids, a.ID)
	}
	return ids
}

func pageOf(page, perPage int) helper.Page {
	return helper.Page{Page: page, PerPage: perPage}
}
