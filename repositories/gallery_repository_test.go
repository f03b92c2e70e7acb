package repositories

import (
	"fmt"
	"testing"
	"time"

	"kb-portal/models"
	"kb-portal/testdb"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type GalleryRepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	repo     GalleryRepository
	article  *models.Article
	uploader *models.User
}

func (s *GalleryRepositoryTestSuite) SetupTest() {
	s.db = testdb.Open(s.T())
	s.repo = NewGalleryRepository(s.db)
	s.uploader = seedUser(s.T(), s.db, "Editor", models.RoleEditor)
	cat := seedCategory(s.T(), s.db, "General")
	s.article = seedArticle(s.T(), s.db, models.Article{Title: "Illustrated", CategoryID: cat.ID, AuthorID: s.uploader.ID}, Grants{})
}

func (s *GalleryRepositoryTestSuite) attach(name string) *models.GalleryImage {
	id := s.article.ID
	img := &models.GalleryImage{
		ArticleID:  &id,
		Filename:   name,
		Path:       "gallery/articles/" + name,
		UploadedBy: &s.uploader.ID,
	}
	s.Require().NoError(s.repo.Create(ctx, img))
	return img
}

func (s *GalleryRepositoryTestSuite) temporary(session, name string) *models.GalleryImage {
	img := &models.GalleryImage{
		Filename:    name,
		Path:        fmt.Sprintf("gallery/temp/%s/%s", session, name),
		SessionKey:  &session,
		IsTemporary: true,
		UploadedBy:  &s.uploader.ID,
	}
	s.Require().NoError(s.repo.Create(ctx, img))
	return img
}

func (s *GalleryRepositoryTestSuite) galleryCount() int64 {
	var a models.Article
	s.Require().NoError(s.db.First(&a, s.article.ID).Error)
	return a.GalleryCount
}

func (s *GalleryRepositoryTestSuite) primaryIDs() []uint {
	var ids []uint
	s.Require().NoError(s.db.Model(&models.GalleryImage{}).
		Where("article_id = ? AND is_primary = ?", s.article.ID, true).
		Pluck("id", &ids).Error)
	return ids
}

func (s *GalleryRepositoryTestSuite) TestCreateAppendsAndFirstIsPrimary() {
	a := s.attach("a.jpg")
	b := s.attach("b.jpg")

	s.Equal(1, a.SortOrder)
	s.Equal(2, b.SortOrder)
	s.True(a.IsPrimary)
	s.False(b.IsPrimary)
	s.Equal(int64(2), s.galleryCount())
}

func (s *GalleryRepositoryTestSuite) TestSetPrimaryKeepsOne() {
	s.attach("a.jpg")
	b := s.attach("b.jpg")

	s.Require().NoError(s.repo.SetPrimary(ctx, s.article.ID, b.ID))
	s.Equal([]uint{b.ID}, s.primaryIDs())

	err := s.repo.SetPrimary(ctx, s.article.ID, 9999)
	s.ErrorAs(err, &models.ErrorNotFound{})
}

func (s *GalleryRepositoryTestSuite) TestUpdatePrimaryUnmarksOthers() {
	s.attach("a.jpg")
	b := s.attach("b.jpg")

	b.IsPrimary = true
	b.Caption = "cover"
	s.Require().NoError(s.repo.Update(ctx, b))
	s.Equal([]uint{b.ID}, s.primaryIDs())

	got, err := s.repo.FindByID(ctx, b.ID)
	s.Require().NoError(err)
	s.Equal("cover", got.Caption)
}

func (s *GalleryRepositoryTestSuite) TestReorder() {
	a := s.attach("a.jpg")
	b := s.attach("b.jpg")

	s.Require().NoError(s.repo.Reorder(ctx, s.article.ID, []models.ImageOrder{
		{ID: a.ID, SortOrder: 2},
		{ID: b.ID, SortOrder: 1},
	}))
	images, err := s.repo.ListByArticle(ctx, s.article.ID)
	s.Require().NoError(err)
	s.Equal([]uint{b.ID, a.ID}, []uint{images[0].ID, images[1].ID})

	foreign := s.temporary("sess", "x.jpg")
	err = s.repo.Reorder(ctx, s.article.ID, []models.ImageOrder{{ID: foreign.ID, SortOrder: 1}})
	s.ErrorAs(err, &models.ErrorNotFound{})
}

func (s *GalleryRepositoryTestSuite) TestDeletePromotesNextAndQueuesRelease() {
	a := s.attach("a.jpg")
	b := s.attach("b.jpg")

	release, err := s.repo.Delete(ctx, a.ID)
	s.Require().NoError(err)
	s.Require().NotNil(release)
	s.Equal(a.Path, release.Path)
	s.NotZero(release.ID)

	s.Equal([]uint{b.ID}, s.primaryIDs())
	s.Equal(int64(1), s.galleryCount())

	_, err = s.repo.Delete(ctx, a.ID)
	s.ErrorAs(err, &models.ErrorNotFound{})
}

func (s *GalleryRepositoryTestSuite) TestLinkTemporary() {
	existing := s.attach("a.jpg")
	t1 := s.temporary("sess-1", "t1.jpg")
	s.temporary("sess-1", "t2.jpg")
	other := s.temporary("sess-2", "t3.jpg")

	linked, total, err := s.repo.LinkTemporary(ctx, s.article.ID, "sess-1")
	s.Require().NoError(err)
	s.Equal(2, linked)
	s.Equal(int64(3), total)
	s.Equal(int64(3), s.galleryCount())
	s.Equal([]uint{existing.ID}, s.primaryIDs())

	got, err := s.repo.FindByID(ctx, t1.ID)
	s.Require().NoError(err)
	s.False(got.IsTemporary)
	s.Nil(got.SessionKey)
	s.Equal(2, got.SortOrder)

	rest, err := s.repo.ListTemporary(ctx, "sess-2")
	s.Require().NoError(err)
	s.Equal([]uint{other.ID}, []uint{rest[0].ID})

	linked, _, err = s.repo.LinkTemporary(ctx, s.article.ID, "sess-1")
	s.Require().NoError(err)
	s.Zero(linked)
}

func (s *GalleryRepositoryTestSuite) TestSweepOnlyOldTemporary() {
	old := s.temporary("sess", "old.jpg")
	fresh := s.temporary("sess", "fresh.jpg")
	s.attach("kept.jpg")
	s.Require().NoError(s.db.Model(old).UpdateColumn("created_at", time.Now().UTC().Add(-48*time.Hour)).Error)

	releases, err := s.repo.SweepTemporary(ctx, time.Now().Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Len(releases, 1)
	s.Equal(old.Path, releases[0].Path)

	left, err := s.repo.ListTemporary(ctx, "sess")
	s.Require().NoError(err)
	s.Len(left, 1)
	s.Equal(fresh.ID, left[0].ID)
	s.Equal(int64(1), s.galleryCount())
}

func (s *GalleryRepositoryTestSuite) TestDiscardSession() {
	s.temporary("sess", "a.jpg")
	s.temporary("sess", "b.jpg")
	s.temporary("keep", "c.jpg")

	releases, err := s.repo.DiscardSession(ctx, "sess")
	s.Require().NoError(err)
	s.Len(releases, 2)

	var pending int64
	s.Require().NoError(s.db.Model(&models.PendingBlobRelease{}).Count(&pending).Error)
	s.Equal(int64(2), pending)
}

func (s *GalleryRepositoryTestSuite) TestSoftDeleteArticleQueuesGallery() {
	s.attach("a.jpg")
	s.attach("b.jpg")

	releases, err := NewArticleRepository(s.db).SoftDelete(ctx, s.article.ID)
	s.Require().NoError(err)
	s.Len(releases, 2)

	var images int64
	s.Require().NoError(s.db.Model(&models.GalleryImage{}).Count(&images).Error)
	s.Zero(images)

	_, err = NewArticleRepository(s.db).FindByID(ctx, s.article.ID)
	s.ErrorAs(err, &models.ErrorNotFound{})

	pending, err := NewBlobReleaseRepository(s.db).Pending(ctx, 10)
	s.Require().NoError(err)
	s.Len(pending, 2)
}

func TestGalleryRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(GalleryRepositoryTestSuite))
}
