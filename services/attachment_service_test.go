package services

import (
	"bytes"
	"io"
	"testing"

	"kb-portal/events"
	"kb-portal/models"
	"kb-portal/policy"

	"github.com/stretchr/testify/suite"
)

type AttachmentServiceTestSuite struct {
	suite.Suite
	env     *env
	admin   *policy.Principal
	editor  *policy.Principal
	other   *policy.Principal
	reader  *policy.Principal
	article *models.Article
}

func (s *AttachmentServiceTestSuite) SetupTest() {
	s.env = newEnv(s.T())
	s.admin = s.env.user("admin", models.RoleAdmin)
	s.editor = s.env.user("editor", models.RoleEditor)
	s.other = s.env.user("other", models.RoleEditor)
	s.reader = s.env.user("reader", models.RoleUser)
	s.article = s.env.article(s.editor, articleRequest("Travel policy", s.env.category("General").ID))
}

func pdf(body string) Upload {
	return Upload{Filename: "Travel Policy.pdf", Data: []byte("%PDF-1.4\n" + body)}
}

func (s *AttachmentServiceTestSuite) exists(path string) bool {
	ok, err := s.env.store.Exists(ctx, path)
	s.Require().NoError(err)
	return ok
}

func (s *AttachmentServiceTestSuite) TestAttachAndDownload() {
	saved, err := s.env.attachments.Attach(ctx, s.article.ID, pdf("v1"), s.editor)
	s.Require().NoError(err)
	s.Equal("Travel Policy.pdf", saved.AttachmentName)
	s.Equal(int64(len("%PDF-1.4\nv1")), saved.AttachmentSize)
	s.Contains(saved.AttachmentPath, "attachments/")
	s.True(s.exists(saved.AttachmentPath))
	s.Len(s.env.events.OfType(events.ArticleAttached), 1)

	dl, err := s.env.attachments.Download(ctx, s.article.Slug, nil)
	s.Require().NoError(err)
	defer dl.Body.Close()
	body, err := io.ReadAll(dl.Body)
	s.Require().NoError(err)
	s.Equal("%PDF-1.4\nv1", string(body))
	s.Equal("Travel Policy.pdf", dl.Name)
	s.Equal("application/pdf", dl.ContentType)
}

func (s *AttachmentServiceTestSuite) TestReplaceReleasesOldFile() {
	first, err := s.env.attachments.Attach(ctx, s.article.ID, pdf("v1"), s.editor)
	s.Require().NoError(err)
	second, err := s.env.attachments.Attach(ctx, s.article.ID, Upload{Filename: "notes", Data: []byte("%PDF-1.7\nv2")}, s.admin)
	s.Require().NoError(err)

	s.NotEqual(first.AttachmentPath, second.AttachmentPath)
	s.Equal("notes.pdf", second.AttachmentName)
	s.False(s.exists(first.AttachmentPath))
	s.True(s.exists(second.AttachmentPath))

	pending, err := s.env.releaseRepo.Pending(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *AttachmentServiceTestSuite) TestAttachValidation() {
	cases := map[string]Upload{
		"empty":     {Filename: "a.pdf"},
		"not a pdf": {Filename: "a.pdf", Data: pngBytes(s.T(), 4, 4)},
		"too large": {Filename: "a.pdf", Data: append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), MaxAttachmentSize)...)},
	}
	for name, upload := range cases {
		_, err := s.env.attachments.Attach(ctx, s.article.ID, upload, s.editor)
		var verr models.ErrorValidation
		if s.ErrorAs(err, &verr, name) {
			s.Contains(verr.Fields, "attachment", name)
		}
	}

	saved, err := s.env.articleRepo.FindByID(ctx, s.article.ID)
	s.Require().NoError(err)
	s.True(saved.Attachment().Empty())
}

func (s *AttachmentServiceTestSuite) TestAttachPermissions() {
	_, err := s.env.attachments.Attach(ctx, s.article.ID, pdf("x"), s.other)
	s.ErrorAs(err, &models.ErrorForbidden{})

	_, err = s.env.attachments.Attach(ctx, s.article.ID, pdf("x"), s.reader)
	s.ErrorAs(err, &models.ErrorForbidden{})

	_, err = s.env.attachments.Attach(ctx, s.article.ID, pdf("x"), nil)
	s.ErrorAs(err, &models.ErrorUnauthorized{})

	_, err = s.env.attachments.Remove(ctx, s.article.ID, s.other)
	s.ErrorAs(err, &models.ErrorForbidden{})
}

func (s *AttachmentServiceTestSuite) TestDownloadFollowsReadAccess() {
	finance := s.env.unit("Finance", models.OrgUnitDivision)
	req := articleRequest("Budget", s.article.CategoryID)
	req.Visibility = models.VisibilityPrivate
	req.DivisionIDs = []uint{finance.ID}
	private := s.env.article(s.editor, req)
	_, err := s.env.attachments.Attach(ctx, private.ID, pdf("secret"), s.editor)
	s.Require().NoError(err)

	_, err = s.env.attachments.Download(ctx, private.Slug, s.reader)
	var forbidden models.ErrorForbidden
	s.Require().ErrorAs(err, &forbidden)
	s.Require().NotNil(forbidden.Denied)
	s.Equal([]string{"Finance"}, forbidden.Denied.AllowedDivisionNames)

	member := s.env.member("member", finance, nil)
	dl, err := s.env.attachments.Download(ctx, private.Slug, member)
	s.Require().NoError(err)
	s.NoError(dl.Body.Close())

	draftReq := articleRequest("Draft doc", s.article.CategoryID)
	draftReq.Status = models.StatusDraft
	draft := s.env.article(s.editor, draftReq)
	_, err = s.env.attachments.Attach(ctx, draft.ID, pdf("draft"), s.editor)
	s.Require().NoError(err)
	_, err = s.env.attachments.Download(ctx, draft.Slug, s.admin)
	s.ErrorAs(err, &models.ErrorNotFound{})
}

func (s *AttachmentServiceTestSuite) TestDownloadMissing() {
	_, err := s.env.attachments.Download(ctx, s.article.Slug, nil)
	s.ErrorAs(err, &models.ErrorNotFound{}, "no attachment")

	saved, err := s.env.attachments.Attach(ctx, s.article.ID, pdf("v1"), s.editor)
	s.Require().NoError(err)
	s.Require().NoError(s.env.store.Delete(ctx, saved.AttachmentPath))

	_, err = s.env.attachments.Download(ctx, s.article.Slug, nil)
	s.ErrorAs(err, &models.ErrorNotFound{}, "file gone from storage")
}

func (s *AttachmentServiceTestSuite) TestRemoveAndArticleDelete() {
	saved, err := s.env.attachments.Attach(ctx, s.article.ID, pdf("v1"), s.editor)
	s.Require().NoError(err)

	cleared, err := s.env.attachments.Remove(ctx, s.article.ID, s.editor)
	s.Require().NoError(err)
	s.True(cleared.Attachment().Empty())
	s.False(s.exists(saved.AttachmentPath))

	again, err := s.env.attachments.Remove(ctx, s.article.ID, s.editor)
	s.Require().NoError(err)
	s.True(again.Attachment().Empty())

	saved, err = s.env.attachments.Attach(ctx, s.article.ID, pdf("v2"), s.editor)
	s.Require().NoError(err)
	s.Require().NoError(s.env.articles.Delete(ctx, s.article.ID, s.editor))
	s.False(s.exists(saved.AttachmentPath))
}

func TestAttachmentName(t *testing.T) {
	for in, want := range map[string]string{
		"report.pdf":           "report.pdf",
		"REPORT.PDF":           "REPORT.PDF",
		`C:\docs\manual.pdf`:   "manual.pdf",
		"../../etc/passwd":     "passwd.pdf",
		"":                     "dokumen.pdf",
		"   ":                  "dokumen.pdf",
		"Laporan Tahunan 2024": "Laporan Tahunan 2024.pdf",
	} {
		if got := attachmentName(in); got != want {
			t.Errorf("attachmentName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAttachmentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AttachmentServiceTestSuite))
}
