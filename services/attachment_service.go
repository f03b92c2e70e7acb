package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"kb-portal/events"
	"kb-portal/models"
	"kb-portal/policy"
	"kb-portal/repositories"
	"kb-portal/storage"

	"github.com/google/uuid"
)

const (
	MaxAttachmentSize   = 10 << 20
	attachmentMime      = "application/pdf"
	attachmentDir       = "attachments"
	defaultDownloadName = "dokumen.pdf"
)

// Download is an open attachment ready to stream. Callers close Body.
type Download struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.ReadCloser
}

type AttachmentService interface {
	Attach(ctx context.Context, articleID uint, file Upload, principal *policy.Principal) (*models.Article, error)
	Remove(ctx context.Context, articleID uint, principal *policy.Principal) (*models.Article, error)
	Download(ctx context.Context, slug string, principal *policy.Principal) (*Download, error)
}

type attachmentService struct {
	articleRepo repositories.ArticleRepository
	store       storage.BlobStore
	releaser    *BlobReleaser
	publisher   events.Publisher
	now         Clock
}

func NewAttachmentService(
	articleRepo repositories.ArticleRepository,
	store storage.BlobStore,
	releaser *BlobReleaser,
	publisher events.Publisher,
	now Clock,
) AttachmentService {
	return &attachmentService{
		articleRepo: articleRepo,
		store:       store,
		releaser:    releaser,
		publisher:   publisher,
		now:         orSystem(now),
	}
}

// Attach stores a PDF for the article, replacing any earlier one. The old
// file is released after the row points at the new one.
func (s *attachmentService) Attach(ctx context.Context, articleID uint, file Upload, principal *policy.Principal) (*models.Article, error) {
	article, err := s.manageable(ctx, articleID, principal)
	if err != nil {
		return nil, err
	}
	if len(file.Data) == 0 {
		return nil, models.NewValidationError("attachment", "The attachment field is required.")
	}
	if len(file.Data) > MaxAttachmentSize {
		return nil, models.NewValidationError("attachment", fmt.Sprintf("The attachment may not be greater than %d kilobytes.", MaxAttachmentSize>>10))
	}
	if http.DetectContentType(file.Data) != attachmentMime {
		return nil, models.NewValidationError("attachment", "The attachment must be a file of type: pdf.")
	}

	att := models.Attachment{
		Path: path.Join(attachmentDir, uuid.NewString()+".pdf"),
		Name: attachmentName(file.Filename),
		Size: int64(len(file.Data)),
	}
	if _, err := s.store.Put(ctx, att.Path, bytes.NewReader(file.Data), attachmentMime); err != nil {
		return nil, err
	}

	releases, err := s.articleRepo.ReplaceAttachment(ctx, article.ID, att)
	if err != nil {
		if derr := s.store.Delete(ctx, att.Path); derr != nil {
			slog.WarnContext(ctx, "discard unsaved attachment", "path", att.Path, "error", derr)
		}
		return nil, err
	}
	s.release(ctx, releases)

	publish(ctx, s.publisher, events.Event{
		Type:      events.ArticleAttached,
		ArticleID: article.ID,
		UserID:    uintPtr(principal.UserID),
		Payload:   map[string]interface{}{"name": att.Name, "size": att.Size},
	})
	return s.articleRepo.FindByID(ctx, article.ID)
}

func (s *attachmentService) Remove(ctx context.Context, articleID uint, principal *policy.Principal) (*models.Article, error) {
	article, err := s.manageable(ctx, articleID, principal)
	if err != nil {
		return nil, err
	}
	if article.Attachment().Empty() {
		return article, nil
	}
	releases, err := s.articleRepo.ReplaceAttachment(ctx, article.ID, models.Attachment{})
	if err != nil {
		return nil, err
	}
	s.release(ctx, releases)
	return s.articleRepo.FindByID(ctx, article.ID)
}

// Download opens the attachment of a readable article. Articles without
// one, and attachments whose file is gone, are not found.
func (s *attachmentService) Download(ctx context.Context, slug string, principal *policy.Principal) (*Download, error) {
	article, err := loadReadable(ctx, s.articleRepo, slug, principal, s.now())
	if err != nil {
		return nil, err
	}
	att := article.Attachment()
	if att.Empty() {
		return nil, models.ErrorNotFound{Resource: "attachment", Key: slug}
	}

	body, err := s.store.Open(ctx, att.Path)
	if err != nil {
		if err == storage.ErrNotFound {
			slog.WarnContext(ctx, "attachment file missing", "article_id", article.ID, "path", att.Path)
			return nil, models.ErrorNotFound{Resource: "attachment", Key: slug}
		}
		return nil, err
	}

	name := att.Name
	if name == "" {
		name = defaultDownloadName
	}
	return &Download{Name: name, Size: att.Size, ContentType: attachmentMime, Body: body}, nil
}

func (s *attachmentService) manageable(ctx context.Context, articleID uint, principal *policy.Principal) (*models.Article, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	article, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if !principal.CanManage(article) {
		return nil, forbidden("only the author or an admin may change this attachment")
	}
	return article, nil
}

func (s *attachmentService) release(ctx context.Context, releases []models.PendingBlobRelease) {
	if s.releaser != nil && len(releases) > 0 {
		s.releaser.Release(ctx, releases)
	}
}

// attachmentName keeps the client's base name, forcing a .pdf extension.
func attachmentName(filename string) string {
	name := strings.TrimSpace(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return defaultDownloadName
	}
	if !strings.EqualFold(path.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
