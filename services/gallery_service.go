package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"kb-portal/config"
	"kb-portal/events"
	"kb-portal/models"
	"kb-portal/policy"
	"kb-portal/repositories"
	"kb-portal/storage"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const maxFilesPerUpload = 10

var sessionKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Upload is one file as received from the client.
type Upload struct {
	Filename string
	Data     []byte
}

// UploadTarget attaches uploads to an article, or keeps them temporary
// under SessionKey. An empty SessionKey for a temporary upload starts a new
// session.
type UploadTarget struct {
	ArticleID  *uint
	SessionKey string
}

type UploadResult struct {
	SessionKey string                `json:"session_key,omitempty"`
	Images     []models.GalleryImage `json:"images"`
}

type GalleryService interface {
	Upload(ctx context.Context, target UploadTarget, files []Upload, principal *policy.Principal) (*UploadResult, error)
	List(ctx context.Context, articleID uint, principal *policy.Principal) ([]models.GalleryImage, error)
	ListTemporary(ctx context.Context, sessionKey string, principal *policy.Principal) ([]models.GalleryImage, error)
	Update(ctx context.Context, id uint, req models.GalleryImageUpdate, principal *policy.Principal) (*models.GalleryImage, error)
	SetPrimary(ctx context.Context, id uint, principal *policy.Principal) (*models.GalleryImage, error)
	Reorder(ctx context.Context, articleID uint, orders []models.ImageOrder, principal *policy.Principal) ([]models.GalleryImage, error)
	Delete(ctx context.Context, id uint, principal *policy.Principal) error
	LinkTemporary(ctx context.Context, req models.LinkTemporaryRequest, principal *policy.Principal) (*models.LinkResult, error)
	DiscardSession(ctx context.Context, sessionKey string, principal *policy.Principal) (int, error)
	Sweep(ctx context.Context) (int, error)
}

type galleryService struct {
	galleryRepo repositories.GalleryRepository
	articleRepo repositories.ArticleRepository
	store       storage.BlobStore
	releaser    *BlobReleaser
	publisher   events.Publisher
	cfg         config.GalleryConfig
	now         Clock
}

func NewGalleryService(
	galleryRepo repositories.GalleryRepository,
	articleRepo repositories.ArticleRepository,
	store storage.BlobStore,
	releaser *BlobReleaser,
	publisher events.Publisher,
	cfg config.GalleryConfig,
	now Clock,
) GalleryService {
	return &galleryService{
		galleryRepo: galleryRepo,
		articleRepo: articleRepo,
		store:       store,
		releaser:    releaser,
		publisher:   publisher,
		cfg:         cfg,
		now:         orSystem(now),
	}
}

// Upload validates every file before storing any of them.
func (s *galleryService) Upload(ctx context.Context, target UploadTarget, files []Upload, principal *policy.Principal) (*UploadResult, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	if target.ArticleID != nil {
		if _, err := s.manageableArticle(ctx, *target.ArticleID, principal); err != nil {
			return nil, err
		}
	} else {
		if !principal.CanAuthor() {
			return nil, forbidden("only editors and admins may upload images")
		}
		if target.SessionKey == "" {
			target.SessionKey = uuid.NewString()
		}
		if !sessionKeyPattern.MatchString(target.SessionKey) {
			return nil, models.NewValidationError("session_key", "The session key format is invalid.")
		}
	}

	if len(files) == 0 {
		return nil, models.NewValidationError("images", "The images field is required.")
	}
	if len(files) > maxFilesPerUpload {
		return nil, models.NewValidationError("images", fmt.Sprintf("No more than %d images may be uploaded at once.", maxFilesPerUpload))
	}

	processed := make([]processedImage, 0, len(files))
	verr := models.ErrorValidation{}
	for i, f := range files {
		img, err := s.process(f)
		if err != nil {
			verr = verr.Add(fmt.Sprintf("images.%d", i), err.Error())
			continue
		}
		processed = append(processed, img)
	}
	if !verr.Empty() {
		return nil, verr
	}

	result := &UploadResult{Images: make([]models.GalleryImage, 0, len(processed))}
	if target.ArticleID == nil {
		result.SessionKey = target.SessionKey
	}
	for _, p := range processed {
		image, err := s.save(ctx, target, p, principal)
		if err != nil {
			return nil, err
		}
		result.Images = append(result.Images, *image)
	}
	return result, nil
}

type processedImage struct {
	original string
	ext      string
	mime     string
	data     []byte
	width    int
	height   int
}

var encodings = map[string]struct {
	ext    string
	format imaging.Format
}{
	"image/jpeg": {".jpg", imaging.JPEG},
	"image/png":  {".png", imaging.PNG},
	"image/gif":  {".gif", imaging.GIF},
}

// process checks size and type, applies EXIF orientation and scales the
// image down to fit the configured edge.
func (s *galleryService) process(f Upload) (processedImage, error) {
	if limit := s.cfg.MaxUploadSize; limit > 0 && int64(len(f.Data)) > limit {
		return processedImage{}, fmt.Errorf("The image may not be greater than %d kilobytes.", limit>>10)
	}
	mime := http.DetectContentType(f.Data)
	enc, ok := encodings[mime]
	if !ok {
		return processedImage{}, errors.New("The image must be a file of type: jpeg, png, jpg, gif.")
	}
	src, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return processedImage{}, errors.New("The image could not be decoded.")
	}

	out := f.Data
	bounds := src.Bounds()
	edge := s.cfg.MaxEdge
	if edge > 0 && (bounds.Dx() > edge || bounds.Dy() > edge) {
		resized := imaging.Fit(src, edge, edge, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, enc.format, imaging.JPEGQuality(85)); err != nil {
			return processedImage{}, errors.New("The image could not be resized.")
		}
		out = buf.Bytes()
		bounds = resized.Bounds()
	}

	return processedImage{
		original: path.Base(strings.ReplaceAll(f.Filename, "\\", "/")),
		ext:      enc.ext,
		mime:     mime,
		data:     out,
		width:    bounds.Dx(),
		height:   bounds.Dy(),
	}, nil
}

// save writes one blob and its row. The blob is removed again when the
// row cannot be saved.
func (s *galleryService) save(ctx context.Context, target UploadTarget, p processedImage, principal *policy.Principal) (*models.GalleryImage, error) {
	filename := uuid.NewString() + p.ext
	var key string
	if target.ArticleID != nil {
		key = fmt.Sprintf("gallery/articles/%d/%s", *target.ArticleID, filename)
	} else {
		key = fmt.Sprintf("gallery/temp/%s/%s", target.SessionKey, filename)
	}

	url, err := s.store.Put(ctx, key, bytes.NewReader(p.data), p.mime)
	if err != nil {
		return nil, err
	}

	image := &models.GalleryImage{
		ArticleID:    target.ArticleID,
		Filename:     filename,
		OriginalName: p.original,
		Path:         key,
		URL:          url,
		MimeType:     p.mime,
		Size:         int64(len(p.data)),
		Width:        p.width,
		Height:       p.height,
		UploadedBy:   uintPtr(principal.UserID),
		IsTemporary:  target.ArticleID == nil,
	}
	if target.ArticleID == nil {
		session := target.SessionKey
		image.SessionKey = &session
	}
	if err := s.galleryRepo.Create(ctx, image); err != nil {
		if derr := s.store.Delete(ctx, key); derr != nil {
			slog.WarnContext(ctx, "remove orphaned upload", "path", key, "error", derr)
		}
		return nil, err
	}
	return image, nil
}

func (s *galleryService) List(ctx context.Context, articleID uint, principal *policy.Principal) ([]models.GalleryImage, error) {
	if _, err := s.manageableArticle(ctx, articleID, principal); err != nil {
		return nil, err
	}
	return s.galleryRepo.ListByArticle(ctx, articleID)
}

func (s *galleryService) ListTemporary(ctx context.Context, sessionKey string, principal *policy.Principal) ([]models.GalleryImage, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	if !principal.CanAuthor() {
		return nil, forbidden("only editors and admins may manage uploads")
	}
	return s.galleryRepo.ListTemporary(ctx, sessionKey)
}

func (s *galleryService) Update(ctx context.Context, id uint, req models.GalleryImageUpdate, principal *policy.Principal) (*models.GalleryImage, error) {
	image, err := s.manageableImage(ctx, id, principal)
	if err != nil {
		return nil, err
	}
	if req.AltText != nil {
		image.AltText = *req.AltText
	}
	if req.Caption != nil {
		image.Caption = *req.Caption
	}
	if req.SortOrder != nil {
		image.SortOrder = *req.SortOrder
	}
	if req.IsPrimary != nil && image.ArticleID != nil {
		// Unsetting the only primary is ignored; another image must be
		// promoted instead.
		if *req.IsPrimary {
			image.IsPrimary = true
		}
	}
	if err := s.galleryRepo.Update(ctx, image); err != nil {
		return nil, err
	}
	return s.galleryRepo.FindByID(ctx, id)
}

func (s *galleryService) SetPrimary(ctx context.Context, id uint, principal *policy.Principal) (*models.GalleryImage, error) {
	image, err := s.manageableImage(ctx, id, principal)
	if err != nil {
		return nil, err
	}
	if image.ArticleID == nil {
		return nil, models.NewValidationError("image", "Temporary images cannot be primary.")
	}
	if err := s.galleryRepo.SetPrimary(ctx, *image.ArticleID, id); err != nil {
		return nil, err
	}
	return s.galleryRepo.FindByID(ctx, id)
}

func (s *galleryService) Reorder(ctx context.Context, articleID uint, orders []models.ImageOrder, principal *policy.Principal) ([]models.GalleryImage, error) {
	if _, err := s.manageableArticle(ctx, articleID, principal); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, models.NewValidationError("images", "The images field is required.")
	}
	if err := s.galleryRepo.Reorder(ctx, articleID, orders); err != nil {
		return nil, err
	}
	return s.galleryRepo.ListByArticle(ctx, articleID)
}

func (s *galleryService) Delete(ctx context.Context, id uint, principal *policy.Principal) error {
	if _, err := s.manageableImage(ctx, id, principal); err != nil {
		return err
	}
	release, err := s.galleryRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if release != nil && s.releaser != nil {
		s.releaser.Release(ctx, []models.PendingBlobRelease{*release})
	}
	return nil
}

func (s *galleryService) LinkTemporary(ctx context.Context, req models.LinkTemporaryRequest, principal *policy.Principal) (*models.LinkResult, error) {
	if _, err := s.manageableArticle(ctx, req.ArticleID, principal); err != nil {
		return nil, err
	}
	linked, total, err := s.galleryRepo.LinkTemporary(ctx, req.ArticleID, req.SessionKey)
	if err != nil {
		return nil, err
	}
	return &models.LinkResult{LinkedCount: linked, TotalGalleryCount: total}, nil
}

func (s *galleryService) DiscardSession(ctx context.Context, sessionKey string, principal *policy.Principal) (int, error) {
	if err := requireUser(principal); err != nil {
		return 0, err
	}
	if !principal.CanAuthor() {
		return 0, forbidden("only editors and admins may manage uploads")
	}
	releases, err := s.galleryRepo.DiscardSession(ctx, sessionKey)
	if err != nil {
		return 0, err
	}
	if s.releaser != nil {
		s.releaser.Release(ctx, releases)
	}
	return len(releases), nil
}

// Sweep removes temporary uploads older than the configured TTL.
func (s *galleryService) Sweep(ctx context.Context) (int, error) {
	ttl := s.cfg.TempTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	releases, err := s.galleryRepo.SweepTemporary(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if len(releases) == 0 {
		return 0, nil
	}
	released := 0
	if s.releaser != nil {
		released = s.releaser.Release(ctx, releases)
	}
	publish(ctx, s.publisher, events.Event{
		Type:    events.GallerySwept,
		Payload: map[string]interface{}{"removed": len(releases), "released_files": released},
	})
	return len(releases), nil
}

func (s *galleryService) manageableArticle(ctx context.Context, articleID uint, principal *policy.Principal) (*models.Article, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	article, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if !principal.CanManage(article) {
		return nil, forbidden("only the author or an admin may change this gallery")
	}
	return article, nil
}

// manageableImage allows attached images to whoever manages the article and
// temporary ones to their uploader or an admin.
func (s *galleryService) manageableImage(ctx context.Context, id uint, principal *policy.Principal) (*models.GalleryImage, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	image, err := s.galleryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if image.ArticleID != nil {
		if _, err := s.manageableArticle(ctx, *image.ArticleID, principal); err != nil {
			return nil, err
		}
		return image, nil
	}
	if principal.IsAdmin() || (image.UploadedBy != nil && *image.UploadedBy == principal.UserID) {
		return image, nil
	}
	return nil, forbidden("only the uploader or an admin may change this image")
}
