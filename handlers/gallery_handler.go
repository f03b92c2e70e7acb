package handlers

import (
	"io"
	"mime/multipart"

	"kb-portal/helper"
	"kb-portal/middleware"
	"kb-portal/models"
	"kb-portal/services"

	"github.com/gin-gonic/gin"
)

type GalleryHandler struct {
	galleryService services.GalleryService
	maxFileSize    int64
	Helper         *helper.HTTPHelper
}

func NewGalleryHandler(galleryService services.GalleryService, maxFileSize int64, h *helper.HTTPHelper) *GalleryHandler {
	return &GalleryHandler{galleryService: galleryService, maxFileSize: maxFileSize, Helper: h}
}

// UploadTemporary stores images under a session key until they are linked
// to an article.
func (h *GalleryHandler) UploadTemporary(c *gin.Context) {
	files, ok := h.readFiles(c)
	if !ok {
		return
	}
	target := services.UploadTarget{SessionKey: c.PostForm("session_key")}

	result, err := h.galleryService.Upload(c.Request.Context(), target, files, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Images uploaded", result)
}

func (h *GalleryHandler) UploadToArticle(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}
	files, ok := h.readFiles(c)
	if !ok {
		return
	}

	result, err := h.galleryService.Upload(c.Request.Context(), services.UploadTarget{ArticleID: &id}, files, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Images uploaded", result)
}

// readFiles accepts "images" (many) or "image" (one).
func (h *GalleryHandler) readFiles(c *gin.Context) ([]services.Upload, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		h.Helper.SendValidationError(c, map[string][]string{"images": {"The images field is required."}})
		return nil, false
	}
	var headers []*multipart.FileHeader
	headers = append(headers, form.File["images"]...)
	headers = append(headers, form.File["image"]...)
	if len(headers) == 0 {
		h.Helper.SendValidationError(c, map[string][]string{"images": {"The images field is required."}})
		return nil, false
	}

	files := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := h.readFile(fh)
		if err != nil {
			h.Helper.SendBadRequest(c, "could not read upload", h.Helper.EmptyJsonMap())
			return nil, false
		}
		files = append(files, services.Upload{Filename: fh.Filename, Data: data})
	}
	return files, true
}

// readFile reads at most one byte past the limit so the service can reject
// oversized files without buffering them whole.
func (h *GalleryHandler) readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxFileSize > 0 {
		r = io.LimitReader(f, h.maxFileSize+1)
	}
	return io.ReadAll(r)
}

func (h *GalleryHandler) GetArticleImages(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}

	images, err := h.galleryService.List(c.Request.Context(), id, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "", images)
}

func (h *GalleryHandler) GetTemporaryImages(c *gin.Context) {
	images, err := h.galleryService.ListTemporary(c.Request.Context(), c.Param("session"), middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "", images)
}

func (h *GalleryHandler) UpdateImage(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "imageId")
	if !ok {
		return
	}
	var req models.GalleryImageUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	image, err := h.galleryService.Update(c.Request.Context(), id, req, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Image updated", image)
}

func (h *GalleryHandler) SetPrimaryImage(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "imageId")
	if !ok {
		return
	}

	image, err := h.galleryService.SetPrimary(c.Request.Context(), id, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Primary image set", image)
}

func (h *GalleryHandler) ReorderImages(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}
	var req models.ReorderImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	images, err := h.galleryService.Reorder(c.Request.Context(), id, req.Images, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Images reordered", images)
}

func (h *GalleryHandler) DeleteImage(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "imageId")
	if !ok {
		return
	}

	if err := h.galleryService.Delete(c.Request.Context(), id, middleware.PrincipalFrom(c)); err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Image deleted", h.Helper.EmptyJsonMap())
}

func (h *GalleryHandler) LinkTemporary(c *gin.Context) {
	var req models.LinkTemporaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	result, err := h.galleryService.LinkTemporary(c.Request.Context(), req, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Images linked", result)
}

func (h *GalleryHandler) DiscardSession(c *gin.Context) {
	removed, err := h.galleryService.DiscardSession(c.Request.Context(), c.Param("session"), middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Uploads discarded", gin.H{"removed": removed})
}
