package handlers

import (
	"io"
	"mime"
	"net/http"

	"kb-portal/helper"
	"kb-portal/middleware"
	"kb-portal/services"

	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	attachmentService services.AttachmentService
	Helper            *helper.HTTPHelper
}

func NewAttachmentHandler(attachmentService services.AttachmentService, h *helper.HTTPHelper) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService, Helper: h}
}

// UploadAttachment takes the PDF from the multipart field "attachment".
func (h *AttachmentHandler) UploadAttachment(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("attachment")
	if err != nil {
		h.Helper.SendValidationError(c, map[string][]string{"attachment": {"The attachment field is required."}})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.Helper.SendBadRequest(c, "could not read upload", h.Helper.EmptyJsonMap())
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, services.MaxAttachmentSize+1))
	if err != nil {
		h.Helper.SendBadRequest(c, "could not read upload", h.Helper.EmptyJsonMap())
		return
	}

	upload := services.Upload{Filename: fh.Filename, Data: data}
	article, err := h.attachmentService.Attach(c.Request.Context(), id, upload, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Attachment uploaded", article)
}

func (h *AttachmentHandler) RemoveAttachment(c *gin.Context) {
	id, ok := paramID(c, h.Helper, "id")
	if !ok {
		return
	}

	article, err := h.attachmentService.Remove(c.Request.Context(), id, middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Attachment removed", article)
}

// DownloadAttachment streams the file with its original name.
func (h *AttachmentHandler) DownloadAttachment(c *gin.Context) {
	dl, err := h.attachmentService.Download(c.Request.Context(), c.Param("slug"), middleware.PrincipalFrom(c))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}
	defer dl.Body.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": dl.Name})
	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}
