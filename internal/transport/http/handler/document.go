package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docqa/internal/app"
	"docqa/internal/transport/http/response"
)

// multipart headers and boundaries on top of the file itself
const multipartOverhead = 1 << 20

type DocumentService interface {
	Upload(ctx context.Context, filename string, content []byte) (*app.DocumentSummary, error)
	List(ctx context.Context) ([]app.DocumentSummary, error)
	Delete(ctx context.Context, id uint) error
}

type DocumentHandler struct {
	docs     DocumentService
	maxBytes int64
}

func NewDocumentHandler(docs DocumentService, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{docs: docs, maxBytes: maxBytes}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusBadRequest, "File too large")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusBadRequest, "A PDF file is required in the 'file' field")
		return
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		response.Error(c, http.StatusBadRequest, "File too large")
		return
	}

	f, err := file.Open()
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		return
	}

	doc, err := h.docs.Upload(c.Request.Context(), file.Filename, content)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "Invalid filename")
		case errors.Is(err, app.ErrDocumentExists):
			response.Error(c, http.StatusBadRequest, "Document already exists")
		case errors.Is(err, app.ErrEmptyUpload):
			response.Error(c, http.StatusBadRequest, "Uploaded file is empty")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		}
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, "Invalid document id")
		return
	}

	if err := h.docs.Delete(c.Request.Context(), uint(id)); err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, "Document not found")
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "Invalid document id")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		}
		return
	}
	response.Detail(c, "Document deleted")
}
