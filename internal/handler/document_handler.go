package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openedu-labs/geoc-api/internal/models"
	"github.com/openedu-labs/geoc-api/internal/service"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
	"github.com/openedu-labs/geoc-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, actor *models.User, courseID string, header *multipart.FileHeader, tag models.DocumentTag) (*models.Document, error)
	List(ctx context.Context, actor *models.User, courseID string) ([]models.Document, error)
	Link(ctx context.Context, actor *models.User, docID string) (*service.SignedDownload, error)
	Open(ctx context.Context, token string) (*models.Document, *os.File, error)
	Delete(ctx context.Context, actor *models.User, docID string) error
}

// DocumentHandler exposes syllabus upload and signed download endpoints.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler creates a new instance of DocumentHandler.
func NewDocumentHandler(service documentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Upload accepts one multipart file for a course.
func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "multipart field 'file' is required"))
		return
	}
	tag := models.DocumentTag(strings.ToUpper(c.PostForm("tag")))
	if tag == "" {
		tag = models.DocumentTagSupporting
	}
	doc, err := h.service.Upload(c.Request.Context(), actor, c.Param("id"), header, tag)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List returns the documents attached to a course.
func (h *DocumentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	docs, err := h.service.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Link issues a signed download link for one document.
func (h *DocumentHandler) Link(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	link, err := h.service.Link(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download streams a file for a valid signed token. Unauthenticated: the
// token itself is the grant.
func (h *DocumentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter is required"))
		return
	}
	doc, file, err := h.service.Open(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "document stat failed"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}

// Delete removes a document.
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
