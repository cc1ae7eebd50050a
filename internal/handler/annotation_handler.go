package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/openedu-labs/geoc-api/internal/dto"
	"github.com/openedu-labs/geoc-api/internal/models"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
	"github.com/openedu-labs/geoc-api/pkg/response"
)

type annotationService interface {
	ListComments(ctx context.Context, actor *models.User, courseID string) ([]models.AnnotationDetail, error)
	AddComment(ctx context.Context, actor *models.User, courseID string, req dto.CommentRequest) (*models.Annotation, error)
	GetAdenda(ctx context.Context, actor *models.User, courseID string) (*models.Annotation, error)
	UpsertAdenda(ctx context.Context, actor *models.User, courseID string, req dto.AdendaRequest) (*models.Annotation, error)
	RemoveComment(ctx context.Context, actor *models.User, id string) error
}

// AnnotationHandler exposes comment and adenda endpoints.
type AnnotationHandler struct {
	service  annotationService
	validate *validator.Validate
}

// NewAnnotationHandler creates a new instance of AnnotationHandler.
func NewAnnotationHandler(service annotationService, validate *validator.Validate) *AnnotationHandler {
	return &AnnotationHandler{service: service, validate: validate}
}

// ListComments returns the course comment log.
func (h *AnnotationHandler) ListComments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	comments, err := h.service.ListComments(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// AddComment appends to the comment log.
func (h *AnnotationHandler) AddComment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	comment, err := h.service.AddComment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// GetAdenda returns the revision-feedback note, or an empty body.
func (h *AnnotationHandler) GetAdenda(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	adenda, err := h.service.GetAdenda(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, adenda, nil)
}

// UpsertAdenda writes the revision-feedback slot.
func (h *AnnotationHandler) UpsertAdenda(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AdendaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	adenda, err := h.service.UpsertAdenda(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, adenda, nil)
}

// RemoveComment soft-deletes one comment.
func (h *AnnotationHandler) RemoveComment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.RemoveComment(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
