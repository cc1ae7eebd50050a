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

type courseService interface {
	Create(ctx context.Context, actor *models.User, req dto.CreateCourseRequest) (*models.CourseDetail, error)
	Update(ctx context.Context, actor *models.User, id string, req dto.UpdateCourseRequest) (*models.CourseDetail, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.CourseDetail, error)
	List(ctx context.Context, actor *models.User, query dto.CourseQuery) ([]models.CourseDetail, *models.Pagination, error)
	Worksheet(ctx context.Context, actor *models.User, id string) ([]models.OutcomeContentDetail, error)
	SaveWorksheet(ctx context.Context, actor *models.User, id string, req dto.WorksheetRequest) (*dto.TransitionResponse, error)
	Delete(ctx context.Context, actor *models.User, id string) error
}

// CourseHandler exposes the faculty workflow endpoints.
type CourseHandler struct {
	service  courseService
	validate *validator.Validate
}

// NewCourseHandler creates a new instance of CourseHandler.
func NewCourseHandler(service courseService, validate *validator.Validate) *CourseHandler {
	return &CourseHandler{service: service, validate: validate}
}

// Create starts a new submission.
func (h *CourseHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update rewrites the step-one fields.
func (h *CourseHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	detail, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Get returns one course with links and siblings.
func (h *CourseHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// List returns courses visible to the caller.
func (h *CourseHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.CourseQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	courses, pagination, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Worksheet returns the step-two narratives.
func (h *CourseHandler) Worksheet(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	contents, err := h.service.Worksheet(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contents, nil)
}

// SaveWorksheet applies narrative edits and optionally submits.
func (h *CourseHandler) SaveWorksheet(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.WorksheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	result, err := h.service.SaveWorksheet(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, result, result.Message)
}

// Delete removes a draft.
func (h *CourseHandler) Delete(c *gin.Context) {
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
