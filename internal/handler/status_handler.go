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

type statusService interface {
	SetLinkState(ctx context.Context, actor *models.User, linkID string, req dto.OutcomeStateRequest) (*dto.TransitionResponse, error)
	Transition(ctx context.Context, actor *models.User, courseID string, req dto.TransitionRequest) (*dto.TransitionResponse, error)
	SetDesignation(ctx context.Context, actor *models.User, courseID string, req dto.DesignationRequest) (*models.Course, error)
}

// StatusHandler exposes the committee review endpoints.
type StatusHandler struct {
	service  statusService
	validate *validator.Validate
}

// NewStatusHandler creates a new instance of StatusHandler.
func NewStatusHandler(service statusService, validate *validator.Validate) *StatusHandler {
	return &StatusHandler{service: service, validate: validate}
}

// SetLinkState flips one per-outcome review flag.
func (h *StatusHandler) SetLinkState(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.OutcomeStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	result, err := h.service.SetLinkState(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, result, result.Message)
}

// Transition applies a course-level workflow action.
func (h *StatusHandler) Transition(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	result, err := h.service.Transition(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, result, result.Message)
}

// SetDesignation writes the committee label.
func (h *StatusHandler) SetDesignation(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.DesignationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	course, err := h.service.SetDesignation(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}
