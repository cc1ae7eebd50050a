package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/openedu-labs/geoc-api/internal/dto"
	"github.com/openedu-labs/geoc-api/internal/models"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
	"github.com/openedu-labs/geoc-api/pkg/response"
)

type outcomeService interface {
	List(ctx context.Context, filter models.OutcomeFilter) ([]models.Outcome, error)
	Get(ctx context.Context, id string) (*models.OutcomeDetail, error)
	Create(ctx context.Context, req dto.OutcomeRequest) (*models.Outcome, error)
	Update(ctx context.Context, id string, req dto.OutcomeRequest) (*models.Outcome, error)
	AddElement(ctx context.Context, outcomeID string, req dto.OutcomeElementRequest) (*models.OutcomeElement, error)
	UpdateElement(ctx context.Context, outcomeID, elementID string, req dto.OutcomeElementRequest) (*models.OutcomeElement, error)
}

// OutcomeHandler exposes the outcome catalog endpoints.
type OutcomeHandler struct {
	service  outcomeService
	validate *validator.Validate
}

// NewOutcomeHandler creates a new instance of OutcomeHandler.
func NewOutcomeHandler(service outcomeService, validate *validator.Validate) *OutcomeHandler {
	return &OutcomeHandler{service: service, validate: validate}
}

// List returns catalog entries.
func (h *OutcomeHandler) List(c *gin.Context) {
	filter := models.OutcomeFilter{
		GroupName: c.Query("group"),
		Search:    c.Query("search"),
	}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	outcomes, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcomes, nil)
}

// Get returns one outcome with its elements.
func (h *OutcomeHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create adds a catalog entry.
func (h *OutcomeHandler) Create(c *gin.Context) {
	var req dto.OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	outcome, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, outcome)
}

// Update rewrites a catalog entry.
func (h *OutcomeHandler) Update(c *gin.Context) {
	var req dto.OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	outcome, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// AddElement attaches a sub-criterion.
func (h *OutcomeHandler) AddElement(c *gin.Context) {
	var req dto.OutcomeElementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	element, err := h.service.AddElement(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, element)
}

// UpdateElement rewrites a sub-criterion.
func (h *OutcomeHandler) UpdateElement(c *gin.Context) {
	var req dto.OutcomeElementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	element, err := h.service.UpdateElement(c.Request.Context(), c.Param("id"), c.Param("elementId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, element, nil)
}
