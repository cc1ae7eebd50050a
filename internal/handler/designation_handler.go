package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openedu-labs/geoc-api/internal/service"
	"github.com/openedu-labs/geoc-api/pkg/response"
)

type designationService interface {
	Overview(ctx context.Context) (*service.DesignationOverview, error)
}

// DesignationHandler exposes the committee dashboard aggregate.
type DesignationHandler struct {
	service designationService
}

// NewDesignationHandler creates a new instance of DesignationHandler.
func NewDesignationHandler(service designationService) *DesignationHandler {
	return &DesignationHandler{service: service}
}

// Overview returns designation counts per workflow status.
func (h *DesignationHandler) Overview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
