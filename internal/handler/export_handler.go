package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openedu-labs/geoc-api/internal/service"
	"github.com/openedu-labs/geoc-api/pkg/response"
)

type exportService interface {
	CourseReport(ctx context.Context, format service.ExportFormat) (*service.ExportResult, error)
	DesignationReport(ctx context.Context, format service.ExportFormat) (*service.ExportResult, error)
}

// ExportHandler streams committee reports as downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler creates a new instance of ExportHandler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Courses renders the course roster report.
func (h *ExportHandler) Courses(c *gin.Context) {
	result, err := h.service.CourseReport(c.Request.Context(), exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	stream(c, result)
}

// Designations renders the designation summary report.
func (h *ExportHandler) Designations(c *gin.Context) {
	result, err := h.service.DesignationReport(c.Request.Context(), exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	stream(c, result)
}

func exportFormat(c *gin.Context) service.ExportFormat {
	if c.DefaultQuery("format", "csv") == "pdf" {
		return service.ExportFormatPDF
	}
	return service.ExportFormatCSV
}

func stream(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
