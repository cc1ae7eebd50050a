package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/models"
	"github.com/openedu-labs/geoc-api/internal/repository"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
)

type auditLister interface {
	List(ctx context.Context, filter repository.AuditFilter) ([]models.AuditLog, int, error)
}

// AuditService exposes the audit trail to administrators.
type AuditService struct {
	audits auditLister
	logger *zap.Logger
}

// NewAuditService creates a new instance of AuditService.
func NewAuditService(audits auditLister, logger *zap.Logger) *AuditService {
	return &AuditService{audits: audits, logger: logger}
}

// List returns audit records matching the filter.
func (s *AuditService) List(ctx context.Context, filter repository.AuditFilter) ([]models.AuditLog, *models.Pagination, error) {
	entries, total, err := s.audits.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "audit list failed")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	return entries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
