package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/dto"
	"github.com/openedu-labs/geoc-api/internal/models"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
)

type outcomeRepo interface {
	Create(ctx context.Context, outcome *models.Outcome) error
	FindByID(ctx context.Context, id string) (*models.Outcome, error)
	List(ctx context.Context, filter models.OutcomeFilter) ([]models.Outcome, error)
	Update(ctx context.Context, outcome *models.Outcome) error
	ListElements(ctx context.Context, outcomeID string) ([]models.OutcomeElement, error)
	CreateElement(ctx context.Context, element *models.OutcomeElement) error
	UpdateElement(ctx context.Context, element *models.OutcomeElement) error
}

// OutcomeService manages the shared outcome catalog. Outcomes deactivate
// rather than delete so existing course links keep their history.
type OutcomeService struct {
	outcomes outcomeRepo
	logger   *zap.Logger
}

// NewOutcomeService creates a new instance of OutcomeService.
func NewOutcomeService(outcomes outcomeRepo, logger *zap.Logger) *OutcomeService {
	return &OutcomeService{outcomes: outcomes, logger: logger}
}

// List returns catalog entries matching the filter.
func (s *OutcomeService) List(ctx context.Context, filter models.OutcomeFilter) ([]models.Outcome, error) {
	outcomes, err := s.outcomes.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "outcome list failed")
	}
	return outcomes, nil
}

// Get returns one outcome with its elements.
func (s *OutcomeService) Get(ctx context.Context, id string) (*models.OutcomeDetail, error) {
	outcome, err := s.outcomes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "outcome lookup failed")
	}
	elements, err := s.outcomes.ListElements(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "outcome lookup failed")
	}
	return &models.OutcomeDetail{Outcome: *outcome, Elements: elements}, nil
}

// Create adds a catalog entry.
func (s *OutcomeService) Create(ctx context.Context, req dto.OutcomeRequest) (*models.Outcome, error) {
	outcome := &models.Outcome{
		Name:        req.Name,
		Description: req.Description,
		Rationale:   req.Rationale,
		GroupName:   req.GroupName,
		Active:      true,
	}
	if req.Active != nil {
		outcome.Active = *req.Active
	}
	if err := s.outcomes.Create(ctx, outcome); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "outcome create failed")
	}
	return outcome, nil
}

// Update rewrites a catalog entry.
func (s *OutcomeService) Update(ctx context.Context, id string, req dto.OutcomeRequest) (*models.Outcome, error) {
	outcome, err := s.outcomes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "outcome lookup failed")
	}
	outcome.Name = req.Name
	outcome.Description = req.Description
	outcome.Rationale = req.Rationale
	outcome.GroupName = req.GroupName
	if req.Active != nil {
		outcome.Active = *req.Active
	}
	if err := s.outcomes.Update(ctx, outcome); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "outcome update failed")
	}
	return outcome, nil
}

// AddElement attaches a gradable sub-criterion to an outcome. New elements do
// not retrofit narrative rows onto already linked courses; those appear the
// next time a course's membership is reconciled.
func (s *OutcomeService) AddElement(ctx context.Context, outcomeID string, req dto.OutcomeElementRequest) (*models.OutcomeElement, error) {
	if _, err := s.outcomes.FindByID(ctx, outcomeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "outcome lookup failed")
	}
	element := &models.OutcomeElement{
		OutcomeID:   outcomeID,
		Description: req.Description,
		Active:      true,
	}
	if req.Active != nil {
		element.Active = *req.Active
	}
	if err := s.outcomes.CreateElement(ctx, element); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "element create failed")
	}
	return element, nil
}

// UpdateElement rewrites a sub-criterion.
func (s *OutcomeService) UpdateElement(ctx context.Context, outcomeID, elementID string, req dto.OutcomeElementRequest) (*models.OutcomeElement, error) {
	elements, err := s.outcomes.ListElements(ctx, outcomeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "element lookup failed")
	}
	var element *models.OutcomeElement
	for i := range elements {
		if elements[i].ID == elementID {
			element = &elements[i]
			break
		}
	}
	if element == nil {
		return nil, appErrors.ErrNotFound
	}
	element.Description = req.Description
	if req.Active != nil {
		element.Active = *req.Active
	}
	if err := s.outcomes.UpdateElement(ctx, element); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "element update failed")
	}
	return element, nil
}
