package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/dto"
	"github.com/openedu-labs/geoc-api/internal/models"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
)

type annotationRepo interface {
	Create(ctx context.Context, annotation *models.Annotation) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, annotation *models.Annotation) error
	FindByID(ctx context.Context, id string) (*models.Annotation, error)
	ListByCourse(ctx context.Context, courseID string, tag models.AnnotationTag) ([]models.AnnotationDetail, error)
	LatestByTag(ctx context.Context, courseID string, tag models.AnnotationTag) (*models.Annotation, error)
	LatestByTagTx(ctx context.Context, tx *sqlx.Tx, courseID string, tag models.AnnotationTag) (*models.Annotation, error)
	UpdateBodyTx(ctx context.Context, tx *sqlx.Tx, id, body, updatedBy string) error
	CopyLatestByTagTx(ctx context.Context, tx *sqlx.Tx, fromCourseID, toCourseID string, tag models.AnnotationTag) error
	Deactivate(ctx context.Context, id, updatedBy string) error
}

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListSiblingsTx(ctx context.Context, tx *sqlx.Tx, parentID string) ([]models.Course, error)
}

// AnnotationService manages the comment log and the adenda slot. Comments
// accumulate and are never edited; the adenda is one revision-feedback note
// per course, written in place by reviewers and mirrored onto crosslisted
// siblings.
type AnnotationService struct {
	db          *sqlx.DB
	annotations annotationRepo
	courses     courseFinder
	logger      *zap.Logger
}

// NewAnnotationService creates a new instance of AnnotationService.
func NewAnnotationService(db *sqlx.DB, annotations annotationRepo, courses courseFinder, logger *zap.Logger) *AnnotationService {
	return &AnnotationService{db: db, annotations: annotations, courses: courses, logger: logger}
}

// ListComments returns the comment log for a course, newest first.
func (s *AnnotationService) ListComments(ctx context.Context, actor *models.User, courseID string) ([]models.AnnotationDetail, error) {
	if _, err := s.visibleCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	comments, err := s.annotations.ListByCourse(ctx, courseID, models.AnnotationTagComments)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "comment list failed")
	}
	return comments, nil
}

// AddComment appends to the comment log.
func (s *AnnotationService) AddComment(ctx context.Context, actor *models.User, courseID string, req dto.CommentRequest) (*models.Annotation, error) {
	if _, err := s.visibleCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	annotation := &models.Annotation{
		CourseID:  courseID,
		CreatedBy: actor.ID,
		Body:      strings.TrimSpace(req.Body),
		Tag:       models.AnnotationTagComments,
		Active:    true,
	}
	if annotation.Body == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment body is required")
	}
	if err := s.annotations.Create(ctx, annotation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "comment create failed")
	}
	return annotation, nil
}

// GetAdenda returns the current revision-feedback note, or nil when none has
// been written yet.
func (s *AnnotationService) GetAdenda(ctx context.Context, actor *models.User, courseID string) (*models.Annotation, error) {
	if _, err := s.visibleCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	adenda, err := s.annotations.LatestByTag(ctx, courseID, models.AnnotationTagAdenda)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "adenda lookup failed")
	}
	return adenda, nil
}

// UpsertAdenda writes the revision-feedback slot and mirrors it onto every
// crosslisted sibling in the same transaction. The first call creates the
// note; later calls rewrite it in place, so repeated saves of the same text
// are idempotent and the course never grows a second slot.
func (s *AnnotationService) UpsertAdenda(ctx context.Context, actor *models.User, courseID string, req dto.AdendaRequest) (*models.Annotation, error) {
	course, err := s.visibleCourse(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsParent() {
		return nil, appErrors.ErrNotParent
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "adenda body is required")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "adenda save failed")
	}
	defer tx.Rollback()

	result, err := s.annotations.LatestByTagTx(ctx, tx, courseID, models.AnnotationTagAdenda)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "adenda lookup failed")
		}
		result = &models.Annotation{
			CourseID:  courseID,
			CreatedBy: actor.ID,
			Body:      body,
			Tag:       models.AnnotationTagAdenda,
			Active:    true,
		}
		if err := s.annotations.CreateTx(ctx, tx, result); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "adenda create failed")
		}
	} else if result.Body != body {
		if err := s.annotations.UpdateBodyTx(ctx, tx, result.ID, body, actor.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "adenda update failed")
		}
		result.Body = body
		result.UpdatedBy = &actor.ID
	}

	siblings, err := s.courses.ListSiblingsTx(ctx, tx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "adenda save failed")
	}
	for _, sibling := range siblings {
		if err := s.annotations.CopyLatestByTagTx(ctx, tx, courseID, sibling.ID, models.AnnotationTagAdenda); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "adenda propagation failed")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "adenda save failed")
	}
	return result, nil
}

// RemoveComment soft-deletes one comment. Authors remove their own; admins
// remove any.
func (s *AnnotationService) RemoveComment(ctx context.Context, actor *models.User, id string) error {
	annotation, err := s.annotations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "comment lookup failed")
	}
	if annotation.CreatedBy != actor.ID && actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	if err := s.annotations.Deactivate(ctx, id, actor.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "comment remove failed")
	}
	return nil
}

func (s *AnnotationService) visibleCourse(ctx context.Context, actor *models.User, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course lookup failed")
	}
	if !actor.IsManager() && course.OwnerID != actor.ID {
		return nil, appErrors.ErrForbidden
	}
	return course, nil
}
