package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/dto"
	"github.com/openedu-labs/geoc-api/internal/models"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
)

type statusCourseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	TransitionUpdateTx(ctx context.Context, tx *sqlx.Tx, course *models.Course) error
	MirrorFlagsTx(ctx context.Context, tx *sqlx.Tx, parentID string) error
	ListSiblingsTx(ctx context.Context, tx *sqlx.Tx, parentID string) ([]models.Course, error)
}

type linkStateRepo interface {
	FindByID(ctx context.Context, id string) (*models.OutcomeLink, error)
	SetStateTx(ctx context.Context, tx *sqlx.Tx, id string, field models.StateField, value bool) error
	SetAllStateTx(ctx context.Context, tx *sqlx.Tx, courseID string, field models.StateField, value bool) error
	ResetAllTx(ctx context.Context, tx *sqlx.Tx, courseID string) error
	CopyStateTx(ctx context.Context, tx *sqlx.Tx, fromCourseID, toCourseID string) error
	AllSatisfy(ctx context.Context, courseID string, field models.StateField) (bool, int, error)
}

type adendaReader interface {
	LatestByTag(ctx context.Context, courseID string, tag models.AnnotationTag) (*models.Annotation, error)
}

// StatusService owns the committee side of the workflow: per-outcome review
// flags, the course-level state machine, and designation labels. Course-level
// approval is derived: a course satisfies only when every linked outcome is
// approved with no revision flag, and a course with no outcomes never
// satisfies.
type StatusService struct {
	db       *sqlx.DB
	courses  statusCourseRepo
	links    linkStateRepo
	adenda   adendaReader
	notifier *Notifier
	audits   auditRecorder
	cache    cacheInvalidator
	metrics  *Metrics
	logger   *zap.Logger
}

// NewStatusService creates a new instance of StatusService.
func NewStatusService(
	db *sqlx.DB,
	courses statusCourseRepo,
	links linkStateRepo,
	adenda adendaReader,
	notifier *Notifier,
	audits auditRecorder,
	cache cacheInvalidator,
	metrics *Metrics,
	logger *zap.Logger,
) *StatusService {
	return &StatusService{
		db:       db,
		courses:  courses,
		links:    links,
		adenda:   adenda,
		notifier: notifier,
		audits:   audits,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// SetLinkState flips one per-outcome flag and, when the change completes the
// set, promotes the course to approved. Flag changes mirror onto siblings.
// Setting a flag to its current value is a benign no-op.
func (s *StatusService) SetLinkState(ctx context.Context, actor *models.User, linkID string, req dto.OutcomeStateRequest) (*dto.TransitionResponse, error) {
	field, ok := models.ParseStateField(req.Field)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown state field %q", req.Field))
	}

	link, err := s.links.FindByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "link lookup failed")
	}
	course, err := s.loadReviewable(ctx, link.CourseID)
	if err != nil {
		return nil, err
	}

	current := link.Approved
	if field == models.StateFieldFurbish {
		current = link.Furbish
	}
	if current == req.Value {
		return &dto.TransitionResponse{
			Changed: false,
			Message: fmt.Sprintf("outcome %s flag already %t", field, req.Value),
			Status:  string(course.Status()),
		}, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "review update failed")
	}
	defer tx.Rollback()

	if err := s.links.SetStateTx(ctx, tx, linkID, field, req.Value); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "review update failed")
	}
	siblings, err := s.courses.ListSiblingsTx(ctx, tx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "review update failed")
	}
	for _, sibling := range siblings {
		if err := s.links.CopyStateTx(ctx, tx, course.ID, sibling.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "review update failed")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "review update failed")
	}

	if s.metrics != nil {
		s.metrics.Reviews.WithLabelValues(string(field)).Inc()
	}
	s.emitAudit(ctx, actor.ID, models.AuditActionOutcomeReview, course.ID,
		map[string]interface{}{"link_id": linkID, "field": field, "value": req.Value})

	promoted := false
	status := course.Status()
	var target models.TransitionAction
	switch {
	case field == models.StateFieldApprove && req.Value && !course.Approved:
		target = models.ActionApprove
	case field == models.StateFieldFurbish && req.Value && !course.Furbish:
		target = models.ActionFurbish
	}
	if target != "" {
		satisfied, total, err := s.links.AllSatisfy(ctx, course.ID, field)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "promotion check failed")
		}
		if satisfied && total > 0 {
			result, err := s.Transition(ctx, actor, course.ID, dto.TransitionRequest{Action: string(target)})
			if err != nil {
				return nil, err
			}
			promoted = true
			status = models.CourseStatus(result.Status)
		}
	}
	return &dto.TransitionResponse{
		Changed:  true,
		Message:  fmt.Sprintf("outcome %s flag set to %t", field, req.Value),
		Status:   string(status),
		Promoted: promoted,
	}, nil
}

// Transition applies a course-level state machine action with an optimistic
// version check. Re-applying the current state is a benign no-op; a lost
// version race surfaces as a conflict.
func (s *StatusService) Transition(ctx context.Context, actor *models.User, courseID string, req dto.TransitionRequest) (*dto.TransitionResponse, error) {
	action, ok := models.ParseTransitionAction(req.Action)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown transition action %q", req.Action))
	}
	course, err := s.loadReviewable(ctx, courseID)
	if err != nil {
		return nil, err
	}

	changed, message, err := applyTransition(course, action)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &dto.TransitionResponse{Changed: false, Message: message, Status: string(course.Status())}, nil
	}
	if action == models.ActionApprove {
		_, total, err := s.links.AllSatisfy(ctx, course.ID, models.StateFieldApprove)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "transition failed")
		}
		if total == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course has no outcomes to review")
		}
	}
	course.UpdatedBy = &actor.ID

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "transition failed")
	}
	defer tx.Rollback()

	if err := s.courses.TransitionUpdateTx(ctx, tx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStaleVersion
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "transition failed")
	}
	if err := s.applyLinkEffects(ctx, tx, course.ID, action); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "transition failed")
	}
	if err := s.courses.MirrorFlagsTx(ctx, tx, course.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "transition failed")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "transition failed")
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(string(action)).Inc()
	}
	s.invalidateDashboard(ctx)
	s.emitAudit(ctx, actor.ID, models.AuditActionCourseTransition, course.ID,
		map[string]interface{}{"action": action, "status": course.Status()})
	s.notifyDecision(ctx, course, action)

	return &dto.TransitionResponse{Changed: true, Message: message, Status: string(course.Status())}, nil
}

// SetDesignation writes the committee label shown on the dashboard.
func (s *StatusService) SetDesignation(ctx context.Context, actor *models.User, courseID string, req dto.DesignationRequest) (*models.Course, error) {
	if req.Designation != models.DesignationProvisional && req.Designation != models.DesignationConfirmed {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("designation must be %q or %q", models.DesignationProvisional, models.DesignationConfirmed))
	}
	course, err := s.loadReviewable(ctx, courseID)
	if err != nil {
		return nil, err
	}
	course.Designation = &req.Designation
	course.UpdatedBy = &actor.ID

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "designation update failed")
	}
	defer tx.Rollback()

	if err := s.courses.TransitionUpdateTx(ctx, tx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStaleVersion
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "designation update failed")
	}
	if err := s.courses.MirrorFlagsTx(ctx, tx, course.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "designation update failed")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "designation update failed")
	}

	s.invalidateDashboard(ctx)
	return course, nil
}

// applyTransition mutates the in-memory course for one action and reports
// whether anything changed. A request that matches the current state returns
// changed=false with an explanatory message.
func applyTransition(course *models.Course, action models.TransitionAction) (bool, string, error) {
	now := time.Now().UTC()
	switch action {
	case models.ActionApprove:
		if course.Approved && !course.Furbish {
			return false, "course is already approved", nil
		}
		course.Approved = true
		course.ApprovedDate = &now
		course.Furbish = false
		return true, "course approved", nil
	case models.ActionUnapprove:
		if !course.Approved {
			return false, "course is not approved", nil
		}
		course.Approved = false
		course.ApprovedDate = nil
		return true, "course approval withdrawn", nil
	case models.ActionFurbish:
		if course.Furbish {
			return false, "course is already flagged for revision", nil
		}
		course.Furbish = true
		course.Approved = false
		course.ApprovedDate = nil
		course.SaveSubmit = false
		return true, "course returned for revision", nil
	case models.ActionReopen:
		if !course.Furbish && !course.SaveSubmit && !course.Approved {
			return false, "course is already in draft", nil
		}
		course.Furbish = false
		course.SaveSubmit = false
		course.Approved = false
		course.ApprovedDate = nil
		return true, "course reopened as draft", nil
	case models.ActionArchive:
		if course.Archive {
			return false, "course is already archived", nil
		}
		course.Archive = true
		return true, "course archived", nil
	case models.ActionUnarchive:
		if !course.Archive {
			return false, "course is not archived", nil
		}
		course.Archive = false
		return true, "course restored from archive", nil
	default:
		return false, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown transition action %q", action))
	}
}

// applyLinkEffects fans a course-level action out to the per-outcome link
// set: approval approves every link and clears revision flags, unapprove and
// reopen wipe prior review work, and a revision request flags every link.
// Link state is then re-mirrored onto siblings.
func (s *StatusService) applyLinkEffects(ctx context.Context, tx *sqlx.Tx, courseID string, action models.TransitionAction) error {
	switch action {
	case models.ActionApprove:
		if err := s.links.SetAllStateTx(ctx, tx, courseID, models.StateFieldApprove, true); err != nil {
			return err
		}
		if err := s.links.SetAllStateTx(ctx, tx, courseID, models.StateFieldFurbish, false); err != nil {
			return err
		}
	case models.ActionUnapprove, models.ActionReopen:
		if err := s.links.ResetAllTx(ctx, tx, courseID); err != nil {
			return err
		}
	case models.ActionFurbish:
		if err := s.links.SetAllStateTx(ctx, tx, courseID, models.StateFieldFurbish, true); err != nil {
			return err
		}
	default:
		return nil
	}

	siblings, err := s.courses.ListSiblingsTx(ctx, tx, courseID)
	if err != nil {
		return err
	}
	for _, sibling := range siblings {
		if err := s.links.CopyStateTx(ctx, tx, courseID, sibling.ID); err != nil {
			return err
		}
	}
	return nil
}

// loadReviewable resolves a course and rejects review actions aimed at a
// crosslisted sibling. Reviewers act on the canonical parent only.
func (s *StatusService) loadReviewable(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course lookup failed")
	}
	if !course.IsParent() {
		return nil, appErrors.ErrNotParent
	}
	return course, nil
}

func (s *StatusService) notifyDecision(ctx context.Context, course *models.Course, action models.TransitionAction) {
	if action != models.ActionApprove && action != models.ActionFurbish {
		return
	}
	detail, err := s.courses.FindDetailByID(ctx, course.ID)
	if err != nil {
		s.logger.Warn("owner lookup for decision mail failed", zap.String("course_id", course.ID), zap.Error(err))
		return
	}
	feedback := ""
	if action == models.ActionFurbish {
		adenda, err := s.adenda.LatestByTag(ctx, course.ID, models.AnnotationTagAdenda)
		switch {
		case err == nil:
			feedback = adenda.Body
		case !errors.Is(err, sql.ErrNoRows):
			s.logger.Warn("adenda lookup for decision mail failed", zap.String("course_id", course.ID), zap.Error(err))
		}
	}
	s.notifier.CourseDecision(ctx, course, detail.OwnerEmail, course.Status(), feedback)
}

func (s *StatusService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CacheKeyDesignationOverview); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *StatusService) emitAudit(ctx context.Context, actorID, action, courseID string, details map[string]interface{}) {
	if s.audits == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "course",
		ResourceID: &courseID,
	}
	if details != nil {
		entry.NewValues, _ = json.Marshal(details)
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
