package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/dto"
	"github.com/openedu-labs/geoc-api/internal/models"
	"github.com/openedu-labs/geoc-api/internal/validation"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
)

type courseRepo interface {
	Create(ctx context.Context, course *models.Course) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	UpdateTx(ctx context.Context, tx *sqlx.Tx, course *models.Course) error
	SetSaveSubmit(ctx context.Context, id string, submitted bool, updatedBy string) error
	ListSiblings(ctx context.Context, parentID string) ([]models.Course, error)
	Delete(ctx context.Context, id string) error
}

type outcomeCatalog interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Outcome, error)
}

type linkLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.OutcomeLinkDetail, error)
}

type contentRepo interface {
	FindByID(ctx context.Context, id string) (*models.OutcomeContent, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.OutcomeContentDetail, error)
	UpdateDescriptionTx(ctx context.Context, tx *sqlx.Tx, id, description string) error
}

type annotationWriter interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, annotation *models.Annotation) error
}

type cacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

// CourseService owns the faculty side of the workflow: the two-step form,
// outcome membership, crosslist maintenance, and submission.
type CourseService struct {
	db          *sqlx.DB
	courses     courseRepo
	outcomes    outcomeCatalog
	members     membershipSyncer
	links       linkLister
	contents    contentRepo
	annotations annotationWriter
	crosslist   *CrosslistService
	notifier    *Notifier
	audits      auditRecorder
	cache       cacheInvalidator
	metrics     *Metrics
	logger      *zap.Logger
}

// NewCourseService creates a new instance of CourseService.
func NewCourseService(
	db *sqlx.DB,
	courses courseRepo,
	outcomes outcomeCatalog,
	members membershipSyncer,
	links linkLister,
	contents contentRepo,
	annotations annotationWriter,
	crosslist *CrosslistService,
	notifier *Notifier,
	audits auditRecorder,
	cache cacheInvalidator,
	metrics *Metrics,
	logger *zap.Logger,
) *CourseService {
	return &CourseService{
		db:          db,
		courses:     courses,
		outcomes:    outcomes,
		members:     members,
		links:       links,
		contents:    contents,
		annotations: annotations,
		crosslist:   crosslist,
		notifier:    notifier,
		audits:      audits,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// Create starts a new submission: the course row, one link per selected
// outcome, one empty narrative per element, and crosslisted siblings when
// requested. Everything lands in one transaction.
func (s *CourseService) Create(ctx context.Context, actor *models.User, req dto.CreateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validateOutcomeSet(ctx, req.OutcomeIDs); err != nil {
		return nil, err
	}
	crosslistNumbers, err := validateCrosslistNumbers(req.Multipass, req.CrosslistNumbers, req.Number)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		OwnerID:   actor.ID,
		UpdatedBy: &actor.ID,
		Title:     strings.TrimSpace(req.Title),
		Number:    strings.ToUpper(strings.TrimSpace(req.Number)),
		Multipass: req.Multipass,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course create failed")
	}
	defer tx.Rollback()

	if err := s.courses.CreateTx(ctx, tx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course create failed")
	}
	if err := s.members.SyncTx(ctx, tx, course.ID, req.OutcomeIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "outcome membership sync failed")
	}
	if course.Multipass {
		if err := s.crosslist.RebuildTx(ctx, tx, course, crosslistNumbers, req.OutcomeIDs, actor.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "crosslist rebuild failed")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course create failed")
	}

	s.invalidateDashboard(ctx)
	s.emitAudit(ctx, actor.ID, models.AuditActionCourseCreate, course.ID, nil, course)
	return s.Get(ctx, actor, course.ID)
}

// Update rewrites the step-one fields and reconciles outcome membership and
// the crosslist set. Only the canonical parent may be edited, and only while
// the course is not under review.
func (s *CourseService) Update(ctx context.Context, actor *models.User, id string, req dto.UpdateCourseRequest) (*models.CourseDetail, error) {
	course, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateOutcomeSet(ctx, req.OutcomeIDs); err != nil {
		return nil, err
	}
	crosslistNumbers, err := validateCrosslistNumbers(req.Multipass, req.CrosslistNumbers, req.Number)
	if err != nil {
		return nil, err
	}

	before := *course
	course.Title = strings.TrimSpace(req.Title)
	course.Number = strings.ToUpper(strings.TrimSpace(req.Number))
	course.Multipass = req.Multipass
	course.UpdatedBy = &actor.ID

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course update failed")
	}
	defer tx.Rollback()

	if err := s.courses.UpdateTx(ctx, tx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course update failed")
	}
	if err := s.members.SyncTx(ctx, tx, course.ID, req.OutcomeIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "outcome membership sync failed")
	}
	// The sibling set is always rebuilt on edit. Multipass off means an
	// empty set, which clears any previous siblings.
	if err := s.crosslist.RebuildTx(ctx, tx, course, crosslistNumbers, req.OutcomeIDs, actor.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "crosslist rebuild failed")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course update failed")
	}

	s.invalidateDashboard(ctx)
	s.emitAudit(ctx, actor.ID, models.AuditActionCourseUpdate, course.ID, &before, course)
	return s.Get(ctx, actor, course.ID)
}

// SaveWorksheet applies step-two narrative edits, records the optional note
// as a comment, mirrors the result onto siblings, and optionally submits.
func (s *CourseService) SaveWorksheet(ctx context.Context, actor *models.User, id string, req dto.WorksheetRequest) (*dto.TransitionResponse, error) {
	course, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "worksheet save failed")
	}
	defer tx.Rollback()

	for _, entry := range req.Entries {
		content, err := s.contents.FindByID(ctx, entry.ContentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "worksheet entry not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "worksheet save failed")
		}
		if content.CourseID != course.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "worksheet entry belongs to another course")
		}
		if err := s.contents.UpdateDescriptionTx(ctx, tx, entry.ContentID, entry.Description); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "worksheet save failed")
		}
	}

	if note := strings.TrimSpace(req.Note); note != "" {
		if err := s.annotations.CreateTx(ctx, tx, &models.Annotation{
			CourseID:  course.ID,
			CreatedBy: actor.ID,
			Body:      note,
			Tag:       models.AnnotationTagComments,
			Active:    true,
		}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "worksheet note failed")
		}
	}

	if err := s.crosslist.MirrorTx(ctx, tx, course, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "crosslist mirror failed")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "worksheet save failed")
	}

	if !req.Submit {
		return &dto.TransitionResponse{Changed: true, Message: "worksheet saved", Status: string(course.Status())}, nil
	}
	return s.submit(ctx, actor, course)
}

func (s *CourseService) submit(ctx context.Context, actor *models.User, course *models.Course) (*dto.TransitionResponse, error) {
	if course.SaveSubmit {
		return &dto.TransitionResponse{Changed: false, Message: "course is already submitted", Status: string(course.Status())}, nil
	}
	if err := s.courses.SetSaveSubmit(ctx, course.ID, true, actor.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course submit failed")
	}
	for _, sibling := range s.siblingIDs(ctx, course) {
		if err := s.courses.SetSaveSubmit(ctx, sibling, true, actor.ID); err != nil {
			s.logger.Warn("sibling submit flag failed", zap.String("course_id", sibling), zap.Error(err))
		}
	}
	course.SaveSubmit = true

	if s.metrics != nil {
		s.metrics.Submissions.WithLabelValues("submitted").Inc()
	}
	s.invalidateDashboard(ctx)
	s.emitAudit(ctx, actor.ID, models.AuditActionCourseSubmit, course.ID, nil, course)
	s.notifier.CourseSubmitted(ctx, course, actor.FullName)

	return &dto.TransitionResponse{Changed: true, Message: "course submitted for review", Status: string(course.Status())}, nil
}

// Get returns the course with owner, per-outcome state, and siblings.
func (s *CourseService) Get(ctx context.Context, actor *models.User, id string) (*models.CourseDetail, error) {
	detail, err := s.courses.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course lookup failed")
	}
	if !actor.IsManager() && detail.OwnerID != actor.ID {
		return nil, appErrors.ErrForbidden
	}

	links, err := s.links.ListByCourse(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course lookup failed")
	}
	detail.Links = links

	if detail.IsParent() {
		siblings, err := s.courses.ListSiblings(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course lookup failed")
		}
		detail.Siblings = siblings
	}
	return detail, nil
}

// Worksheet returns the per-element narratives for the step-two form.
func (s *CourseService) Worksheet(ctx context.Context, actor *models.User, id string) ([]models.OutcomeContentDetail, error) {
	course, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsManager() && course.OwnerID != actor.ID {
		return nil, appErrors.ErrForbidden
	}
	contents, err := s.contents.ListByCourse(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "worksheet lookup failed")
	}
	return contents, nil
}

// List returns courses visible to the actor. Faculty see their own parents;
// reviewers see every parent.
func (s *CourseService) List(ctx context.Context, actor *models.User, query dto.CourseQuery) ([]models.CourseDetail, *models.Pagination, error) {
	filter := models.CourseFilter{
		OutcomeID:   query.OutcomeID,
		Status:      models.CourseStatus(query.Status),
		Designation: query.Designation,
		Archived:    query.Archived,
		ParentsOnly: true,
		Search:      query.Search,
		Page:        query.Page,
		PageSize:    query.PageSize,
	}
	if !actor.IsManager() {
		filter.OwnerID = actor.ID
	}

	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course list failed")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Delete removes a draft. Owners may delete their own drafts; admins may
// delete anything.
func (s *CourseService) Delete(ctx context.Context, actor *models.User, id string) error {
	course, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !course.IsParent() {
		return appErrors.ErrNotParent
	}
	if actor.Role != models.RoleAdmin {
		if course.OwnerID != actor.ID {
			return appErrors.ErrForbidden
		}
		if course.Status() != models.CourseStatusDraft {
			return appErrors.ErrCourseLocked
		}
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course delete failed")
	}
	s.invalidateDashboard(ctx)
	return nil
}

func (s *CourseService) find(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course lookup failed")
	}
	return course, nil
}

// loadEditable enforces the editing rules shared by Update and SaveWorksheet:
// canonical parent only, owner or reviewer only, and not while locked.
// A course returned for revision is editable again.
func (s *CourseService) loadEditable(ctx context.Context, actor *models.User, id string) (*models.Course, error) {
	course, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !course.IsParent() {
		return nil, appErrors.ErrNotParent
	}
	if !actor.IsManager() && course.OwnerID != actor.ID {
		return nil, appErrors.ErrForbidden
	}
	switch course.Status() {
	case models.CourseStatusDraft, models.CourseStatusNeedsWork:
		return course, nil
	default:
		return nil, appErrors.ErrCourseLocked
	}
}

// validateOutcomeSet rejects unknown or inactive outcomes and more than one
// outcome per group. Committees review one representative outcome per group.
func (s *CourseService) validateOutcomeSet(ctx context.Context, outcomeIDs []string) error {
	outcomes, err := s.outcomes.FindByIDs(ctx, outcomeIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "outcome lookup failed")
	}
	if len(outcomes) != len(outcomeIDs) {
		return appErrors.Clone(appErrors.ErrValidation, "one or more outcomes do not exist")
	}
	groups := make(map[string]string, len(outcomes))
	for _, outcome := range outcomes {
		if !outcome.Active {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("outcome %q is no longer active", outcome.Name))
		}
		if prior, ok := groups[outcome.GroupName]; ok {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("outcomes %q and %q belong to the same group; pick one", prior, outcome.Name))
		}
		groups[outcome.GroupName] = outcome.Name
	}
	return nil
}

func validateCrosslistNumbers(multipass bool, numbers []string, parentNumber string) ([]string, error) {
	normalized := NormalizeNumbers(numbers, parentNumber)
	if !multipass && len(normalized) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "crosslist numbers require the multipass flag")
	}
	for _, number := range normalized {
		if !validation.IsCourseNumber(number) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid crosslist number %q", number))
		}
	}
	return normalized, nil
}

func (s *CourseService) siblingIDs(ctx context.Context, course *models.Course) []string {
	if !course.Multipass {
		return nil
	}
	siblings, err := s.courses.ListSiblings(ctx, course.ID)
	if err != nil {
		s.logger.Warn("sibling lookup failed", zap.String("course_id", course.ID), zap.Error(err))
		return nil
	}
	ids := make([]string, 0, len(siblings))
	for _, sibling := range siblings {
		ids = append(ids, sibling.ID)
	}
	return ids
}

func (s *CourseService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CacheKeyDesignationOverview); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *CourseService) emitAudit(ctx context.Context, actorID, action, courseID string, before, after *models.Course) {
	if s.audits == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "course",
		ResourceID: &courseID,
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
