package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/dto"
	"github.com/openedu-labs/geoc-api/internal/models"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
	"github.com/openedu-labs/geoc-api/pkg/mailer"
)

func newTxDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

type mockStatusCourseRepo struct {
	course          *models.Course
	detail          *models.CourseDetail
	transitionErr   error
	transitionCalls int
	mirrorCalls     int
}

func (m *mockStatusCourseRepo) FindByID(_ context.Context, _ string) (*models.Course, error) {
	if m.course == nil {
		return nil, sql.ErrNoRows
	}
	copied := *m.course
	return &copied, nil
}

func (m *mockStatusCourseRepo) FindDetailByID(_ context.Context, _ string) (*models.CourseDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *mockStatusCourseRepo) TransitionUpdateTx(_ context.Context, _ *sqlx.Tx, course *models.Course) error {
	m.transitionCalls++
	if m.transitionErr != nil {
		return m.transitionErr
	}
	course.Version++
	m.course = course
	return nil
}

func (m *mockStatusCourseRepo) MirrorFlagsTx(_ context.Context, _ *sqlx.Tx, _ string) error {
	m.mirrorCalls++
	return nil
}

func (m *mockStatusCourseRepo) ListSiblingsTx(_ context.Context, _ *sqlx.Tx, _ string) ([]models.Course, error) {
	return nil, nil
}

type mockLinkStateRepo struct {
	link         *models.OutcomeLink
	allSatisfied bool
	total        int
	setCalls     int
	batchCalls   []string
	resets       int
}

func (m *mockLinkStateRepo) FindByID(_ context.Context, _ string) (*models.OutcomeLink, error) {
	if m.link == nil {
		return nil, sql.ErrNoRows
	}
	copied := *m.link
	return &copied, nil
}

func (m *mockLinkStateRepo) SetStateTx(_ context.Context, _ *sqlx.Tx, _ string, field models.StateField, value bool) error {
	m.setCalls++
	if field == models.StateFieldApprove {
		m.link.Approved = value
	} else {
		m.link.Furbish = value
	}
	return nil
}

func (m *mockLinkStateRepo) SetAllStateTx(_ context.Context, _ *sqlx.Tx, courseID string, field models.StateField, value bool) error {
	m.batchCalls = append(m.batchCalls, fmt.Sprintf("%s=%t", field, value))
	if m.link != nil && m.link.CourseID == courseID {
		if field == models.StateFieldApprove {
			m.link.Approved = value
		} else {
			m.link.Furbish = value
		}
	}
	return nil
}

func (m *mockLinkStateRepo) ResetAllTx(_ context.Context, _ *sqlx.Tx, courseID string) error {
	m.resets++
	if m.link != nil && m.link.CourseID == courseID {
		m.link.Approved = false
		m.link.ApprovedDate = nil
		m.link.Furbish = false
	}
	return nil
}

func (m *mockLinkStateRepo) CopyStateTx(_ context.Context, _ *sqlx.Tx, _, _ string) error {
	return nil
}

func (m *mockLinkStateRepo) AllSatisfy(_ context.Context, _ string, _ models.StateField) (bool, int, error) {
	return m.allSatisfied, m.total, nil
}

type mockAdendaReader struct {
	note *models.Annotation
}

func (m *mockAdendaReader) LatestByTag(_ context.Context, _ string, _ models.AnnotationTag) (*models.Annotation, error) {
	if m.note == nil {
		return nil, sql.ErrNoRows
	}
	return m.note, nil
}

type recordingSender struct {
	sent []mailer.Message
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

type staticDirectory struct {
	emails []string
}

func (d *staticDirectory) ListManagerEmails(_ context.Context) ([]string, error) {
	return d.emails, nil
}

func newStatusFixture(t *testing.T, courses *mockStatusCourseRepo, links *mockLinkStateRepo, adenda *mockAdendaReader) (*StatusService, sqlmock.Sqlmock, *recordingSender) {
	t.Helper()
	db, mock := newTxDB(t)
	sender := &recordingSender{}
	notifier := NewNotifier(sender, &staticDirectory{}, nil, nil, zap.NewNop())
	svc := NewStatusService(db, courses, links, adenda, notifier, nil, nil, nil, zap.NewNop())
	return svc, mock, sender
}

func manager() *models.User {
	return &models.User{ID: "manager-1", FullName: "Pat Reviewer", Role: models.RoleManager, Active: true}
}

func TestTransitionApproveAlreadyApprovedIsNoOp(t *testing.T) {
	courses := &mockStatusCourseRepo{course: &models.Course{ID: "course-1", Approved: true, SaveSubmit: true, Version: 2}}
	svc, mock, _ := newStatusFixture(t, courses, &mockLinkStateRepo{}, &mockAdendaReader{})

	result, err := svc.Transition(context.Background(), manager(), "course-1", dto.TransitionRequest{Action: "APPROVE"})
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, "course is already approved", result.Message)
	assert.Zero(t, courses.transitionCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionStaleVersionConflicts(t *testing.T) {
	courses := &mockStatusCourseRepo{
		course:        &models.Course{ID: "course-1", SaveSubmit: true, Version: 2},
		transitionErr: sql.ErrNoRows,
	}
	svc, mock, _ := newStatusFixture(t, courses, &mockLinkStateRepo{total: 3}, &mockAdendaReader{})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Transition(context.Background(), manager(), "course-1", dto.TransitionRequest{Action: "APPROVE"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrStaleVersion.Code, appErr.Code)
}

func TestTransitionFurbishUnlocksCourseAndMailsOwner(t *testing.T) {
	course := &models.Course{ID: "course-1", SaveSubmit: true, Approved: false, Version: 1}
	courses := &mockStatusCourseRepo{
		course: course,
		detail: &models.CourseDetail{Course: *course, OwnerEmail: "owner@example.edu"},
	}
	adenda := &mockAdendaReader{note: &models.Annotation{Body: "tighten the assessment plan"}}
	svc, mock, sender := newStatusFixture(t, courses, &mockLinkStateRepo{}, adenda)

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Transition(context.Background(), manager(), "course-1", dto.TransitionRequest{Action: "FURBISH"})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, string(models.CourseStatusNeedsWork), result.Status)
	assert.False(t, courses.course.SaveSubmit, "revision request unlocks editing")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"owner@example.edu"}, sender.sent[0].To)
	assert.Contains(t, sender.sent[0].HTML, "tighten the assessment plan")
}

func TestTransitionApproveRejectsCourseWithoutOutcomes(t *testing.T) {
	courses := &mockStatusCourseRepo{course: &models.Course{ID: "course-1", SaveSubmit: true}}
	svc, _, _ := newStatusFixture(t, courses, &mockLinkStateRepo{total: 0}, &mockAdendaReader{})

	_, err := svc.Transition(context.Background(), manager(), "course-1", dto.TransitionRequest{Action: "APPROVE"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Zero(t, courses.transitionCalls)
}

func TestTransitionRejectsSibling(t *testing.T) {
	parentID := "parent-1"
	courses := &mockStatusCourseRepo{course: &models.Course{ID: "sibling-1", ParentID: &parentID}}
	svc, _, _ := newStatusFixture(t, courses, &mockLinkStateRepo{}, &mockAdendaReader{})

	_, err := svc.Transition(context.Background(), manager(), "sibling-1", dto.TransitionRequest{Action: "APPROVE"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotParent.Code, appErr.Code)
}

func TestSetLinkStateRepeatApproveIsNoOp(t *testing.T) {
	courses := &mockStatusCourseRepo{course: &models.Course{ID: "course-1", SaveSubmit: true}}
	links := &mockLinkStateRepo{link: &models.OutcomeLink{ID: "link-1", CourseID: "course-1", Approved: true}}
	svc, mock, _ := newStatusFixture(t, courses, links, &mockAdendaReader{})

	result, err := svc.SetLinkState(context.Background(), manager(), "link-1",
		dto.OutcomeStateRequest{Field: "APPROVE", Value: true})
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Zero(t, links.setCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetLinkStateFinalApprovalPromotesCourse(t *testing.T) {
	course := &models.Course{ID: "course-1", SaveSubmit: true, Version: 1}
	courses := &mockStatusCourseRepo{
		course: course,
		detail: &models.CourseDetail{Course: *course, OwnerEmail: "owner@example.edu"},
	}
	links := &mockLinkStateRepo{
		link:         &models.OutcomeLink{ID: "link-1", CourseID: "course-1"},
		allSatisfied: true,
		total:        2,
	}
	svc, mock, sender := newStatusFixture(t, courses, links, &mockAdendaReader{})

	mock.ExpectBegin()
	mock.ExpectCommit()
	// Promotion runs the course-level approval in its own transaction.
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.SetLinkState(context.Background(), manager(), "link-1",
		dto.OutcomeStateRequest{Field: "APPROVE", Value: true})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.True(t, result.Promoted)
	assert.Equal(t, string(models.CourseStatusApproved), result.Status)
	assert.Equal(t, 1, courses.transitionCalls)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "approved")
}

func TestTransitionApproveApprovesEveryLink(t *testing.T) {
	courses := &mockStatusCourseRepo{course: &models.Course{ID: "course-1", SaveSubmit: true, Version: 1}}
	links := &mockLinkStateRepo{
		link:  &models.OutcomeLink{ID: "link-1", CourseID: "course-1", Furbish: true},
		total: 1,
	}
	svc, mock, _ := newStatusFixture(t, courses, links, &mockAdendaReader{})

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Transition(context.Background(), manager(), "course-1", dto.TransitionRequest{Action: "APPROVE"})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.True(t, links.link.Approved, "course approval reaches every link")
	assert.False(t, links.link.Furbish, "revision flags clear with the approval")
	assert.Equal(t, []string{"APPROVE=true", "FURBISH=false"}, links.batchCalls)
}

func TestTransitionReopenClearsLinkState(t *testing.T) {
	courses := &mockStatusCourseRepo{
		course: &models.Course{ID: "course-1", Approved: true, SaveSubmit: true, Version: 3},
	}
	links := &mockLinkStateRepo{
		link:  &models.OutcomeLink{ID: "link-1", CourseID: "course-1", Approved: true},
		total: 1,
	}
	svc, mock, _ := newStatusFixture(t, courses, links, &mockAdendaReader{})

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Transition(context.Background(), manager(), "course-1", dto.TransitionRequest{Action: "REOPEN"})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, string(models.CourseStatusDraft), result.Status)
	assert.Equal(t, 1, links.resets)
	assert.False(t, links.link.Approved, "prior review work does not survive a reopen")
}

func TestSetLinkStateFinalFurbishReturnsCourseForRevision(t *testing.T) {
	course := &models.Course{ID: "course-1", SaveSubmit: true, Version: 1}
	courses := &mockStatusCourseRepo{
		course: course,
		detail: &models.CourseDetail{Course: *course, OwnerEmail: "owner@example.edu"},
	}
	links := &mockLinkStateRepo{
		link:         &models.OutcomeLink{ID: "link-1", CourseID: "course-1"},
		allSatisfied: true,
		total:        2,
	}
	svc, mock, sender := newStatusFixture(t, courses, links, &mockAdendaReader{})

	mock.ExpectBegin()
	mock.ExpectCommit()
	// Promotion runs the course-level revision request in its own transaction.
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.SetLinkState(context.Background(), manager(), "link-1",
		dto.OutcomeStateRequest{Field: "FURBISH", Value: true})
	require.NoError(t, err)
	assert.True(t, result.Promoted)
	assert.Equal(t, string(models.CourseStatusNeedsWork), result.Status)
	assert.False(t, courses.course.SaveSubmit, "promotion unlocks editing")
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "needs revision")
}

func TestSetLinkStatePartialApprovalDoesNotPromote(t *testing.T) {
	courses := &mockStatusCourseRepo{course: &models.Course{ID: "course-1", SaveSubmit: true}}
	links := &mockLinkStateRepo{
		link:         &models.OutcomeLink{ID: "link-1", CourseID: "course-1"},
		allSatisfied: false,
		total:        3,
	}
	svc, mock, _ := newStatusFixture(t, courses, links, &mockAdendaReader{})

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.SetLinkState(context.Background(), manager(), "link-1",
		dto.OutcomeStateRequest{Field: "APPROVE", Value: true})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.False(t, result.Promoted)
	assert.Zero(t, courses.transitionCalls)
}
