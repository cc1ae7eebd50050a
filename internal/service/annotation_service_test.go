package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/dto"
	"github.com/openedu-labs/geoc-api/internal/models"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
)

type mockAnnotationRepo struct {
	adenda      *models.Annotation
	found       *models.Annotation
	creates     int
	updates     int
	copies      [][2]string
	deactivated []string
}

func (m *mockAnnotationRepo) Create(_ context.Context, annotation *models.Annotation) error {
	m.creates++
	annotation.ID = "note-new"
	return nil
}

func (m *mockAnnotationRepo) CreateTx(_ context.Context, _ *sqlx.Tx, annotation *models.Annotation) error {
	m.creates++
	annotation.ID = "note-new"
	m.adenda = annotation
	return nil
}

func (m *mockAnnotationRepo) FindByID(_ context.Context, _ string) (*models.Annotation, error) {
	if m.found == nil {
		return nil, sql.ErrNoRows
	}
	copied := *m.found
	return &copied, nil
}

func (m *mockAnnotationRepo) ListByCourse(_ context.Context, _ string, _ models.AnnotationTag) ([]models.AnnotationDetail, error) {
	return nil, nil
}

func (m *mockAnnotationRepo) LatestByTag(_ context.Context, _ string, _ models.AnnotationTag) (*models.Annotation, error) {
	if m.adenda == nil {
		return nil, sql.ErrNoRows
	}
	copied := *m.adenda
	return &copied, nil
}

func (m *mockAnnotationRepo) LatestByTagTx(_ context.Context, _ *sqlx.Tx, courseID string, tag models.AnnotationTag) (*models.Annotation, error) {
	return m.LatestByTag(context.Background(), courseID, tag)
}

func (m *mockAnnotationRepo) UpdateBodyTx(_ context.Context, _ *sqlx.Tx, _, body, updatedBy string) error {
	m.updates++
	m.adenda.Body = body
	m.adenda.UpdatedBy = &updatedBy
	return nil
}

func (m *mockAnnotationRepo) CopyLatestByTagTx(_ context.Context, _ *sqlx.Tx, from, to string, _ models.AnnotationTag) error {
	m.copies = append(m.copies, [2]string{from, to})
	return nil
}

func (m *mockAnnotationRepo) Deactivate(_ context.Context, id, _ string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

type mockCourseFinder struct {
	course   *models.Course
	siblings []models.Course
}

func (m *mockCourseFinder) FindByID(_ context.Context, _ string) (*models.Course, error) {
	if m.course == nil {
		return nil, sql.ErrNoRows
	}
	copied := *m.course
	return &copied, nil
}

func (m *mockCourseFinder) ListSiblingsTx(_ context.Context, _ *sqlx.Tx, _ string) ([]models.Course, error) {
	return m.siblings, nil
}

func TestUpsertAdendaCreatesThenRewritesInPlace(t *testing.T) {
	db, mock := newTxDB(t)
	repo := &mockAnnotationRepo{}
	svc := NewAnnotationService(db, repo, &mockCourseFinder{course: &models.Course{ID: "course-1", OwnerID: "owner-1"}}, zap.NewNop())
	reviewer := manager()

	mock.ExpectBegin()
	mock.ExpectCommit()
	first, err := svc.UpsertAdenda(context.Background(), reviewer, "course-1", dto.AdendaRequest{Body: "add a rubric"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, models.AnnotationTagAdenda, first.Tag)

	// Saving the same text again touches nothing.
	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err = svc.UpsertAdenda(context.Background(), reviewer, "course-1", dto.AdendaRequest{Body: "add a rubric"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.creates)
	assert.Zero(t, repo.updates)

	// New text rewrites the existing slot instead of adding a second one.
	mock.ExpectBegin()
	mock.ExpectCommit()
	second, err := svc.UpsertAdenda(context.Background(), reviewer, "course-1", dto.AdendaRequest{Body: "add a rubric and a syllabus"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, 1, repo.updates)
	assert.Equal(t, "add a rubric and a syllabus", second.Body)
}

func TestUpsertAdendaPropagatesToSiblings(t *testing.T) {
	db, mock := newTxDB(t)
	repo := &mockAnnotationRepo{}
	finder := &mockCourseFinder{
		course:   &models.Course{ID: "course-1", OwnerID: "owner-1", Multipass: true},
		siblings: []models.Course{{ID: "sib-1"}, {ID: "sib-2"}},
	}
	svc := NewAnnotationService(db, repo, finder, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.UpsertAdenda(context.Background(), manager(), "course-1", dto.AdendaRequest{Body: "add a rubric"})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"course-1", "sib-1"}, {"course-1", "sib-2"}}, repo.copies,
		"every sibling receives the note in the same transaction")
}

func TestUpsertAdendaRejectsSibling(t *testing.T) {
	db, _ := newTxDB(t)
	parentID := "parent-1"
	svc := NewAnnotationService(db, &mockAnnotationRepo{},
		&mockCourseFinder{course: &models.Course{ID: "sibling-1", ParentID: &parentID}}, zap.NewNop())

	_, err := svc.UpsertAdenda(context.Background(), manager(), "sibling-1", dto.AdendaRequest{Body: "feedback"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotParent.Code, appCode(t, err))
}

func TestGetAdendaNilWhenUnwritten(t *testing.T) {
	db, _ := newTxDB(t)
	svc := NewAnnotationService(db, &mockAnnotationRepo{},
		&mockCourseFinder{course: &models.Course{ID: "course-1", OwnerID: "owner-1"}}, zap.NewNop())

	adenda, err := svc.GetAdenda(context.Background(), manager(), "course-1")
	require.NoError(t, err)
	assert.Nil(t, adenda)
}

func TestAddCommentRequiresBody(t *testing.T) {
	db, _ := newTxDB(t)
	svc := NewAnnotationService(db, &mockAnnotationRepo{},
		&mockCourseFinder{course: &models.Course{ID: "course-1", OwnerID: "owner-1"}}, zap.NewNop())

	_, err := svc.AddComment(context.Background(), manager(), "course-1", dto.CommentRequest{Body: "   "})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appCode(t, err))
}

func TestRemoveCommentAuthorization(t *testing.T) {
	author := &models.User{ID: "author-1", Role: models.RoleFaculty, Active: true}
	stranger := &models.User{ID: "other-1", Role: models.RoleFaculty, Active: true}
	admin := &models.User{ID: "admin-1", Role: models.RoleAdmin, Active: true}

	newSvc := func() (*AnnotationService, *mockAnnotationRepo) {
		db, _ := newTxDB(t)
		repo := &mockAnnotationRepo{found: &models.Annotation{ID: "note-1", CourseID: "course-1", CreatedBy: "author-1", Active: true}}
		return NewAnnotationService(db, repo, &mockCourseFinder{}, zap.NewNop()), repo
	}

	svc, repo := newSvc()
	require.NoError(t, svc.RemoveComment(context.Background(), author, "note-1"))
	assert.Equal(t, []string{"note-1"}, repo.deactivated)

	svc, repo = newSvc()
	err := svc.RemoveComment(context.Background(), stranger, "note-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appCode(t, err))
	assert.Empty(t, repo.deactivated)

	svc, repo = newSvc()
	require.NoError(t, svc.RemoveComment(context.Background(), admin, "note-1"))
	assert.Len(t, repo.deactivated, 1)
}
