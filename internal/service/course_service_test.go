package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/models"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
)

type stubCatalog struct {
	outcomes []models.Outcome
}

func (m *stubCatalog) FindByIDs(_ context.Context, _ []string) ([]models.Outcome, error) {
	return m.outcomes, nil
}

type stubCourseRepo struct {
	course *models.Course
}

func (m *stubCourseRepo) Create(_ context.Context, _ *models.Course) error             { return nil }
func (m *stubCourseRepo) CreateTx(_ context.Context, _ *sqlx.Tx, _ *models.Course) error {
	return nil
}
func (m *stubCourseRepo) FindByID(_ context.Context, _ string) (*models.Course, error) {
	if m.course == nil {
		return nil, sql.ErrNoRows
	}
	copied := *m.course
	return &copied, nil
}
func (m *stubCourseRepo) FindByIDTx(_ context.Context, _ *sqlx.Tx, id string) (*models.Course, error) {
	return m.FindByID(context.Background(), id)
}
func (m *stubCourseRepo) FindDetailByID(_ context.Context, _ string) (*models.CourseDetail, error) {
	return nil, sql.ErrNoRows
}
func (m *stubCourseRepo) List(_ context.Context, _ models.CourseFilter) ([]models.CourseDetail, int, error) {
	return nil, 0, nil
}
func (m *stubCourseRepo) UpdateTx(_ context.Context, _ *sqlx.Tx, _ *models.Course) error { return nil }
func (m *stubCourseRepo) SetSaveSubmit(_ context.Context, _ string, submitted bool, _ string) error {
	m.course.SaveSubmit = submitted
	return nil
}
func (m *stubCourseRepo) ListSiblings(_ context.Context, _ string) ([]models.Course, error) {
	return nil, nil
}
func (m *stubCourseRepo) Delete(_ context.Context, _ string) error { return nil }

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected typed error, got %v", err)
	return appErr.Code
}

func TestValidateOutcomeSetRejectsSameGroup(t *testing.T) {
	svc := &CourseService{outcomes: &stubCatalog{outcomes: []models.Outcome{
		{ID: "o1", Name: "Quantitative Reasoning", GroupName: "Analytics", Active: true},
		{ID: "o2", Name: "Data Literacy", GroupName: "Analytics", Active: true},
	}}}

	err := svc.validateOutcomeSet(context.Background(), []string{"o1", "o2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appCode(t, err))
}

func TestValidateOutcomeSetRejectsInactive(t *testing.T) {
	svc := &CourseService{outcomes: &stubCatalog{outcomes: []models.Outcome{
		{ID: "o1", Name: "Written Communication", GroupName: "Communication", Active: false},
	}}}

	err := svc.validateOutcomeSet(context.Background(), []string{"o1"})
	require.Error(t, err)
}

func TestValidateOutcomeSetRejectsUnknownIDs(t *testing.T) {
	svc := &CourseService{outcomes: &stubCatalog{outcomes: []models.Outcome{
		{ID: "o1", Name: "Oral Communication", GroupName: "Communication", Active: true},
	}}}

	err := svc.validateOutcomeSet(context.Background(), []string{"o1", "missing"})
	require.Error(t, err)
}

func TestValidateOutcomeSetAcceptsDistinctGroups(t *testing.T) {
	svc := &CourseService{outcomes: &stubCatalog{outcomes: []models.Outcome{
		{ID: "o1", Name: "Quantitative Reasoning", GroupName: "Analytics", Active: true},
		{ID: "o2", Name: "Oral Communication", GroupName: "Communication", Active: true},
	}}}

	assert.NoError(t, svc.validateOutcomeSet(context.Background(), []string{"o1", "o2"}))
}

func TestLoadEditable(t *testing.T) {
	owner := &models.User{ID: "owner-1", Role: models.RoleFaculty, Active: true}
	stranger := &models.User{ID: "other-1", Role: models.RoleFaculty, Active: true}
	parentID := "parent-1"

	tests := []struct {
		name     string
		actor    *models.User
		course   *models.Course
		wantCode string
	}{
		{"draft is editable", owner, &models.Course{ID: "c1", OwnerID: "owner-1"}, ""},
		{"needs-work is editable again", owner, &models.Course{ID: "c1", OwnerID: "owner-1", Furbish: true, SaveSubmit: false}, ""},
		{"submitted is locked", owner, &models.Course{ID: "c1", OwnerID: "owner-1", SaveSubmit: true}, appErrors.ErrCourseLocked.Code},
		{"approved is locked", owner, &models.Course{ID: "c1", OwnerID: "owner-1", Approved: true}, appErrors.ErrCourseLocked.Code},
		{"sibling is never edited directly", owner, &models.Course{ID: "c2", OwnerID: "owner-1", ParentID: &parentID}, appErrors.ErrNotParent.Code},
		{"strangers are rejected", stranger, &models.Course{ID: "c1", OwnerID: "owner-1"}, appErrors.ErrForbidden.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &CourseService{courses: &stubCourseRepo{course: tt.course}}
			_, err := svc.loadEditable(context.Background(), tt.actor, tt.course.ID)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, appCode(t, err))
		})
	}
}

func TestSubmitAlreadySubmittedIsNoOp(t *testing.T) {
	repo := &stubCourseRepo{course: &models.Course{ID: "c1", OwnerID: "owner-1", SaveSubmit: true}}
	svc := &CourseService{courses: repo, logger: zap.NewNop()}

	result, err := svc.submit(context.Background(),
		&models.User{ID: "owner-1", Role: models.RoleFaculty}, repo.course)
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, "course is already submitted", result.Message)
}

func TestValidateCrosslistNumbersRequireMultipass(t *testing.T) {
	_, err := validateCrosslistNumbers(false, []string{"ABC 101"}, "GEO 105")
	require.Error(t, err)

	numbers, err := validateCrosslistNumbers(true, []string{"ABC 101", ""}, "GEO 105")
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC 101"}, numbers)

	_, err = validateCrosslistNumbers(true, []string{"not a number"}, "GEO 105")
	require.Error(t, err)
}
