package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/openedu-labs/geoc-api/internal/models"
)

func TestTransitionUpdateBumpsVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db)

	course := &models.Course{ID: "course-1", Approved: true, Version: 3}

	mock.ExpectExec(`UPDATE courses SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.TransitionUpdate(context.Background(), course)
	assert.NoError(t, err)
	assert.Equal(t, 4, course.Version)
}

func TestTransitionUpdateConflictOnStaleVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db)

	course := &models.Course{ID: "course-1", Approved: true, Version: 3}

	// Another reviewer already bumped the version: zero rows match.
	mock.ExpectExec(`UPDATE courses SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TransitionUpdate(context.Background(), course)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, 3, course.Version)
}

func TestDesignationStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"designation", "total", "draft", "submitted", "approved", "needs_work"}).
		AddRow("Confirmed", 5, 0, 1, 4, 0).
		AddRow("Provisional", 3, 1, 1, 0, 1).
		AddRow("Unassigned", 2, 2, 0, 0, 0)
	mock.ExpectQuery(`SELECT\s+COALESCE\(designation, 'Unassigned'\)`).
		WillReturnRows(rows)

	stats, err := repo.DesignationStats(context.Background())
	assert.NoError(t, err)
	assert.Len(t, stats, 3)
	assert.Equal(t, "Confirmed", stats[0].Designation)
	assert.Equal(t, 4, stats[0].Approved)
}
