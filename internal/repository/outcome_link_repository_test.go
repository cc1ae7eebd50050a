package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/openedu-labs/geoc-api/internal/models"
)

func TestAllSatisfy(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		satisfied int
		want      bool
	}{
		{"all approved", 3, 3, true},
		{"one pending", 3, 2, false},
		{"empty set never satisfies", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewOutcomeLinkRepository(db)

			mock.ExpectQuery(`SELECT\s+COUNT\(\*\) AS total`).
				WithArgs("course-1").
				WillReturnRows(sqlmock.NewRows([]string{"total", "satisfied"}).AddRow(tt.total, tt.satisfied))

			got, total, err := repo.AllSatisfy(context.Background(), "course-1", models.StateFieldApprove)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.total, total)
		})
	}
}

func TestAllSatisfyFurbishField(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutcomeLinkRepository(db)

	mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE furbish = true\)`).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "satisfied"}).AddRow(2, 2))

	got, total, err := repo.AllSatisfy(context.Background(), "course-1", models.StateFieldFurbish)
	assert.NoError(t, err)
	assert.True(t, got)
	assert.Equal(t, 2, total)
}

func TestSetAllStateApproveStampsEveryLink(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutcomeLinkRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE outcome_links SET approved = \$2, approved_date = \$3 WHERE course_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, repo.SetAllStateTx(context.Background(), tx, "course-1", models.StateFieldApprove, true))
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetAllClearsEveryFlag(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutcomeLinkRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE outcome_links SET approved = false, approved_date = NULL, furbish = false WHERE course_id = \$1`).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, repo.ResetAllTx(context.Background(), tx, "course-1"))
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStateApproveStampsDate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutcomeLinkRepository(db)

	mock.ExpectExec(`UPDATE outcome_links SET approved = \$2, approved_date = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetState(context.Background(), "link-1", models.StateFieldApprove, true)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStateUnknownLink(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutcomeLinkRepository(db)

	mock.ExpectExec(`UPDATE outcome_links SET furbish`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetState(context.Background(), "missing", models.StateFieldFurbish, true)
	assert.Error(t, err)
}
