package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestMembershipSyncAddsLinksAndContents(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMembershipRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT outcome_id FROM outcome_links WHERE course_id`).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"outcome_id"}))
	mock.ExpectExec(`INSERT INTO outcome_links`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id FROM outcome_elements WHERE outcome_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("element-1").AddRow("element-2"))
	mock.ExpectExec(`INSERT INTO outcome_contents`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO outcome_contents`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Sync(context.Background(), "course-1", []string{"outcome-1"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipSyncIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMembershipRepository(db)

	// The set already matches: no inserts, no deletes, review state untouched.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT outcome_id FROM outcome_links WHERE course_id`).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"outcome_id"}).AddRow("outcome-1").AddRow("outcome-2"))
	mock.ExpectCommit()

	err := repo.Sync(context.Background(), "course-1", []string{"outcome-1", "outcome-2"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipSyncRemovesDroppedOutcomes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMembershipRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT outcome_id FROM outcome_links WHERE course_id`).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"outcome_id"}).AddRow("outcome-1").AddRow("outcome-2"))
	mock.ExpectExec(`DELETE FROM outcome_contents`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM outcome_links WHERE course_id`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Sync(context.Background(), "course-1", []string{"outcome-1"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
