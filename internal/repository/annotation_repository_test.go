package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/openedu-labs/geoc-api/internal/models"
)

func TestLatestByTagReturnsNewest(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAnnotationRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "course_id", "created_by", "updated_by", "body", "tag", "active", "created_at", "updated_at"}).
		AddRow("note-2", "course-1", "user-1", nil, "please revise the rubric", "ADENDA", true, now, now)
	mock.ExpectQuery(`SELECT .+ FROM annotations`).
		WithArgs("course-1", models.AnnotationTagAdenda).
		WillReturnRows(rows)

	note, err := repo.LatestByTag(context.Background(), "course-1", models.AnnotationTagAdenda)
	assert.NoError(t, err)
	assert.Equal(t, "note-2", note.ID)
	assert.Equal(t, models.AnnotationTagAdenda, note.Tag)
}

func TestLatestByTagEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAnnotationRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM annotations`).
		WithArgs("course-1", models.AnnotationTagAdenda).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LatestByTag(context.Background(), "course-1", models.AnnotationTagAdenda)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCopyLatestByTagCreatesMissingTarget(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAnnotationRepository(db)

	now := time.Now().UTC()
	src := sqlmock.NewRows([]string{"id", "course_id", "created_by", "updated_by", "body", "tag", "active", "created_at", "updated_at"}).
		AddRow("note-1", "parent-1", "user-1", nil, "please revise the rubric", "ADENDA", true, now, now)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM annotations`).
		WithArgs("parent-1", models.AnnotationTagAdenda).
		WillReturnRows(src)
	mock.ExpectQuery(`SELECT .+ FROM annotations`).
		WithArgs("sib-1", models.AnnotationTagAdenda).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO annotations`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, repo.CopyLatestByTagTx(context.Background(), tx, "parent-1", "sib-1", models.AnnotationTagAdenda))
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyLatestByTagNoSourceIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAnnotationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM annotations`).
		WithArgs("parent-1", models.AnnotationTagAdenda).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, repo.CopyLatestByTagTx(context.Background(), tx, "parent-1", "sib-1", models.AnnotationTagAdenda))
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBody(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAnnotationRepository(db)

	mock.ExpectExec(`UPDATE annotations SET body`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateBody(context.Background(), "note-1", "updated feedback", "user-2")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
