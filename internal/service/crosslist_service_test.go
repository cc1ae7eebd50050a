package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/models"
)

type recordingCourseRepo struct {
	created    []*models.Course
	deletes    int
	createErr  error
	siblings   []models.Course
}

func (m *recordingCourseRepo) CreateTx(_ context.Context, _ *sqlx.Tx, course *models.Course) error {
	if m.createErr != nil {
		return m.createErr
	}
	course.ID = "generated-" + course.Number
	m.created = append(m.created, course)
	return nil
}

func (m *recordingCourseRepo) ListSiblings(_ context.Context, _ string) ([]models.Course, error) {
	return m.siblings, nil
}

func (m *recordingCourseRepo) ListSiblingsTx(_ context.Context, _ *sqlx.Tx, _ string) ([]models.Course, error) {
	return m.siblings, nil
}

func (m *recordingCourseRepo) DeleteSiblingsTx(_ context.Context, _ *sqlx.Tx, _ string) error {
	m.deletes++
	return nil
}

type recordingSyncer struct {
	synced map[string][]string
}

func (m *recordingSyncer) SyncTx(_ context.Context, _ *sqlx.Tx, courseID string, outcomeIDs []string) error {
	if m.synced == nil {
		m.synced = map[string][]string{}
	}
	m.synced[courseID] = outcomeIDs
	return nil
}

type recordingCopier struct {
	stateCopies   [][2]string
	contentCopies [][2]string
}

func (m *recordingCopier) CopyStateTx(_ context.Context, _ *sqlx.Tx, from, to string) error {
	m.stateCopies = append(m.stateCopies, [2]string{from, to})
	return nil
}

func (m *recordingCopier) CopyFromParentTx(_ context.Context, _ *sqlx.Tx, from, to string) error {
	m.contentCopies = append(m.contentCopies, [2]string{from, to})
	return nil
}

type recordingNoteCopier struct {
	copies [][2]string
}

func (m *recordingNoteCopier) CopyLatestByTagTx(_ context.Context, _ *sqlx.Tx, from, to string, _ models.AnnotationTag) error {
	m.copies = append(m.copies, [2]string{from, to})
	return nil
}

func TestNormalizeNumbers(t *testing.T) {
	got := NormalizeNumbers([]string{"ABC 101", "", "DEF 202", ""}, "GEO 105")
	assert.Equal(t, []string{"ABC 101", "DEF 202"}, got)

	// The parent number and duplicates are dropped, case-insensitively.
	got = NormalizeNumbers([]string{"geo 105", "ABC 101", "abc 101"}, "GEO 105")
	assert.Equal(t, []string{"ABC 101"}, got)

	assert.Nil(t, NormalizeNumbers([]string{"", "  ", ""}, "GEO 105"))
}

func TestRebuildTxCreatesOneSiblingPerNumber(t *testing.T) {
	db, mock := newTxDB(t)
	courses := &recordingCourseRepo{}
	syncer := &recordingSyncer{}
	copier := &recordingCopier{}
	notes := &recordingNoteCopier{}
	svc := NewCrosslistService(courses, syncer, copier, copier, notes, zap.NewNop())

	parent := &models.Course{
		ID:       "parent-1",
		OwnerID:  "owner-1",
		Title:    "Intro to Geography",
		Number:   "GEO 105",
		Approved: true,
	}

	mock.ExpectBegin()
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	err = svc.RebuildTx(context.Background(), tx, parent,
		[]string{"ABC 101", "", "DEF 202", ""}, []string{"outcome-1"}, "actor-1")
	require.NoError(t, err)

	assert.Equal(t, 1, courses.deletes, "old siblings cleared first")
	require.Len(t, courses.created, 2)
	for _, sibling := range courses.created {
		require.NotNil(t, sibling.ParentID)
		assert.Equal(t, "parent-1", *sibling.ParentID)
		assert.Equal(t, "owner-1", sibling.OwnerID)
		assert.Equal(t, "Intro to Geography", sibling.Title)
		assert.True(t, sibling.Multipass)
		assert.True(t, sibling.Approved, "workflow flags copied from parent")
	}
	assert.Equal(t, []string{"outcome-1"}, syncer.synced["generated-ABC 101"])
	assert.Len(t, copier.stateCopies, 2)
	assert.Len(t, copier.contentCopies, 2)
	assert.Len(t, notes.copies, 2, "adenda note mirrored onto each sibling")
}

func TestMirrorTxCopiesAdendaToSiblings(t *testing.T) {
	db, mock := newTxDB(t)
	courses := &recordingCourseRepo{siblings: []models.Course{{ID: "sib-1"}, {ID: "sib-2"}}}
	copier := &recordingCopier{}
	notes := &recordingNoteCopier{}
	svc := NewCrosslistService(courses, &recordingSyncer{}, copier, copier, notes, zap.NewNop())

	mock.ExpectBegin()
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	err = svc.MirrorTx(context.Background(), tx, &models.Course{ID: "parent-1", Number: "GEO 105"}, nil)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"parent-1", "sib-1"}, {"parent-1", "sib-2"}}, notes.copies)
	assert.Len(t, copier.stateCopies, 2)
}

func TestRebuildTxFailsAtomically(t *testing.T) {
	db, mock := newTxDB(t)
	courses := &recordingCourseRepo{createErr: errors.New("insert failed")}
	svc := NewCrosslistService(courses, &recordingSyncer{}, &recordingCopier{}, &recordingCopier{}, &recordingNoteCopier{}, zap.NewNop())

	mock.ExpectBegin()
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	err = svc.RebuildTx(context.Background(), tx, &models.Course{ID: "parent-1", Number: "GEO 105"},
		[]string{"ABC 101"}, []string{"outcome-1"}, "actor-1")
	assert.Error(t, err, "caller rolls back, no partial sibling set survives")
}
