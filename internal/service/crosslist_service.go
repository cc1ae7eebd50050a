package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/models"
)

type crosslistCourseRepo interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, course *models.Course) error
	ListSiblings(ctx context.Context, parentID string) ([]models.Course, error)
	ListSiblingsTx(ctx context.Context, tx *sqlx.Tx, parentID string) ([]models.Course, error)
	DeleteSiblingsTx(ctx context.Context, tx *sqlx.Tx, parentID string) error
}

type membershipSyncer interface {
	SyncTx(ctx context.Context, tx *sqlx.Tx, courseID string, outcomeIDs []string) error
}

type linkStateCopier interface {
	CopyStateTx(ctx context.Context, tx *sqlx.Tx, fromCourseID, toCourseID string) error
}

type contentCopier interface {
	CopyFromParentTx(ctx context.Context, tx *sqlx.Tx, parentCourseID, siblingCourseID string) error
}

type noteCopier interface {
	CopyLatestByTagTx(ctx context.Context, tx *sqlx.Tx, fromCourseID, toCourseID string, tag models.AnnotationTag) error
}

// CrosslistService keeps crosslisted siblings in lockstep with their parent.
// Siblings are derived rows: they are rebuilt from the parent whenever the
// crosslist set changes and never edited on their own.
type CrosslistService struct {
	courses  crosslistCourseRepo
	members  membershipSyncer
	links    linkStateCopier
	contents contentCopier
	notes    noteCopier
	logger   *zap.Logger
}

// NewCrosslistService creates a new instance of CrosslistService.
func NewCrosslistService(courses crosslistCourseRepo, members membershipSyncer, links linkStateCopier, contents contentCopier, notes noteCopier, logger *zap.Logger) *CrosslistService {
	return &CrosslistService{courses: courses, members: members, links: links, contents: contents, notes: notes, logger: logger}
}

// NormalizeNumbers trims entries and drops blanks and duplicates of the
// parent number, preserving order.
func NormalizeNumbers(numbers []string, parentNumber string) []string {
	seen := map[string]bool{strings.ToUpper(strings.TrimSpace(parentNumber)): true}
	var result []string
	for _, raw := range numbers {
		number := strings.TrimSpace(raw)
		if number == "" {
			continue
		}
		key := strings.ToUpper(number)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, number)
	}
	return result
}

// RebuildTx replaces the parent's sibling set inside the caller's
// transaction. Old siblings and their derived rows are dropped, then one
// sibling per crosslist number is created as a field copy of the parent and
// its membership, review state, and narratives are mirrored. All or nothing:
// any failure rolls the caller's transaction back with no partial sibling set.
func (s *CrosslistService) RebuildTx(ctx context.Context, tx *sqlx.Tx, parent *models.Course, numbers, outcomeIDs []string, actorID string) error {
	if err := s.courses.DeleteSiblingsTx(ctx, tx, parent.ID); err != nil {
		return err
	}

	for _, number := range NormalizeNumbers(numbers, parent.Number) {
		sibling := &models.Course{
			OwnerID:      parent.OwnerID,
			UpdatedBy:    &actorID,
			ParentID:     &parent.ID,
			Title:        parent.Title,
			Number:       number,
			Multipass:    true,
			Approved:     parent.Approved,
			ApprovedDate: parent.ApprovedDate,
			Furbish:      parent.Furbish,
			SaveSubmit:   parent.SaveSubmit,
			Archive:      parent.Archive,
			Designation:  parent.Designation,
		}
		if err := s.courses.CreateTx(ctx, tx, sibling); err != nil {
			return err
		}
		if err := s.members.SyncTx(ctx, tx, sibling.ID, outcomeIDs); err != nil {
			return err
		}
		if err := s.links.CopyStateTx(ctx, tx, parent.ID, sibling.ID); err != nil {
			return err
		}
		if err := s.contents.CopyFromParentTx(ctx, tx, parent.ID, sibling.ID); err != nil {
			return err
		}
		if err := s.notes.CopyLatestByTagTx(ctx, tx, parent.ID, sibling.ID, models.AnnotationTagAdenda); err != nil {
			return err
		}
	}
	return nil
}

// MirrorTx re-copies membership, review state, narratives, and the adenda
// note from the parent onto every existing sibling. Used after worksheet
// edits and review actions so siblings never drift.
func (s *CrosslistService) MirrorTx(ctx context.Context, tx *sqlx.Tx, parent *models.Course, outcomeIDs []string) error {
	siblings, err := s.courses.ListSiblingsTx(ctx, tx, parent.ID)
	if err != nil {
		return err
	}
	for _, sibling := range siblings {
		if outcomeIDs != nil {
			if err := s.members.SyncTx(ctx, tx, sibling.ID, outcomeIDs); err != nil {
				return err
			}
		}
		if err := s.links.CopyStateTx(ctx, tx, parent.ID, sibling.ID); err != nil {
			return err
		}
		if err := s.contents.CopyFromParentTx(ctx, tx, parent.ID, sibling.ID); err != nil {
			return err
		}
		if err := s.notes.CopyLatestByTagTx(ctx, tx, parent.ID, sibling.ID, models.AnnotationTagAdenda); err != nil {
			return err
		}
	}
	return nil
}

// Siblings lists the current sibling set outside a transaction.
func (s *CrosslistService) Siblings(ctx context.Context, parentID string) ([]models.Course, error) {
	return s.courses.ListSiblings(ctx, parentID)
}
