package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// MembershipRepository reconciles the derived per-outcome rows with a course's
// outcome set. Whenever the set changes, exactly one outcome_links row per
// associated outcome and one outcome_contents row per active element of each
// associated outcome must exist, and rows for removed outcomes must be gone.
// No other code path creates or destroys these rows.
type MembershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository creates a new instance of MembershipRepository.
func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Sync reconciles a single course in its own transaction.
func (r *MembershipRepository) Sync(ctx context.Context, courseID string, outcomeIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin membership sync: %w", err)
	}
	defer tx.Rollback()

	if err := r.SyncTx(ctx, tx, courseID, outcomeIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit membership sync: %w", err)
	}
	return nil
}

// SyncTx reconciles a course inside an existing transaction. The operation is
// idempotent: syncing the same set twice leaves the rows untouched, so review
// state on surviving links is preserved.
func (r *MembershipRepository) SyncTx(ctx context.Context, tx *sqlx.Tx, courseID string, outcomeIDs []string) error {
	var existing []string
	if err := tx.SelectContext(ctx, &existing,
		`SELECT outcome_id FROM outcome_links WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("load linked outcomes: %w", err)
	}

	desired := make(map[string]bool, len(outcomeIDs))
	for _, id := range outcomeIDs {
		desired[id] = true
	}
	current := make(map[string]bool, len(existing))
	for _, id := range existing {
		current[id] = true
	}

	var added, removed []string
	for id := range desired {
		if !current[id] {
			added = append(added, id)
		}
	}
	for id := range current {
		if !desired[id] {
			removed = append(removed, id)
		}
	}

	if len(removed) > 0 {
		if err := r.removeTx(ctx, tx, courseID, removed); err != nil {
			return err
		}
	}
	if len(added) > 0 {
		if err := r.addTx(ctx, tx, courseID, added); err != nil {
			return err
		}
	}
	return nil
}

func (r *MembershipRepository) addTx(ctx context.Context, tx *sqlx.Tx, courseID string, outcomeIDs []string) error {
	now := time.Now().UTC()
	for _, outcomeID := range outcomeIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO outcome_links (id, course_id, outcome_id, approved, approved_date, furbish, created_at)
             VALUES ($1, $2, $3, false, NULL, false, $4)
             ON CONFLICT (course_id, outcome_id) DO NOTHING`,
			uuid.NewString(), courseID, outcomeID, now); err != nil {
			return fmt.Errorf("insert outcome link: %w", err)
		}
	}

	var elementIDs []string
	if err := tx.SelectContext(ctx, &elementIDs,
		`SELECT id FROM outcome_elements WHERE outcome_id = ANY($1) AND active = true ORDER BY id`,
		pq.Array(outcomeIDs)); err != nil {
		return fmt.Errorf("load outcome elements: %w", err)
	}
	for _, elementID := range elementIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO outcome_contents (id, course_id, element_id, description, created_at, updated_at)
             VALUES ($1, $2, $3, '', $4, $4)
             ON CONFLICT (course_id, element_id) DO NOTHING`,
			uuid.NewString(), courseID, elementID, now); err != nil {
			return fmt.Errorf("insert outcome content: %w", err)
		}
	}
	return nil
}

func (r *MembershipRepository) removeTx(ctx context.Context, tx *sqlx.Tx, courseID string, outcomeIDs []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM outcome_contents
         WHERE course_id = $1
           AND element_id IN (SELECT id FROM outcome_elements WHERE outcome_id = ANY($2))`,
		courseID, pq.Array(outcomeIDs)); err != nil {
		return fmt.Errorf("delete outcome contents: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM outcome_links WHERE course_id = $1 AND outcome_id = ANY($2)`,
		courseID, pq.Array(outcomeIDs)); err != nil {
		return fmt.Errorf("delete outcome links: %w", err)
	}
	return nil
}
