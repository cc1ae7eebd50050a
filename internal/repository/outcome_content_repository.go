package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openedu-labs/geoc-api/internal/models"
)

// OutcomeContentRepository provides database access for worksheet narratives.
type OutcomeContentRepository struct {
	db *sqlx.DB
}

// NewOutcomeContentRepository creates a new instance of OutcomeContentRepository.
func NewOutcomeContentRepository(db *sqlx.DB) *OutcomeContentRepository {
	return &OutcomeContentRepository{db: db}
}

// FindByID returns a single content row.
func (r *OutcomeContentRepository) FindByID(ctx context.Context, id string) (*models.OutcomeContent, error) {
	const query = `SELECT id, course_id, element_id, description, created_at, updated_at
        FROM outcome_contents WHERE id = $1 LIMIT 1`
	var content models.OutcomeContent
	if err := r.db.GetContext(ctx, &content, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find outcome content: %w", err)
	}
	return &content, nil
}

// ListByCourse returns every narrative of a course joined with its element
// and outcome, ordered for worksheet display.
func (r *OutcomeContentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.OutcomeContentDetail, error) {
	const query = `SELECT c.id, c.course_id, c.element_id, c.description, c.created_at, c.updated_at,
        e.description AS element_description, o.id AS outcome_id, o.name AS outcome_name
        FROM outcome_contents c
        JOIN outcome_elements e ON e.id = c.element_id
        JOIN outcomes o ON o.id = e.outcome_id
        WHERE c.course_id = $1
        ORDER BY o.group_name, o.name, e.id`
	var contents []models.OutcomeContentDetail
	if err := r.db.SelectContext(ctx, &contents, query, courseID); err != nil {
		return nil, fmt.Errorf("list outcome contents: %w", err)
	}
	return contents, nil
}

// UpdateDescription rewrites one narrative.
func (r *OutcomeContentRepository) UpdateDescription(ctx context.Context, id, description string) error {
	return r.updateDescription(ctx, r.db, id, description)
}

// UpdateDescriptionTx is UpdateDescription inside an existing transaction.
func (r *OutcomeContentRepository) UpdateDescriptionTx(ctx context.Context, tx *sqlx.Tx, id, description string) error {
	return r.updateDescription(ctx, tx, id, description)
}

func (r *OutcomeContentRepository) updateDescription(ctx context.Context, ext sqlx.ExtContext, id, description string) error {
	const query = `UPDATE outcome_contents SET description = $2, updated_at = $3 WHERE id = $1`
	result, err := ext.ExecContext(ctx, query, id, description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update outcome content: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update outcome content rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CopyFromParentTx overwrites each sibling narrative with the parent's text,
// matched by element. Rows created by the membership synchronizer are assumed
// to already exist on both sides.
func (r *OutcomeContentRepository) CopyFromParentTx(ctx context.Context, tx *sqlx.Tx, parentCourseID, siblingCourseID string) error {
	const query = `UPDATE outcome_contents dst
        SET description = src.description, updated_at = $3
        FROM outcome_contents src
        WHERE src.course_id = $1 AND dst.course_id = $2 AND dst.element_id = src.element_id`
	if _, err := tx.ExecContext(ctx, query, parentCourseID, siblingCourseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("copy contents from parent: %w", err)
	}
	return nil
}
