package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openedu-labs/geoc-api/internal/models"
)

// OutcomeLinkRepository provides database access for per-outcome review state.
type OutcomeLinkRepository struct {
	db *sqlx.DB
}

// NewOutcomeLinkRepository creates a new instance of OutcomeLinkRepository.
func NewOutcomeLinkRepository(db *sqlx.DB) *OutcomeLinkRepository {
	return &OutcomeLinkRepository{db: db}
}

// FindByID returns a single link.
func (r *OutcomeLinkRepository) FindByID(ctx context.Context, id string) (*models.OutcomeLink, error) {
	const query = `SELECT id, course_id, outcome_id, approved, approved_date, furbish, created_at
        FROM outcome_links WHERE id = $1 LIMIT 1`
	var link models.OutcomeLink
	if err := r.db.GetContext(ctx, &link, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find outcome link: %w", err)
	}
	return &link, nil
}

// ListByCourse returns every link of a course joined with its outcome.
func (r *OutcomeLinkRepository) ListByCourse(ctx context.Context, courseID string) ([]models.OutcomeLinkDetail, error) {
	const query = `SELECT l.id, l.course_id, l.outcome_id, l.approved, l.approved_date, l.furbish, l.created_at,
        o.name AS outcome_name, o.group_name AS outcome_group
        FROM outcome_links l
        JOIN outcomes o ON o.id = l.outcome_id
        WHERE l.course_id = $1
        ORDER BY o.group_name, o.name`
	var links []models.OutcomeLinkDetail
	if err := r.db.SelectContext(ctx, &links, query, courseID); err != nil {
		return nil, fmt.Errorf("list outcome links: %w", err)
	}
	return links, nil
}

// AllSatisfy reports whether every link of the course satisfies one review
// field, plus how many links exist. Approval satisfies only with no revision
// flag. A course with zero links never satisfies.
func (r *OutcomeLinkRepository) AllSatisfy(ctx context.Context, courseID string, field models.StateField) (bool, int, error) {
	var filter string
	switch field {
	case models.StateFieldApprove:
		filter = "approved = true AND furbish = false"
	case models.StateFieldFurbish:
		filter = "furbish = true"
	default:
		return false, 0, fmt.Errorf("unknown state field %q", field)
	}
	query := fmt.Sprintf(`SELECT
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE %s) AS satisfied
        FROM outcome_links WHERE course_id = $1`, filter)
	var row struct {
		Total     int `db:"total"`
		Satisfied int `db:"satisfied"`
	}
	if err := r.db.GetContext(ctx, &row, query, courseID); err != nil {
		return false, 0, fmt.Errorf("count satisfied links: %w", err)
	}
	return row.Total > 0 && row.Satisfied == row.Total, row.Total, nil
}

// SetState writes one per-outcome flag. The approved_date follows the
// approved flag: stamped when set, cleared when unset.
func (r *OutcomeLinkRepository) SetState(ctx context.Context, id string, field models.StateField, value bool) error {
	return r.setState(ctx, r.db, id, field, value)
}

// SetStateTx is SetState inside an existing transaction.
func (r *OutcomeLinkRepository) SetStateTx(ctx context.Context, tx *sqlx.Tx, id string, field models.StateField, value bool) error {
	return r.setState(ctx, tx, id, field, value)
}

func (r *OutcomeLinkRepository) setState(ctx context.Context, ext sqlx.ExtContext, id string, field models.StateField, value bool) error {
	var query string
	args := []interface{}{id, value}
	switch field {
	case models.StateFieldApprove:
		query = `UPDATE outcome_links SET approved = $2, approved_date = $3 WHERE id = $1`
		if value {
			now := time.Now().UTC()
			args = append(args, &now)
		} else {
			args = append(args, nil)
		}
	case models.StateFieldFurbish:
		query = `UPDATE outcome_links SET furbish = $2 WHERE id = $1`
	default:
		return fmt.Errorf("unknown state field %q", field)
	}
	result, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set link state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set link state rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAllStateTx writes one review flag on every link of a course. Course
// level actions fan out to the whole link set.
func (r *OutcomeLinkRepository) SetAllStateTx(ctx context.Context, tx *sqlx.Tx, courseID string, field models.StateField, value bool) error {
	var query string
	args := []interface{}{courseID, value}
	switch field {
	case models.StateFieldApprove:
		query = `UPDATE outcome_links SET approved = $2, approved_date = $3 WHERE course_id = $1`
		if value {
			now := time.Now().UTC()
			args = append(args, &now)
		} else {
			args = append(args, nil)
		}
	case models.StateFieldFurbish:
		query = `UPDATE outcome_links SET furbish = $2 WHERE course_id = $1`
	default:
		return fmt.Errorf("unknown state field %q", field)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set all link state: %w", err)
	}
	return nil
}

// ResetAllTx clears approval and revision flags on every link of a course.
// Used when an unapprove or reopen invalidates prior review work.
func (r *OutcomeLinkRepository) ResetAllTx(ctx context.Context, tx *sqlx.Tx, courseID string) error {
	const query = `UPDATE outcome_links SET approved = false, approved_date = NULL, furbish = false WHERE course_id = $1`
	if _, err := tx.ExecContext(ctx, query, courseID); err != nil {
		return fmt.Errorf("reset link state: %w", err)
	}
	return nil
}

// CopyStateTx copies per-outcome flags from one course to another, matched by
// outcome. Keeps crosslisted siblings in step with their parent.
func (r *OutcomeLinkRepository) CopyStateTx(ctx context.Context, tx *sqlx.Tx, fromCourseID, toCourseID string) error {
	const query = `UPDATE outcome_links dst
        SET approved = src.approved, approved_date = src.approved_date, furbish = src.furbish
        FROM outcome_links src
        WHERE src.course_id = $1 AND dst.course_id = $2 AND dst.outcome_id = src.outcome_id`
	if _, err := tx.ExecContext(ctx, query, fromCourseID, toCourseID); err != nil {
		return fmt.Errorf("copy link state: %w", err)
	}
	return nil
}
