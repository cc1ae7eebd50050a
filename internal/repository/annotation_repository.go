package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openedu-labs/geoc-api/internal/models"
)

// AnnotationRepository provides database access for comments and adenda.
type AnnotationRepository struct {
	db *sqlx.DB
}

// NewAnnotationRepository creates a new instance of AnnotationRepository.
func NewAnnotationRepository(db *sqlx.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

// Create inserts a new annotation.
func (r *AnnotationRepository) Create(ctx context.Context, annotation *models.Annotation) error {
	return r.create(ctx, r.db, annotation)
}

// CreateTx inserts a new annotation inside an existing transaction.
func (r *AnnotationRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, annotation *models.Annotation) error {
	return r.create(ctx, tx, annotation)
}

func (r *AnnotationRepository) create(ctx context.Context, ext sqlx.ExtContext, annotation *models.Annotation) error {
	if annotation.ID == "" {
		annotation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	annotation.CreatedAt = now
	annotation.UpdatedAt = now
	const query = `INSERT INTO annotations (id, course_id, created_by, updated_by, body, tag, active, created_at, updated_at)
        VALUES (:id, :course_id, :created_by, :updated_by, :body, :tag, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, annotation); err != nil {
		return fmt.Errorf("create annotation: %w", err)
	}
	return nil
}

// FindByID returns an annotation by identifier.
func (r *AnnotationRepository) FindByID(ctx context.Context, id string) (*models.Annotation, error) {
	const query = `SELECT id, course_id, created_by, updated_by, body, tag, active, created_at, updated_at
        FROM annotations WHERE id = $1 LIMIT 1`
	var annotation models.Annotation
	if err := r.db.GetContext(ctx, &annotation, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find annotation: %w", err)
	}
	return &annotation, nil
}

// ListByCourse returns active annotations of one tag, newest first.
func (r *AnnotationRepository) ListByCourse(ctx context.Context, courseID string, tag models.AnnotationTag) ([]models.AnnotationDetail, error) {
	const query = `SELECT a.id, a.course_id, a.created_by, a.updated_by, a.body, a.tag, a.active, a.created_at, a.updated_at,
        u.full_name AS author_name
        FROM annotations a
        JOIN users u ON u.id = a.created_by
        WHERE a.course_id = $1 AND a.tag = $2 AND a.active = true
        ORDER BY a.created_at DESC`
	var annotations []models.AnnotationDetail
	if err := r.db.SelectContext(ctx, &annotations, query, courseID, tag); err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	return annotations, nil
}

// LatestByTag returns the most recent active annotation of a tag, or
// sql.ErrNoRows when none exists.
func (r *AnnotationRepository) LatestByTag(ctx context.Context, courseID string, tag models.AnnotationTag) (*models.Annotation, error) {
	return r.latestByTag(ctx, r.db, courseID, tag)
}

// LatestByTagTx is LatestByTag inside an existing transaction.
func (r *AnnotationRepository) LatestByTagTx(ctx context.Context, tx *sqlx.Tx, courseID string, tag models.AnnotationTag) (*models.Annotation, error) {
	return r.latestByTag(ctx, tx, courseID, tag)
}

func (r *AnnotationRepository) latestByTag(ctx context.Context, q sqlx.QueryerContext, courseID string, tag models.AnnotationTag) (*models.Annotation, error) {
	const query = `SELECT id, course_id, created_by, updated_by, body, tag, active, created_at, updated_at
        FROM annotations
        WHERE course_id = $1 AND tag = $2 AND active = true
        ORDER BY created_at DESC LIMIT 1`
	var annotation models.Annotation
	if err := sqlx.GetContext(ctx, q, &annotation, query, courseID, tag); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find latest annotation: %w", err)
	}
	return &annotation, nil
}

// UpdateBody rewrites an annotation body in place.
func (r *AnnotationRepository) UpdateBody(ctx context.Context, id, body, updatedBy string) error {
	return r.updateBody(ctx, r.db, id, body, updatedBy)
}

// UpdateBodyTx is UpdateBody inside an existing transaction.
func (r *AnnotationRepository) UpdateBodyTx(ctx context.Context, tx *sqlx.Tx, id, body, updatedBy string) error {
	return r.updateBody(ctx, tx, id, body, updatedBy)
}

func (r *AnnotationRepository) updateBody(ctx context.Context, ext sqlx.ExtContext, id, body, updatedBy string) error {
	const query = `UPDATE annotations SET body = $2, updated_by = $3, updated_at = $4 WHERE id = $1`
	result, err := ext.ExecContext(ctx, query, id, body, updatedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update annotation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update annotation rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CopyLatestByTagTx mirrors the newest active annotation of a tag from one
// course onto another, creating or rewriting the target's slot. A source
// course without the tag leaves the target untouched.
func (r *AnnotationRepository) CopyLatestByTagTx(ctx context.Context, tx *sqlx.Tx, fromCourseID, toCourseID string, tag models.AnnotationTag) error {
	src, err := r.latestByTag(ctx, tx, fromCourseID, tag)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}
	dst, err := r.latestByTag(ctx, tx, toCourseID, tag)
	if err != nil {
		if err != sql.ErrNoRows {
			return err
		}
		return r.create(ctx, tx, &models.Annotation{
			CourseID:  toCourseID,
			CreatedBy: src.CreatedBy,
			Body:      src.Body,
			Tag:       tag,
			Active:    true,
		})
	}
	if dst.Body == src.Body {
		return nil
	}
	updatedBy := src.CreatedBy
	if src.UpdatedBy != nil {
		updatedBy = *src.UpdatedBy
	}
	return r.updateBody(ctx, tx, dst.ID, src.Body, updatedBy)
}

// Deactivate soft-deletes an annotation.
func (r *AnnotationRepository) Deactivate(ctx context.Context, id, updatedBy string) error {
	const query = `UPDATE annotations SET active = false, updated_by = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, updatedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate annotation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate annotation rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
