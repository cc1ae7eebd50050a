package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openedu-labs/geoc-api/internal/models"
)

// CourseRepository provides database access for course submissions.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new instance of CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, owner_id, updated_by, parent_id, title, number, multipass, approved, approved_date, furbish, save_submit, archive, designation, version, created_at, updated_at`

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.create(ctx, r.db, course)
}

// CreateTx inserts a new course inside an existing transaction.
func (r *CourseRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, course *models.Course) error {
	return r.create(ctx, tx, course)
}

func (r *CourseRepository) create(ctx context.Context, ext sqlx.ExtContext, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, owner_id, updated_by, parent_id, title, number, multipass, approved, approved_date, furbish, save_submit, archive, designation, version, created_at, updated_at)
        VALUES (:id, :owner_id, :updated_by, :parent_id, :title, :number, :multipass, :approved, :approved_date, :furbish, :save_submit, :archive, :designation, :version, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 LIMIT 1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// FindByIDTx returns a course by identifier inside a transaction.
func (r *CourseRepository) FindByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 LIMIT 1`, courseColumns)
	var course models.Course
	if err := tx.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course in tx: %w", err)
	}
	return &course, nil
}

// FindDetailByID returns a course joined with its owner for display.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT c.%s, u.full_name AS owner_name, u.email AS owner_email
        FROM courses c
        JOIN users u ON u.id = c.owner_id
        WHERE c.id = $1 LIMIT 1`,
		strings.ReplaceAll(courseColumns, ", ", ", c."))
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course detail: %w", err)
	}
	detail.Status = detail.Course.Status()
	return &detail, nil
}

// List returns courses matching the filter, newest first, with a total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	addCondition := func(cond string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, idx))
		args = append(args, value)
		idx++
	}

	if filter.OwnerID != "" {
		addCondition("c.owner_id = $%d", filter.OwnerID)
	}
	if filter.Designation != "" {
		addCondition("c.designation = $%d", filter.Designation)
	}
	if filter.Archived != nil {
		addCondition("c.archive = $%d", *filter.Archived)
	}
	if filter.ParentsOnly {
		conditions = append(conditions, "c.parent_id IS NULL")
	}
	if filter.OutcomeID != "" {
		addCondition("EXISTS (SELECT 1 FROM outcome_links ol WHERE ol.course_id = c.id AND ol.outcome_id = $%d)", filter.OutcomeID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(c.title ILIKE $%d OR c.number ILIKE $%d)", idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	switch filter.Status {
	case models.CourseStatusDraft:
		conditions = append(conditions, "c.save_submit = false AND c.approved = false AND c.furbish = false")
	case models.CourseStatusSubmitted:
		conditions = append(conditions, "c.save_submit = true AND c.approved = false AND c.furbish = false")
	case models.CourseStatusApproved:
		conditions = append(conditions, "c.approved = true AND c.furbish = false")
	case models.CourseStatusNeedsWork:
		conditions = append(conditions, "c.furbish = true")
	}

	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM courses c WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf(`SELECT c.%s, u.full_name AS owner_name, u.email AS owner_email
        FROM courses c
        JOIN users u ON u.id = c.owner_id
        WHERE %s
        ORDER BY c.updated_at DESC
        LIMIT $%d OFFSET $%d`,
		strings.ReplaceAll(courseColumns, ", ", ", c."), where, idx, idx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	var details []models.CourseDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	for i := range details {
		details[i].Status = details[i].Course.Status()
	}
	return details, total, nil
}

// Update rewrites the editable step-one fields of a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.update(ctx, r.db, course)
}

// UpdateTx rewrites the editable fields inside an existing transaction.
func (r *CourseRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, course *models.Course) error {
	return r.update(ctx, tx, course)
}

func (r *CourseRepository) update(ctx context.Context, ext sqlx.ExtContext, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET
        title = :title, number = :number, multipass = :multipass,
        updated_by = :updated_by, updated_at = :updated_at
        WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, ext, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update course rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetSaveSubmit flips the submission lock.
func (r *CourseRepository) SetSaveSubmit(ctx context.Context, id string, submitted bool, updatedBy string) error {
	const query = `UPDATE courses SET save_submit = $2, updated_by = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, submitted, updatedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set save_submit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set save_submit rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TransitionUpdate rewrites the workflow flags with an optimistic version
// check. Returns sql.ErrNoRows when the stored version no longer matches,
// meaning another reviewer changed the course first.
func (r *CourseRepository) TransitionUpdate(ctx context.Context, course *models.Course) error {
	return r.transitionUpdate(ctx, r.db, course)
}

// TransitionUpdateTx is TransitionUpdate inside an existing transaction.
func (r *CourseRepository) TransitionUpdateTx(ctx context.Context, tx *sqlx.Tx, course *models.Course) error {
	return r.transitionUpdate(ctx, tx, course)
}

func (r *CourseRepository) transitionUpdate(ctx context.Context, ext sqlx.ExtContext, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET
        approved = :approved, approved_date = :approved_date,
        furbish = :furbish, save_submit = :save_submit, archive = :archive,
        designation = :designation, updated_by = :updated_by,
        updated_at = :updated_at, version = version + 1
        WHERE id = :id AND version = :version`
	result, err := sqlx.NamedExecContext(ctx, ext, query, course)
	if err != nil {
		return fmt.Errorf("transition course: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition course rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	course.Version++
	return nil
}

// MirrorFlagsTx copies the parent's workflow flags onto every sibling so a
// transition lands on the whole crosslist set at once.
func (r *CourseRepository) MirrorFlagsTx(ctx context.Context, tx *sqlx.Tx, parentID string) error {
	const query = `UPDATE courses c SET
        approved = p.approved, approved_date = p.approved_date,
        furbish = p.furbish, save_submit = p.save_submit, archive = p.archive,
        designation = p.designation, updated_by = p.updated_by, updated_at = $2
        FROM courses p
        WHERE p.id = $1 AND c.parent_id = p.id`
	if _, err := tx.ExecContext(ctx, query, parentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mirror sibling flags: %w", err)
	}
	return nil
}

// ListSiblings returns the crosslisted siblings of a parent course.
func (r *CourseRepository) ListSiblings(ctx context.Context, parentID string) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE parent_id = $1 ORDER BY number`, courseColumns)
	var siblings []models.Course
	if err := r.db.SelectContext(ctx, &siblings, query, parentID); err != nil {
		return nil, fmt.Errorf("list siblings: %w", err)
	}
	return siblings, nil
}

// ListSiblingsTx returns siblings inside an existing transaction.
func (r *CourseRepository) ListSiblingsTx(ctx context.Context, tx *sqlx.Tx, parentID string) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE parent_id = $1 ORDER BY number`, courseColumns)
	var siblings []models.Course
	if err := tx.SelectContext(ctx, &siblings, query, parentID); err != nil {
		return nil, fmt.Errorf("list siblings in tx: %w", err)
	}
	return siblings, nil
}

// DeleteSiblingsTx removes every sibling of a parent before a rebuild.
// Dependent links and contents cascade at the schema level.
func (r *CourseRepository) DeleteSiblingsTx(ctx context.Context, tx *sqlx.Tx, parentID string) error {
	const query = `DELETE FROM courses WHERE parent_id = $1`
	if _, err := tx.ExecContext(ctx, query, parentID); err != nil {
		return fmt.Errorf("delete siblings: %w", err)
	}
	return nil
}

// Delete removes a course and, through cascades, its dependent rows.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM courses WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DesignationStats aggregates parent courses per designation bucket for the
// committee dashboard. Courses without a designation land in "Unassigned".
func (r *CourseRepository) DesignationStats(ctx context.Context) ([]models.DesignationStat, error) {
	const query = `SELECT
        COALESCE(designation, 'Unassigned') AS designation,
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE save_submit = false AND approved = false AND furbish = false) AS draft,
        COUNT(*) FILTER (WHERE save_submit = true AND approved = false AND furbish = false) AS submitted,
        COUNT(*) FILTER (WHERE approved = true AND furbish = false) AS approved,
        COUNT(*) FILTER (WHERE furbish = true) AS needs_work
        FROM courses
        WHERE parent_id IS NULL AND archive = false
        GROUP BY COALESCE(designation, 'Unassigned')
        ORDER BY designation`
	var stats []models.DesignationStat
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("designation stats: %w", err)
	}
	return stats, nil
}
