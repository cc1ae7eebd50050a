package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/openedu-labs/geoc-api/internal/models"
)

// OutcomeRepository provides database access for the outcome catalog.
type OutcomeRepository struct {
	db *sqlx.DB
}

// NewOutcomeRepository creates a new instance of OutcomeRepository.
func NewOutcomeRepository(db *sqlx.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Create inserts a new outcome.
func (r *OutcomeRepository) Create(ctx context.Context, outcome *models.Outcome) error {
	if outcome.ID == "" {
		outcome.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	outcome.CreatedAt = now
	outcome.UpdatedAt = now
	const query = `INSERT INTO outcomes (id, name, description, rationale, group_name, active, created_at, updated_at)
        VALUES (:id, :name, :description, :rationale, :group_name, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, outcome); err != nil {
		return fmt.Errorf("create outcome: %w", err)
	}
	return nil
}

// FindByID returns an outcome by identifier.
func (r *OutcomeRepository) FindByID(ctx context.Context, id string) (*models.Outcome, error) {
	const query = `SELECT id, name, description, rationale, group_name, active, created_at, updated_at
        FROM outcomes WHERE id = $1 LIMIT 1`
	var outcome models.Outcome
	if err := r.db.GetContext(ctx, &outcome, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find outcome: %w", err)
	}
	return &outcome, nil
}

// FindByIDs returns the outcomes for a set of identifiers.
func (r *OutcomeRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Outcome, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, name, description, rationale, group_name, active, created_at, updated_at
        FROM outcomes WHERE id = ANY($1)`
	var outcomes []models.Outcome
	if err := r.db.SelectContext(ctx, &outcomes, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find outcomes by ids: %w", err)
	}
	return outcomes, nil
}

// List returns outcomes matching the filter.
func (r *OutcomeRepository) List(ctx context.Context, filter models.OutcomeFilter) ([]models.Outcome, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if filter.GroupName != "" {
		conditions = append(conditions, fmt.Sprintf("group_name = $%d", idx))
		args = append(args, filter.GroupName)
		idx++
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", idx))
		args = append(args, *filter.Active)
		idx++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}

	query := fmt.Sprintf(`SELECT id, name, description, rationale, group_name, active, created_at, updated_at
        FROM outcomes WHERE %s ORDER BY group_name, name`, strings.Join(conditions, " AND "))
	var outcomes []models.Outcome
	if err := r.db.SelectContext(ctx, &outcomes, query, args...); err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	return outcomes, nil
}

// Update rewrites an outcome's catalog fields.
func (r *OutcomeRepository) Update(ctx context.Context, outcome *models.Outcome) error {
	outcome.UpdatedAt = time.Now().UTC()
	const query = `UPDATE outcomes SET name = :name, description = :description, rationale = :rationale,
        group_name = :group_name, active = :active, updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, outcome)
	if err != nil {
		return fmt.Errorf("update outcome: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update outcome rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListElements returns the elements of one outcome.
func (r *OutcomeRepository) ListElements(ctx context.Context, outcomeID string) ([]models.OutcomeElement, error) {
	const query = `SELECT id, outcome_id, description, active, created_at
        FROM outcome_elements WHERE outcome_id = $1 ORDER BY id`
	var elements []models.OutcomeElement
	if err := r.db.SelectContext(ctx, &elements, query, outcomeID); err != nil {
		return nil, fmt.Errorf("list outcome elements: %w", err)
	}
	return elements, nil
}

// CreateElement adds a gradable sub-criterion to an outcome.
func (r *OutcomeRepository) CreateElement(ctx context.Context, element *models.OutcomeElement) error {
	if element.ID == "" {
		element.ID = uuid.NewString()
	}
	element.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO outcome_elements (id, outcome_id, description, active, created_at)
        VALUES (:id, :outcome_id, :description, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, element); err != nil {
		return fmt.Errorf("create outcome element: %w", err)
	}
	return nil
}

// UpdateElement rewrites an element.
func (r *OutcomeRepository) UpdateElement(ctx context.Context, element *models.OutcomeElement) error {
	const query = `UPDATE outcome_elements SET description = :description, active = :active WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, element)
	if err != nil {
		return fmt.Errorf("update outcome element: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update outcome element rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
