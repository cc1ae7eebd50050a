package models

import "time"

// Outcome is an institutional learning outcome a course can be mapped to.
// Outcomes are shared reference data managed by administrators; they are not
// owned by any course and change rarely.
type Outcome struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Rationale   string    `db:"rationale" json:"rationale"`
	GroupName   string    `db:"group_name" json:"group_name"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// OutcomeElement is one gradable sub-criterion within an Outcome.
type OutcomeElement struct {
	ID          string    `db:"id" json:"id"`
	OutcomeID   string    `db:"outcome_id" json:"outcome_id"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// OutcomeDetail bundles an outcome with its elements.
type OutcomeDetail struct {
	Outcome
	Elements []OutcomeElement `json:"elements"`
}

// OutcomeFilter constrains catalog listing queries.
type OutcomeFilter struct {
	Active    *bool
	GroupName string
	Search    string
	Page      int
	PageSize  int
}
