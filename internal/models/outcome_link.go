package models

import "time"

// OutcomeLink is the per-course-per-outcome approval unit. Exactly one link
// exists for each (course, outcome) pair currently associated; links are
// created and destroyed only by the membership synchronizer.
type OutcomeLink struct {
	ID           string     `db:"id" json:"id"`
	CourseID     string     `db:"course_id" json:"course_id"`
	OutcomeID    string     `db:"outcome_id" json:"outcome_id"`
	Approved     bool       `db:"approved" json:"approved"`
	ApprovedDate *time.Time `db:"approved_date" json:"approved_date,omitempty"`
	Furbish      bool       `db:"furbish" json:"furbish"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// OutcomeLinkDetail joins the link with its outcome name for display.
type OutcomeLinkDetail struct {
	OutcomeLink
	OutcomeName  string `db:"outcome_name" json:"outcome_name"`
	OutcomeGroup string `db:"outcome_group" json:"outcome_group"`
}

// OutcomeContent is the faculty-authored narrative answering how a course
// satisfies one outcome element. Lifecycle mirrors OutcomeLink: one row per
// (course, element) pair for every outcome currently linked.
type OutcomeContent struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	ElementID   string    `db:"element_id" json:"element_id"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// OutcomeContentDetail joins content with its element and parent outcome.
type OutcomeContentDetail struct {
	OutcomeContent
	ElementDescription string `db:"element_description" json:"element_description"`
	OutcomeID          string `db:"outcome_id" json:"outcome_id"`
	OutcomeName        string `db:"outcome_name" json:"outcome_name"`
}
