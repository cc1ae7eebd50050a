package models

import "time"

// AnnotationTag categorises notes attached to a course.
type AnnotationTag string

const (
	// AnnotationTagComments marks entries of the accumulating comment log.
	AnnotationTagComments AnnotationTag = "COMMENTS"
	// AnnotationTagAdenda marks the single editable revision-feedback slot.
	AnnotationTagAdenda AnnotationTag = "ADENDA"
)

// Annotation is a timestamped note attached to a course. Comments accumulate
// as a log; the Adenda note is a single slot updated in place.
type Annotation struct {
	ID        string        `db:"id" json:"id"`
	CourseID  string        `db:"course_id" json:"course_id"`
	CreatedBy string        `db:"created_by" json:"created_by"`
	UpdatedBy *string       `db:"updated_by" json:"updated_by,omitempty"`
	Body      string        `db:"body" json:"body"`
	Tag       AnnotationTag `db:"tag" json:"tag"`
	Active    bool          `db:"active" json:"active"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// AnnotationDetail joins the note with its author name.
type AnnotationDetail struct {
	Annotation
	AuthorName string `db:"author_name" json:"author_name"`
}
