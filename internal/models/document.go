package models

import "time"

// DocumentTag categorises supporting files by purpose.
type DocumentTag string

const (
	DocumentTagSyllabus   DocumentTag = "SYLLABUS"
	DocumentTagSupporting DocumentTag = "SUPPORTING"
)

// Document is a supporting file attached to a course. The file itself is an
// opaque blob in local storage; only metadata lives in the database.
type Document struct {
	ID        string      `db:"id" json:"id"`
	CourseID  string      `db:"course_id" json:"course_id"`
	CreatedBy string      `db:"created_by" json:"created_by"`
	UpdatedBy *string     `db:"updated_by" json:"updated_by,omitempty"`
	Name      string      `db:"name" json:"name"`
	FilePath  string      `db:"file_path" json:"-"`
	Tag       DocumentTag `db:"tag" json:"tag"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}
