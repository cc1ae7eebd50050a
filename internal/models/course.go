package models

import "time"

// CourseStatus is the derived course-level workflow label.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "DRAFT"
	CourseStatusSubmitted CourseStatus = "SUBMITTED"
	CourseStatusApproved  CourseStatus = "APPROVED"
	CourseStatusNeedsWork CourseStatus = "NEEDS_WORK"
)

// Designation labels used by the committee dashboard.
const (
	DesignationProvisional = "Provisional"
	DesignationConfirmed   = "Confirmed"
)

// Course is a faculty submission mapped to a set of learning outcomes.
// A course with a nil ParentID is canonical; crosslisted siblings carry
// ParentID and are never edited directly.
type Course struct {
	ID           string     `db:"id" json:"id"`
	OwnerID      string     `db:"owner_id" json:"owner_id"`
	UpdatedBy    *string    `db:"updated_by" json:"updated_by,omitempty"`
	ParentID     *string    `db:"parent_id" json:"parent_id,omitempty"`
	Title        string     `db:"title" json:"title"`
	Number       string     `db:"number" json:"number"`
	Multipass    bool       `db:"multipass" json:"multipass"`
	Approved     bool       `db:"approved" json:"approved"`
	ApprovedDate *time.Time `db:"approved_date" json:"approved_date,omitempty"`
	Furbish      bool       `db:"furbish" json:"furbish"`
	SaveSubmit   bool       `db:"save_submit" json:"save_submit"`
	Archive      bool       `db:"archive" json:"archive"`
	Designation  *string    `db:"designation" json:"designation,omitempty"`
	Version      int        `db:"version" json:"version"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsParent reports whether this record is the canonical course.
func (c *Course) IsParent() bool {
	return c.ParentID == nil
}

// Status derives the workflow label from the state flags.
func (c *Course) Status() CourseStatus {
	switch {
	case c.Furbish:
		return CourseStatusNeedsWork
	case c.Approved:
		return CourseStatusApproved
	case c.SaveSubmit:
		return CourseStatusSubmitted
	default:
		return CourseStatusDraft
	}
}

// CourseDetail joins a course with owner info and its per-outcome state.
type CourseDetail struct {
	Course
	OwnerName  string              `db:"owner_name" json:"owner_name"`
	OwnerEmail string              `db:"owner_email" json:"owner_email"`
	Status     CourseStatus        `json:"status"`
	Links      []OutcomeLinkDetail `json:"links,omitempty"`
	Siblings   []Course            `json:"siblings,omitempty"`
}

// CourseFilter constrains course listing queries.
type CourseFilter struct {
	OwnerID     string
	OutcomeID   string
	Status      CourseStatus
	Designation string
	Archived    *bool
	ParentsOnly bool
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// DesignationStat is one dashboard row: course counts per designation
// bucket, split by workflow status.
type DesignationStat struct {
	Designation string `db:"designation" json:"designation"`
	Total       int    `db:"total" json:"total"`
	Draft       int    `db:"draft" json:"draft"`
	Submitted   int    `db:"submitted" json:"submitted"`
	Approved    int    `db:"approved" json:"approved"`
	NeedsWork   int    `db:"needs_work" json:"needs_work"`
}

// StateField selects which per-outcome boolean a review action targets.
type StateField string

const (
	StateFieldApprove StateField = "APPROVE"
	StateFieldFurbish StateField = "FURBISH"
)

// ParseStateField validates a raw field selector.
func ParseStateField(raw string) (StateField, bool) {
	switch StateField(raw) {
	case StateFieldApprove, StateFieldFurbish:
		return StateField(raw), true
	default:
		return "", false
	}
}

// TransitionAction enumerates the course-level state machine actions.
type TransitionAction string

const (
	ActionApprove   TransitionAction = "APPROVE"
	ActionUnapprove TransitionAction = "UNAPPROVE"
	ActionFurbish   TransitionAction = "FURBISH"
	ActionReopen    TransitionAction = "REOPEN"
	ActionArchive   TransitionAction = "ARCHIVE"
	ActionUnarchive TransitionAction = "UNARCHIVE"
)

// ParseTransitionAction validates a raw action string.
func ParseTransitionAction(raw string) (TransitionAction, bool) {
	switch TransitionAction(raw) {
	case ActionApprove, ActionUnapprove, ActionFurbish, ActionReopen, ActionArchive, ActionUnarchive:
		return TransitionAction(raw), true
	default:
		return "", false
	}
}
