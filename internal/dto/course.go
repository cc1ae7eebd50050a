package dto

// CreateCourseRequest is the faculty payload for starting a submission.
// CrosslistNumbers carries up to four optional additional course numbers;
// blank entries are ignored.
type CreateCourseRequest struct {
	Title            string   `json:"title" validate:"required,max=255"`
	Number           string   `json:"number" validate:"required,course_number"`
	OutcomeIDs       []string `json:"outcome_ids" validate:"required,min=1,dive,required"`
	Multipass        bool     `json:"multipass"`
	CrosslistNumbers []string `json:"crosslist_numbers" validate:"max=4"`
}

// UpdateCourseRequest mirrors the create payload for step-one edits.
type UpdateCourseRequest struct {
	Title            string   `json:"title" validate:"required,max=255"`
	Number           string   `json:"number" validate:"required,course_number"`
	OutcomeIDs       []string `json:"outcome_ids" validate:"required,min=1,dive,required"`
	Multipass        bool     `json:"multipass"`
	CrosslistNumbers []string `json:"crosslist_numbers" validate:"max=4"`
}

// CourseQuery captures list filters from the dashboard.
type CourseQuery struct {
	Status      string `form:"status"`
	OutcomeID   string `form:"outcome_id"`
	Designation string `form:"designation"`
	Archived    *bool  `form:"archived"`
	Search      string `form:"search"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// WorksheetEntry is one per-element narrative edit.
type WorksheetEntry struct {
	ContentID   string `json:"content_id" validate:"required"`
	Description string `json:"description"`
}

// WorksheetRequest is the step-two payload: per-element narratives, an
// optional note from the submitter, and the submit flag that locks the
// course for review.
type WorksheetRequest struct {
	Entries []WorksheetEntry `json:"entries" validate:"dive"`
	Note    string           `json:"note"`
	Submit  bool             `json:"submit"`
}
