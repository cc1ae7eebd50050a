package dto

// CommentRequest appends an entry to the course comment log.
type CommentRequest struct {
	Body string `json:"body" validate:"required"`
}

// AdendaRequest creates or updates the single revision-feedback slot.
type AdendaRequest struct {
	Body string `json:"body" validate:"required"`
}

// OutcomeRequest is the admin payload for catalog maintenance.
type OutcomeRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
	GroupName   string `json:"group_name" validate:"required"`
	Active      *bool  `json:"active"`
}

// OutcomeElementRequest adds or updates one gradable sub-criterion.
type OutcomeElementRequest struct {
	Description string `json:"description" validate:"required"`
	Active      *bool  `json:"active"`
}
