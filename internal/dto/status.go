package dto

// TransitionRequest applies a course-level state machine action.
type TransitionRequest struct {
	Action string `json:"action" validate:"required"`
}

// OutcomeStateRequest flips a single per-outcome approval/furbish flag.
type OutcomeStateRequest struct {
	Field string `json:"field" validate:"required"`
	Value bool   `json:"value"`
}

// DesignationRequest sets the committee designation label.
type DesignationRequest struct {
	Designation string `json:"designation" validate:"required"`
}

// TransitionResponse reports the outcome of a transition, including benign
// no-ops which are indistinguishable from success at the HTTP layer.
type TransitionResponse struct {
	Changed  bool   `json:"changed"`
	Message  string `json:"message"`
	Status   string `json:"status"`
	Promoted bool   `json:"promoted,omitempty"`
}
