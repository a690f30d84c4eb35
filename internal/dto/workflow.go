package dto

import "github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"

// CreateProjectRequest opens a new capstone project.
type CreateProjectRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	MemberIDs   []string `json:"memberIds" validate:"required,min=1,dive,required"`
	AdviserID   *string  `json:"adviserId" validate:"omitempty,min=1"`
	PanelistIDs []string `json:"panelistIds" validate:"omitempty,dive,required"`
	// Legacy starts the project on the single-track PROPOSED path.
	Legacy bool `json:"legacy"`
}

// TransitionRequest asks the state machine to move a project.
type TransitionRequest struct {
	NextStatus models.ProjectStatus `json:"nextStatus" binding:"required"`
	Comment    string               `json:"comment"`
}

// TransitionResult is returned after a committed transition.
type TransitionResult struct {
	Project *models.Project     `json:"project"`
	Log     *models.WorkflowLog `json:"log"`
}

// AttachDocumentRequest records the primary document reference.
type AttachDocumentRequest struct {
	DocumentRef string `json:"documentRef" validate:"required,max=512"`
}

// AllowedTransition describes a move the caller may currently make.
type AllowedTransition struct {
	NextStatus models.ProjectStatus `json:"nextStatus"`
	Phase      int                  `json:"phase"`
}

// HistoryQuery pages workflow log reads.
type HistoryQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
