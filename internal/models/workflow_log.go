package models

import "time"

// WorkflowLog is the write-once audit record of an executed transition.
type WorkflowLog struct {
	ID         string        `db:"id" json:"id"`
	ProjectID  string        `db:"project_id" json:"projectId"`
	UserID     string        `db:"user_id" json:"userId"`
	FromStatus ProjectStatus `db:"from_status" json:"fromStatus"`
	ToStatus   ProjectStatus `db:"to_status" json:"toStatus"`
	Comment    *string       `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"timestamp"`
}

// TransitionEvent is handed to notification fan-out after a transition commits.
type TransitionEvent struct {
	Project    *Project
	FromStatus ProjectStatus
	ToStatus   ProjectStatus
	ActorID    string
	ActorRole  UserRole
	Comment    string
}
