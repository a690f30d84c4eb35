package models

import "time"

// NotificationKind classifies a notification for clients.
type NotificationKind string

const (
	NotificationStatusChanged      NotificationKind = "STATUS_CHANGED"
	NotificationRevisionRequested  NotificationKind = "REVISION_REQUESTED"
	NotificationReviewRequested    NotificationKind = "REVIEW_REQUESTED"
	NotificationDefenseScheduled   NotificationKind = "DEFENSE_SCHEDULED"
	NotificationLockReleaseRequest NotificationKind = "LOCK_RELEASE_REQUESTED"
	NotificationLockReleased       NotificationKind = "LOCK_RELEASED"
	NotificationLockReleaseDenied  NotificationKind = "LOCK_RELEASE_DENIED"
	NotificationLockOverride       NotificationKind = "LOCK_OVERRIDE"
)

// Notification is a persisted per-recipient message.
type Notification struct {
	ID               string           `db:"id" json:"id"`
	RecipientID      string           `db:"recipient_id" json:"recipientId"`
	Kind             NotificationKind `db:"kind" json:"kind"`
	Title            string           `db:"title" json:"title"`
	Message          string           `db:"message" json:"message"`
	RelatedProjectID *string          `db:"related_project_id" json:"relatedProjectId,omitempty"`
	Metadata         JSONMap          `db:"metadata" json:"metadata,omitempty"`
	ReadAt           *time.Time       `db:"read_at" json:"readAt,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
}

// NotificationFilter constrains listing queries.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Limit       int
	Offset      int
}
