package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// ProjectStatus is the authoritative workflow position of a capstone project.
type ProjectStatus string

// Legacy single-track workflow.
const (
	StatusProposed           ProjectStatus = "PROPOSED"
	StatusAdviserReview      ProjectStatus = "ADVISER_REVIEW"
	StatusApprovedForDefense ProjectStatus = "APPROVED_FOR_DEFENSE"
	StatusDefended           ProjectStatus = "DEFENDED"
)

// Phase 1: topic and proposal chapters.
const (
	StatusTopicSelection           ProjectStatus = "TOPIC_SELECTION"
	StatusTopicProposed            ProjectStatus = "TOPIC_PROPOSED"
	StatusTopicApproved            ProjectStatus = "TOPIC_APPROVED"
	StatusChapter1Draft            ProjectStatus = "CHAPTER_1_DRAFT"
	StatusChapter1Review           ProjectStatus = "CHAPTER_1_REVIEW"
	StatusChapter2Draft            ProjectStatus = "CHAPTER_2_DRAFT"
	StatusChapter2Review           ProjectStatus = "CHAPTER_2_REVIEW"
	StatusChapter3Draft            ProjectStatus = "CHAPTER_3_DRAFT"
	StatusChapter3Review           ProjectStatus = "CHAPTER_3_REVIEW"
	StatusProposalDefenseScheduled ProjectStatus = "PROPOSAL_DEFENSE_SCHEDULED"
	StatusProposalDefended         ProjectStatus = "PROPOSAL_DEFENDED"
)

// Phase 2: implementation.
const (
	StatusImplementation  ProjectStatus = "IMPLEMENTATION"
	StatusPrototypeReview ProjectStatus = "PROTOTYPE_REVIEW"
)

// Phase 3: final manuscript chapters and defense.
const (
	StatusChapter4Draft         ProjectStatus = "CHAPTER_4_DRAFT"
	StatusChapter4Review        ProjectStatus = "CHAPTER_4_REVIEW"
	StatusChapter5Draft         ProjectStatus = "CHAPTER_5_DRAFT"
	StatusChapter5Review        ProjectStatus = "CHAPTER_5_REVIEW"
	StatusFinalDefenseScheduled ProjectStatus = "FINAL_DEFENSE_SCHEDULED"
	StatusFinalDefended         ProjectStatus = "FINAL_DEFENDED"
)

// Phase 4: archival.
const (
	StatusFinalRevision         ProjectStatus = "FINAL_REVISION"
	StatusFinalManuscriptReview ProjectStatus = "FINAL_MANUSCRIPT_REVIEW"
	StatusCompleted             ProjectStatus = "COMPLETED"
	StatusArchived              ProjectStatus = "ARCHIVED"
)

// Shared across tracks.
const (
	StatusRevisionRequired ProjectStatus = "REVISION_REQUIRED"
	StatusProjectReset     ProjectStatus = "PROJECT_RESET"
)

var statusPhase = map[ProjectStatus]int{
	StatusProposed:                 1,
	StatusAdviserReview:            1,
	StatusTopicSelection:           1,
	StatusTopicProposed:            1,
	StatusTopicApproved:            1,
	StatusChapter1Draft:            1,
	StatusChapter1Review:           1,
	StatusChapter2Draft:            1,
	StatusChapter2Review:           1,
	StatusChapter3Draft:            1,
	StatusChapter3Review:           1,
	StatusProposalDefenseScheduled: 1,
	StatusProposalDefended:         1,
	StatusProjectReset:             1,
	StatusImplementation:           2,
	StatusPrototypeReview:          2,
	StatusApprovedForDefense:       3,
	StatusDefended:                 3,
	StatusChapter4Draft:            3,
	StatusChapter4Review:           3,
	StatusChapter5Draft:            3,
	StatusChapter5Review:           3,
	StatusFinalDefenseScheduled:    3,
	StatusFinalDefended:            3,
	StatusFinalRevision:            4,
	StatusFinalManuscriptReview:    4,
	StatusCompleted:                4,
	StatusArchived:                 4,
}

// Phase returns the capstone phase (1-4). REVISION_REQUIRED and unknown values return 0.
func (s ProjectStatus) Phase() int {
	return statusPhase[s]
}

// Known reports whether s is part of the closed status set.
func (s ProjectStatus) Known() bool {
	if s == StatusRevisionRequired {
		return true
	}
	_, ok := statusPhase[s]
	return ok
}

// StatusHistoryEntry records one applied transition on the project itself.
type StatusHistoryEntry struct {
	FromStatus ProjectStatus `json:"fromStatus"`
	ToStatus   ProjectStatus `json:"toStatus"`
	ChangedBy  string        `json:"changedBy"`
	Comment    string        `json:"comment,omitempty"`
	ChangedAt  time.Time     `json:"changedAt"`
}

// StatusHistory is the append-only history column.
type StatusHistory []StatusHistoryEntry

// Value implements driver.Valuer.
func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (h *StatusHistory) Scan(src interface{}) error {
	return scanJSON(src, h)
}

// RevisionFeedback is the most recent revision request. It is replaced, not merged, per cycle.
type RevisionFeedback struct {
	RequestedBy string     `json:"requestedBy"`
	Feedback    string     `json:"feedback"`
	RequestedAt time.Time  `json:"requestedAt"`
	AddressedAt *time.Time `json:"addressedAt,omitempty"`
}

// Value implements driver.Valuer.
func (f RevisionFeedback) Value() (driver.Value, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (f *RevisionFeedback) Scan(src interface{}) error {
	return scanJSON(src, f)
}

// Project is the capstone record shared by the team, adviser, panel and coordinator.
// Status and DocumentLock are only written through the workflow and lock services.
type Project struct {
	ID                 string            `db:"id" json:"id"`
	Title              string            `db:"title" json:"title"`
	Status             ProjectStatus     `db:"status" json:"status"`
	MemberIDs          pq.StringArray    `db:"member_ids" json:"memberIds"`
	AdviserID          *string           `db:"adviser_id" json:"adviserId,omitempty"`
	PanelistIDs        pq.StringArray    `db:"panelist_ids" json:"panelistIds"`
	StatusHistory      StatusHistory     `db:"status_history" json:"statusHistory"`
	DocumentLock       DocumentLock      `db:"document_lock" json:"documentLock"`
	RevisionFeedback   *RevisionFeedback `db:"revision_feedback" json:"revisionFeedback,omitempty"`
	PrimaryDocumentRef *string           `db:"primary_document_ref" json:"primaryDocumentRef,omitempty"`
	Version            int64             `db:"version" json:"version"`
	CreatedAt          time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updatedAt"`
}

// Clone returns a deep copy so callers can mutate without touching the stored value.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.MemberIDs = append(pq.StringArray(nil), p.MemberIDs...)
	out.PanelistIDs = append(pq.StringArray(nil), p.PanelistIDs...)
	out.StatusHistory = append(StatusHistory(nil), p.StatusHistory...)
	out.DocumentLock = p.DocumentLock.Clone()
	if p.AdviserID != nil {
		v := *p.AdviserID
		out.AdviserID = &v
	}
	if p.PrimaryDocumentRef != nil {
		v := *p.PrimaryDocumentRef
		out.PrimaryDocumentRef = &v
	}
	if p.RevisionFeedback != nil {
		fb := *p.RevisionFeedback
		if fb.AddressedAt != nil {
			at := *fb.AddressedAt
			fb.AddressedAt = &at
		}
		out.RevisionFeedback = &fb
	}
	return &out
}
