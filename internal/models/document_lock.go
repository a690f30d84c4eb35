package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// UnlockRequestStatus tags an entry of the unlock negotiation queue.
type UnlockRequestStatus string

const (
	UnlockRequestPending UnlockRequestStatus = "PENDING"
	UnlockRequestGranted UnlockRequestStatus = "GRANTED"
	UnlockRequestDenied  UnlockRequestStatus = "DENIED"
)

// UnlockRequest asks the current holder to release the document lock.
type UnlockRequest struct {
	RequestedBy string              `json:"requestedBy"`
	RequestedAt time.Time           `json:"requestedAt"`
	Status      UnlockRequestStatus `json:"status"`
	ResolvedAt  *time.Time          `json:"resolvedAt,omitempty"`
}

// DocumentLock is the single-writer lock embedded in a project.
// IsLocked == false implies LockedBy, LockedAt and ScopeID are all nil.
type DocumentLock struct {
	IsLocked       bool            `json:"isLocked"`
	LockedBy       *string         `json:"lockedBy"`
	LockedAt       *time.Time      `json:"lockedAt"`
	ScopeID        *string         `json:"scopeId"`
	UnlockRequests []UnlockRequest `json:"unlockRequests"`
}

// Holder returns the holder id, or "" when unlocked.
func (l DocumentLock) Holder() string {
	if !l.IsLocked || l.LockedBy == nil {
		return ""
	}
	return *l.LockedBy
}

// PendingRequests returns the entries still awaiting an answer, in request order.
func (l DocumentLock) PendingRequests() []UnlockRequest {
	out := make([]UnlockRequest, 0, len(l.UnlockRequests))
	for _, req := range l.UnlockRequests {
		if req.Status == UnlockRequestPending {
			out = append(out, req)
		}
	}
	return out
}

// Clone copies the lock including its request queue.
func (l DocumentLock) Clone() DocumentLock {
	out := l
	if l.LockedBy != nil {
		v := *l.LockedBy
		out.LockedBy = &v
	}
	if l.LockedAt != nil {
		v := *l.LockedAt
		out.LockedAt = &v
	}
	if l.ScopeID != nil {
		v := *l.ScopeID
		out.ScopeID = &v
	}
	if l.UnlockRequests != nil {
		out.UnlockRequests = make([]UnlockRequest, len(l.UnlockRequests))
		copy(out.UnlockRequests, l.UnlockRequests)
	}
	return out
}

// Value implements driver.Valuer.
func (l DocumentLock) Value() (driver.Value, error) {
	if l.UnlockRequests == nil {
		l.UnlockRequests = []UnlockRequest{}
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *DocumentLock) Scan(src interface{}) error {
	return scanJSON(src, l)
}
