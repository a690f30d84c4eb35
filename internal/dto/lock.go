package dto

import (
	"time"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
)

// AcquireLockRequest optionally narrows the lock to a sub-document scope.
type AcquireLockRequest struct {
	ScopeID *string `json:"scopeId"`
}

// DenyUnlockRequest rejects a pending release request.
type DenyUnlockRequest struct {
	RequesterID string `json:"requesterId" binding:"required"`
}

// LockStatus is the read view of a project's document lock.
type LockStatus struct {
	ProjectID      string                 `json:"projectId"`
	IsLocked       bool                   `json:"isLocked"`
	LockedBy       *string                `json:"lockedBy"`
	LockedAt       *time.Time             `json:"lockedAt"`
	ScopeID        *string                `json:"scopeId"`
	HeldByCaller   bool                   `json:"heldByCaller"`
	UnlockRequests []models.UnlockRequest `json:"unlockRequests"`
}
