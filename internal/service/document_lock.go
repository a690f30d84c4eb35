package service

import (
	"time"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	appErrors "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/errors"
)

// The functions below are the pure lock state machine. They never touch storage;
// the LockService loads the project, applies one of them and writes the result back
// with a versioned compare-and-swap.

func lockHeldError(lock models.DocumentLock) *appErrors.Error {
	details := map[string]interface{}{
		"lockedBy": lock.Holder(),
		"lockedAt": lock.LockedAt,
		"scopeId":  lock.ScopeID,
	}
	return appErrors.ErrLockHeld.WithDetails(details)
}

func acquireLock(lock models.DocumentLock, actorID string, scopeID *string, now time.Time) (models.DocumentLock, error) {
	next := lock.Clone()
	if next.IsLocked && next.Holder() != actorID {
		return lock, lockHeldError(lock)
	}
	if !next.IsLocked {
		next.ScopeID = nil
	}
	holder := actorID
	next.IsLocked = true
	next.LockedBy = &holder
	next.LockedAt = &now
	if scopeID != nil {
		scope := *scopeID
		next.ScopeID = &scope
	}
	return next, nil
}

// releaseLock clears the lock and grants every pending request. It returns the
// distinct requesters that were granted, in queue order.
func releaseLock(lock models.DocumentLock, actorID string, role models.UserRole, now time.Time) (models.DocumentLock, []string, error) {
	if !lock.IsLocked {
		return lock, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "document is not locked")
	}
	if lock.Holder() != actorID && role != models.RoleCoordinator {
		return lock, nil, appErrors.Clone(appErrors.ErrNotAuthorized, "only the lock holder or a coordinator may release the lock")
	}
	next := clearLock(lock)
	granted := make([]string, 0)
	seen := make(map[string]struct{})
	for i, req := range next.UnlockRequests {
		if req.Status != models.UnlockRequestPending {
			continue
		}
		resolved := now
		next.UnlockRequests[i].Status = models.UnlockRequestGranted
		next.UnlockRequests[i].ResolvedAt = &resolved
		if _, dup := seen[req.RequestedBy]; !dup {
			seen[req.RequestedBy] = struct{}{}
			granted = append(granted, req.RequestedBy)
		}
	}
	return next, granted, nil
}

// requestUnlock appends a pending request from actorID and returns the holder to notify.
// Repeated requests from the same member are kept as separate entries.
func requestUnlock(lock models.DocumentLock, actorID string, now time.Time) (models.DocumentLock, string, error) {
	if !lock.IsLocked {
		return lock, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "document is not locked")
	}
	holder := lock.Holder()
	if holder == actorID {
		return lock, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "lock holder should release the lock instead of requesting it")
	}
	next := lock.Clone()
	next.UnlockRequests = append(next.UnlockRequests, models.UnlockRequest{
		RequestedBy: actorID,
		RequestedAt: now,
		Status:      models.UnlockRequestPending,
	})
	return next, holder, nil
}

// overrideLock force-clears the lock. The request queue is left untouched.
func overrideLock(lock models.DocumentLock, role models.UserRole) (models.DocumentLock, string, error) {
	if role != models.RoleCoordinator {
		return lock, "", appErrors.Clone(appErrors.ErrNotAuthorized, "only a coordinator may override the lock")
	}
	if !lock.IsLocked {
		return lock, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "document is not locked")
	}
	return clearLock(lock), lock.Holder(), nil
}

// denyUnlock marks every pending request from requesterID as denied.
func denyUnlock(lock models.DocumentLock, holderID, requesterID string, now time.Time) (models.DocumentLock, error) {
	if !lock.IsLocked {
		return lock, appErrors.Clone(appErrors.ErrPreconditionFailed, "document is not locked")
	}
	if lock.Holder() != holderID {
		return lock, appErrors.Clone(appErrors.ErrNotAuthorized, "only the lock holder may deny unlock requests")
	}
	next := lock.Clone()
	denied := 0
	for i, req := range next.UnlockRequests {
		if req.RequestedBy != requesterID || req.Status != models.UnlockRequestPending {
			continue
		}
		resolved := now
		next.UnlockRequests[i].Status = models.UnlockRequestDenied
		next.UnlockRequests[i].ResolvedAt = &resolved
		denied++
	}
	if denied == 0 {
		return lock, appErrors.Clone(appErrors.ErrNotFound, "no pending unlock request from this user")
	}
	return next, nil
}

func clearLock(lock models.DocumentLock) models.DocumentLock {
	next := lock.Clone()
	next.IsLocked = false
	next.LockedBy = nil
	next.LockedAt = nil
	next.ScopeID = nil
	return next
}
