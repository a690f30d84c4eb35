package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/dto"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	appErrors "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/errors"
)

const (
	lockStatusKeyPrefix = "capstone:lock:"
	lockVersionSuffix   = ":version"
	// lockVersionTTL outlives any status entry so a late fill is still judged against it.
	lockVersionTTL = 24 * time.Hour
)

type lockStore interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	CompareAndSwap(ctx context.Context, project *models.Project) error
}

type lockNotifier interface {
	Notify(ctx context.Context, req NotificationRequest)
}

type lockStatusCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// lockSnapshot is what the status cache stores: the lock plus the assignment data
// needed to authorize a cached read. Version is the project version it was read at.
type lockSnapshot struct {
	ProjectID   string              `json:"projectId"`
	Version     int64               `json:"version"`
	MemberIDs   []string            `json:"memberIds"`
	AdviserID   *string             `json:"adviserId"`
	PanelistIDs []string            `json:"panelistIds"`
	Lock        models.DocumentLock `json:"lock"`
}

// LockService arbitrates the single-writer document lock of each project.
type LockService struct {
	projects lockStore
	notifier lockNotifier
	audit    auditLogger
	cache    lockStatusCache
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// LockServiceOption configures the service.
type LockServiceOption func(*LockService)

// WithLockStatusCache serves Status from cache for ttl. Every mutation invalidates the entry.
func WithLockStatusCache(cache lockStatusCache, ttl time.Duration) LockServiceOption {
	return func(s *LockService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithLockClock overrides the time source.
func WithLockClock(now func() time.Time) LockServiceOption {
	return func(s *LockService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLockMetrics attaches lock operation counters.
func WithLockMetrics(metrics *MetricsService) LockServiceOption {
	return func(s *LockService) {
		s.metrics = metrics
	}
}

// NewLockService constructs the lock manager.
func NewLockService(projects lockStore, notifier lockNotifier, audit auditLogger, logger *zap.Logger, opts ...LockServiceOption) *LockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &LockService{
		projects: projects,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Acquire takes the lock for a team member, or refreshes it when the member already holds it.
// While someone else holds it the call fails with LOCK_HELD carrying the holder.
func (s *LockService) Acquire(ctx context.Context, projectID, actorID string, scopeID *string) (status *dto.LockStatus, err error) {
	defer func() { s.metrics.RecordLockOperation("acquire", metricResult(err)) }()

	project, err := loadProject(ctx, s.projects, projectID)
	if err != nil {
		return nil, err
	}
	if !IsMember(project, actorID) {
		return nil, appErrors.Clone(appErrors.ErrNotAuthorized, "only team members may lock the document")
	}
	next, err := acquireLock(project.DocumentLock, actorID, scopeID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, project, next); err != nil {
		return nil, err
	}
	return toLockStatus(project.ID, project.DocumentLock, actorID), nil
}

// Release clears the lock and grants every pending unlock request. Holder or coordinator only.
// A holder whose lock is released by a coordinator is told so.
func (s *LockService) Release(ctx context.Context, projectID, actorID string, actorRole models.UserRole) (err error) {
	defer func() { s.metrics.RecordLockOperation("release", metricResult(err)) }()

	project, err := loadProject(ctx, s.projects, projectID)
	if err != nil {
		return err
	}
	previousHolder := project.DocumentLock.Holder()
	next, granted, err := releaseLock(project.DocumentLock, actorID, actorRole, s.now())
	if err != nil {
		return err
	}
	if err := s.commit(ctx, project, next); err != nil {
		return err
	}
	s.notify(ctx, NotificationRequest{
		RecipientIDs:     lo.Without(granted, actorID),
		Kind:             models.NotificationLockReleased,
		Title:            "Document unlocked",
		Message:          "Your unlock request was granted. The document is now available for editing.",
		RelatedProjectID: project.ID,
		Metadata:         map[string]interface{}{"releasedBy": actorID, "previousHolder": previousHolder},
	})
	if previousHolder != actorID {
		s.notify(ctx, NotificationRequest{
			RecipientIDs:     lo.Compact([]string{previousHolder}),
			Kind:             models.NotificationLockReleased,
			Title:            "Document lock released",
			Message:          "A coordinator released your lock on the document.",
			RelatedProjectID: project.ID,
			Metadata:         map[string]interface{}{"releasedBy": actorID},
		})
		emitAudit(ctx, s.audit, s.logger, "lock-service", actorID, models.AuditActionLockRelease, project.ID,
			map[string]interface{}{"lockedBy": previousHolder}, nil)
	}
	return nil
}

// RequestUnlock asks the current holder to release the lock.
func (s *LockService) RequestUnlock(ctx context.Context, projectID, actorID string) (err error) {
	defer func() { s.metrics.RecordLockOperation("request_unlock", metricResult(err)) }()

	project, err := loadProject(ctx, s.projects, projectID)
	if err != nil {
		return err
	}
	if !IsMember(project, actorID) {
		return appErrors.Clone(appErrors.ErrNotAuthorized, "only team members may request an unlock")
	}
	next, holder, err := requestUnlock(project.DocumentLock, actorID, s.now())
	if err != nil {
		return err
	}
	if err := s.commit(ctx, project, next); err != nil {
		return err
	}
	s.notify(ctx, NotificationRequest{
		RecipientIDs:     []string{holder},
		Kind:             models.NotificationLockReleaseRequest,
		Title:            "Unlock requested",
		Message:          "A teammate is asking you to release the document lock.",
		RelatedProjectID: project.ID,
		Metadata:         map[string]interface{}{"requestedBy": actorID},
	})
	return nil
}

// Override force-clears the lock. Coordinator only. Only the previous holder is told;
// queued requests stay pending.
func (s *LockService) Override(ctx context.Context, projectID, actorID string, actorRole models.UserRole) (err error) {
	defer func() { s.metrics.RecordLockOperation("override", metricResult(err)) }()

	if actorRole != models.RoleCoordinator {
		return appErrors.Clone(appErrors.ErrNotAuthorized, "only a coordinator may override the lock")
	}
	project, err := loadProject(ctx, s.projects, projectID)
	if err != nil {
		return err
	}
	next, previousHolder, err := overrideLock(project.DocumentLock, actorRole)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, project, next); err != nil {
		return err
	}
	s.notify(ctx, NotificationRequest{
		RecipientIDs:     lo.Without(lo.Compact([]string{previousHolder}), actorID),
		Kind:             models.NotificationLockOverride,
		Title:            "Document lock overridden",
		Message:          "A coordinator released your lock on the document.",
		RelatedProjectID: project.ID,
		Metadata:         map[string]interface{}{"overriddenBy": actorID},
	})
	emitAudit(ctx, s.audit, s.logger, "lock-service", actorID, models.AuditActionLockOverride, project.ID,
		map[string]interface{}{"lockedBy": previousHolder}, nil)
	return nil
}

// DenyUnlock lets the holder turn down a requester's pending requests.
func (s *LockService) DenyUnlock(ctx context.Context, projectID, holderID, requesterID string) (err error) {
	defer func() { s.metrics.RecordLockOperation("deny_unlock", metricResult(err)) }()

	project, err := loadProject(ctx, s.projects, projectID)
	if err != nil {
		return err
	}
	next, err := denyUnlock(project.DocumentLock, holderID, requesterID, s.now())
	if err != nil {
		return err
	}
	if err := s.commit(ctx, project, next); err != nil {
		return err
	}
	s.notify(ctx, NotificationRequest{
		RecipientIDs:     []string{requesterID},
		Kind:             models.NotificationLockReleaseDenied,
		Title:            "Unlock request declined",
		Message:          "The lock holder is still editing the document.",
		RelatedProjectID: project.ID,
		Metadata:         map[string]interface{}{"holderId": holderID},
	})
	return nil
}

// Status returns the current lock state for anyone assigned to the project.
func (s *LockService) Status(ctx context.Context, projectID string, actorRole models.UserRole, actorID string) (*dto.LockStatus, error) {
	snapshot, err := s.snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	access := &models.Project{
		ID:          snapshot.ProjectID,
		MemberIDs:   snapshot.MemberIDs,
		AdviserID:   snapshot.AdviserID,
		PanelistIDs: snapshot.PanelistIDs,
	}
	if !CanAct(actorRole, actorID, access) {
		return nil, appErrors.ErrNotAuthorized
	}
	return toLockStatus(snapshot.ProjectID, snapshot.Lock, actorID), nil
}

func (s *LockService) snapshot(ctx context.Context, projectID string) (*lockSnapshot, error) {
	key := lockStatusKeyPrefix + projectID
	if s.cache != nil {
		var cached lockSnapshot
		if hit, _ := s.cache.Get(ctx, key, &cached); hit && cached.ProjectID == projectID && s.current(ctx, &cached) {
			return &cached, nil
		}
	}
	project, err := loadProject(ctx, s.projects, projectID)
	if err != nil {
		return nil, err
	}
	snapshot := &lockSnapshot{
		ProjectID:   project.ID,
		Version:     project.Version,
		MemberIDs:   project.MemberIDs,
		AdviserID:   project.AdviserID,
		PanelistIDs: project.PanelistIDs,
		Lock:        project.DocumentLock,
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, snapshot, s.cacheTTL)
	}
	return snapshot, nil
}

// current reports whether a cached snapshot is at least as new as the last committed
// lock write. A status read that loaded the project before a mutation may store its
// snapshot after the mutation invalidated the key; the version marker rejects it.
func (s *LockService) current(ctx context.Context, snapshot *lockSnapshot) bool {
	var floor int64
	hit, err := s.cache.Get(ctx, lockStatusKeyPrefix+snapshot.ProjectID+lockVersionSuffix, &floor)
	if err != nil {
		return false
	}
	return !hit || snapshot.Version >= floor
}

// commit writes next into project with a versioned swap, raises the version marker and
// drops the cached status.
func (s *LockService) commit(ctx context.Context, project *models.Project, next models.DocumentLock) error {
	previous := project.DocumentLock
	project.DocumentLock = next
	if err := s.projects.CompareAndSwap(ctx, project); err != nil {
		project.DocumentLock = previous
		return writeError(err, "failed to update document lock")
	}
	if s.cache != nil {
		key := lockStatusKeyPrefix + project.ID
		if err := s.cache.Set(ctx, key+lockVersionSuffix, project.Version, lockVersionTTL); err != nil {
			s.logger.Warn("lock version marker not stored", zap.String("project_id", project.ID), zap.Error(err))
		}
		_ = s.cache.Invalidate(ctx, key)
	}
	return nil
}

func (s *LockService) notify(ctx context.Context, req NotificationRequest) {
	if s.notifier == nil || len(req.RecipientIDs) == 0 {
		return
	}
	s.notifier.Notify(ctx, req)
}

func toLockStatus(projectID string, lock models.DocumentLock, actorID string) *dto.LockStatus {
	requests := lock.UnlockRequests
	if requests == nil {
		requests = []models.UnlockRequest{}
	}
	return &dto.LockStatus{
		ProjectID:      projectID,
		IsLocked:       lock.IsLocked,
		LockedBy:       lock.LockedBy,
		LockedAt:       lock.LockedAt,
		ScopeID:        lock.ScopeID,
		HeldByCaller:   lock.IsLocked && lock.Holder() == actorID,
		UnlockRequests: requests,
	}
}
