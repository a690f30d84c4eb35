package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/dto"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/repository"
	appErrors "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/errors"
)

// MaxCommentLength bounds transition comments, counted in runes.
const MaxCommentLength = 2000

type projectStore interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	CompareAndSwap(ctx context.Context, project *models.Project) error
	CompareAndSwapWithLog(ctx context.Context, project *models.Project, log *models.WorkflowLog) error
}

type workflowLogReader interface {
	ListByProject(ctx context.Context, projectID string, limit, offset int) ([]models.WorkflowLog, error)
}

type transitionNotifier interface {
	NotifyTransition(ctx context.Context, event models.TransitionEvent)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// WorkflowService is the state machine engine for capstone projects.
type WorkflowService struct {
	projects  projectStore
	logs      workflowLogReader
	notifier  transitionNotifier
	audit     auditLogger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// WorkflowServiceOption configures the service.
type WorkflowServiceOption func(*WorkflowService)

// WithWorkflowClock overrides the time source.
func WithWorkflowClock(now func() time.Time) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWorkflowMetrics attaches transition counters.
func WithWorkflowMetrics(metrics *MetricsService) WorkflowServiceOption {
	return func(s *WorkflowService) {
		s.metrics = metrics
	}
}

// WithWorkflowAudit attaches the administrative audit sink.
func WithWorkflowAudit(audit auditLogger) WorkflowServiceOption {
	return func(s *WorkflowService) {
		s.audit = audit
	}
}

// NewWorkflowService constructs the engine with defaults.
func NewWorkflowService(projects projectStore, logs workflowLogReader, notifier transitionNotifier, validate *validator.Validate, logger *zap.Logger, opts ...WorkflowServiceOption) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &WorkflowService{
		projects:  projects,
		logs:      logs,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Transition moves a project to nextStatus on behalf of the actor. Rejections leave the
// project and its log untouched; a lost race surfaces as a retryable VERSION_CONFLICT.
func (s *WorkflowService) Transition(ctx context.Context, projectID string, actorRole models.UserRole, actorID string, nextStatus models.ProjectStatus, comment string) (*dto.TransitionResult, error) {
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("comment must be at most %d characters", MaxCommentLength))
	}
	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	from := project.Status

	result, err := s.applyTransition(ctx, project, actorRole, actorID, nextStatus, comment)
	s.metrics.RecordTransition(string(from), string(nextStatus), metricResult(err))
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyTransition(ctx, models.TransitionEvent{
			Project:    result.Project.Clone(),
			FromStatus: from,
			ToStatus:   nextStatus,
			ActorID:    actorID,
			ActorRole:  actorRole,
			Comment:    comment,
		})
	}
	s.logger.Info("project transitioned",
		zap.String("project_id", project.ID),
		zap.String("from", string(from)),
		zap.String("to", string(nextStatus)),
		zap.String("actor_id", actorID),
	)
	return result, nil
}

func (s *WorkflowService) applyTransition(ctx context.Context, project *models.Project, actorRole models.UserRole, actorID string, nextStatus models.ProjectStatus, comment string) (*dto.TransitionResult, error) {
	from := project.Status
	roles, ok := AllowedRoles(from, nextStatus)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrTransitionNotAllowed, fmt.Sprintf("cannot move from %s to %s", from, nextStatus))
	}
	if !lo.Contains(roles, actorRole) {
		return nil, appErrors.Clone(appErrors.ErrNotAuthorized, fmt.Sprintf("role %s may not move from %s to %s", actorRole, from, nextStatus))
	}
	if !CanAct(actorRole, actorID, project) {
		return nil, appErrors.Clone(appErrors.ErrNotAuthorized, "actor is not assigned to this project")
	}
	if actorRole == models.RoleStudent && nextStatus == models.StatusAdviserReview && !hasPrimaryDocument(project) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "upload a document before requesting review")
	}
	if from == models.StatusRevisionRequired && !ReturnsFromRevision(project.StatusHistory, nextStatus) {
		origin, _ := RevisionOrigin(project.StatusHistory)
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("revision requested from %q cannot resume at %s", origin, nextStatus)).
			WithDetails(map[string]interface{}{"revisionOrigin": origin})
	}

	now := s.now()
	updated := project.Clone()
	updated.Status = nextStatus
	updated.StatusHistory = append(updated.StatusHistory, models.StatusHistoryEntry{
		FromStatus: from,
		ToStatus:   nextStatus,
		ChangedBy:  actorID,
		Comment:    comment,
		ChangedAt:  now,
	})
	if nextStatus == models.StatusRevisionRequired && comment != "" {
		updated.RevisionFeedback = &models.RevisionFeedback{
			RequestedBy: actorID,
			Feedback:    comment,
			RequestedAt: now,
		}
	}
	if from == models.StatusRevisionRequired && IsReviewStatus(nextStatus) && updated.RevisionFeedback != nil {
		addressed := now
		updated.RevisionFeedback.AddressedAt = &addressed
	}

	entry := &models.WorkflowLog{
		ProjectID:  updated.ID,
		UserID:     actorID,
		FromStatus: from,
		ToStatus:   nextStatus,
		Comment:    optionalString(comment),
		CreatedAt:  now,
	}
	if err := s.projects.CompareAndSwapWithLog(ctx, updated, entry); err != nil {
		return nil, writeError(err, "failed to persist transition")
	}
	return &dto.TransitionResult{Project: updated, Log: entry}, nil
}

// CreateProject opens a project at the start of its track. Coordinators only.
func (s *WorkflowService) CreateProject(ctx context.Context, req dto.CreateProjectRequest, actor *models.JWTClaims) (*models.Project, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleCoordinator {
		return nil, appErrors.Clone(appErrors.ErrNotAuthorized, "only coordinators may create projects")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	status := models.StatusTopicSelection
	if req.Legacy {
		status = models.StatusProposed
	}
	now := s.now()
	project := &models.Project{
		Title:         strings.TrimSpace(req.Title),
		Status:        status,
		MemberIDs:     lo.Uniq(req.MemberIDs),
		AdviserID:     req.AdviserID,
		PanelistIDs:   lo.Uniq(req.PanelistIDs),
		StatusHistory: models.StatusHistory{},
		DocumentLock:  models.DocumentLock{UnlockRequests: []models.UnlockRequest{}},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if project.PanelistIDs == nil {
		project.PanelistIDs = []string{}
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionProjectCreate, project.ID, nil, project)
	return project, nil
}

// GetProject returns a project the actor may see.
func (s *WorkflowService) GetProject(ctx context.Context, projectID string, actor *models.JWTClaims) (*models.Project, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !CanAct(actor.Role, actor.UserID, project) {
		return nil, appErrors.ErrNotAuthorized
	}
	return project, nil
}

// AllowedTransitions lists the moves the actor can currently make on the project.
func (s *WorkflowService) AllowedTransitions(ctx context.Context, projectID string, actor *models.JWTClaims) ([]dto.AllowedTransition, error) {
	project, err := s.GetProject(ctx, projectID, actor)
	if err != nil {
		return nil, err
	}
	next := NextStatuses(project.Status, actor.Role)
	if project.Status == models.StatusRevisionRequired {
		next = lo.Filter(next, func(status models.ProjectStatus, _ int) bool {
			return ReturnsFromRevision(project.StatusHistory, status)
		})
	}
	return lo.Map(next, func(status models.ProjectStatus, _ int) dto.AllowedTransition {
		return dto.AllowedTransition{NextStatus: status, Phase: status.Phase()}
	}), nil
}

// History returns the durable transition log, newest first.
func (s *WorkflowService) History(ctx context.Context, projectID string, actor *models.JWTClaims, query dto.HistoryQuery) ([]models.WorkflowLog, error) {
	if _, err := s.GetProject(ctx, projectID, actor); err != nil {
		return nil, err
	}
	logs, err := s.logs.ListByProject(ctx, projectID, query.Limit, query.Offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workflow history")
	}
	if logs == nil {
		logs = []models.WorkflowLog{}
	}
	return logs, nil
}

// AttachDocument records the primary document reference uploaded by a team member.
// A member cannot attach while another member holds the document lock.
func (s *WorkflowService) AttachDocument(ctx context.Context, projectID, actorID string, req dto.AttachDocumentRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !IsMember(project, actorID) {
		return nil, appErrors.Clone(appErrors.ErrNotAuthorized, "only team members may attach documents")
	}
	if project.DocumentLock.IsLocked && project.DocumentLock.Holder() != actorID {
		return nil, lockHeldError(project.DocumentLock)
	}
	previous := project.PrimaryDocumentRef
	updated := project.Clone()
	ref := strings.TrimSpace(req.DocumentRef)
	updated.PrimaryDocumentRef = &ref
	if err := s.projects.CompareAndSwap(ctx, updated); err != nil {
		return nil, writeError(err, "failed to attach document")
	}
	s.emitAudit(ctx, actorID, models.AuditActionDocumentAttach, project.ID,
		map[string]interface{}{"primaryDocumentRef": previous},
		map[string]interface{}{"primaryDocumentRef": ref},
	)
	return updated, nil
}

func (s *WorkflowService) load(ctx context.Context, projectID string) (*models.Project, error) {
	return loadProject(ctx, s.projects, projectID)
}

func writeError(err error, message string) error {
	if errors.Is(err, repository.ErrStaleVersion) {
		return appErrors.Clone(appErrors.ErrVersionConflict, "")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *WorkflowService) emitAudit(ctx context.Context, actorID, action, projectID string, oldValues, newValues interface{}) {
	emitAudit(ctx, s.audit, s.logger, "workflow-service", actorID, action, projectID, oldValues, newValues)
}

type projectGetter interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
}

func loadProject(ctx context.Context, store projectGetter, projectID string) (*models.Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
	}
	project, err := store.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return project, nil
}

func emitAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, agent, actorID, action, projectID string, oldValues, newValues interface{}) {
	if audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "project",
		ResourceID: &projectID,
		IPAddress:  "system",
		UserAgent:  agent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if oldValues != nil {
		if raw, err := json.Marshal(oldValues); err == nil {
			entry.OldValues = raw
		}
	}
	if newValues != nil {
		if raw, err := json.Marshal(newValues); err == nil {
			entry.NewValues = raw
		}
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func hasPrimaryDocument(project *models.Project) bool {
	return project.PrimaryDocumentRef != nil && strings.TrimSpace(*project.PrimaryDocumentRef) != ""
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}

func appErrorCode(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
