package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/dto"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/repository"
	appErrors "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/errors"
)

type memoryProjectStore struct {
	mu         sync.Mutex
	projects   map[string]*models.Project
	logs       []models.WorkflowLog
	beforeSwap func(id string)
	getErr     error
	swapErr    error
}

func newMemoryProjectStore(projects ...*models.Project) *memoryProjectStore {
	store := &memoryProjectStore{projects: make(map[string]*models.Project)}
	for _, p := range projects {
		if p.Version == 0 {
			p.Version = 1
		}
		store.projects[p.ID] = p.Clone()
	}
	return store
}

func (m *memoryProjectStore) Create(ctx context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if project.ID == "" {
		project.ID = "generated-id"
	}
	m.projects[project.ID] = project.Clone()
	return nil
}

func (m *memoryProjectStore) GetByID(ctx context.Context, id string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p.Clone(), nil
}

func (m *memoryProjectStore) CompareAndSwap(ctx context.Context, project *models.Project) error {
	if m.beforeSwap != nil {
		m.beforeSwap(project.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.swapLocked(project)
}

func (m *memoryProjectStore) CompareAndSwapWithLog(ctx context.Context, project *models.Project, log *models.WorkflowLog) error {
	if m.beforeSwap != nil {
		m.beforeSwap(project.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.swapLocked(project); err != nil {
		return err
	}
	log.ID = "log-" + project.ID
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memoryProjectStore) swapLocked(project *models.Project) error {
	if m.swapErr != nil {
		return m.swapErr
	}
	current, ok := m.projects[project.ID]
	if !ok || current.Version != project.Version {
		return repository.ErrStaleVersion
	}
	project.Version++
	m.projects[project.ID] = project.Clone()
	return nil
}

// bump simulates a concurrent writer.
func (m *memoryProjectStore) bump(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[id].Version++
}

func (m *memoryProjectStore) stored(id string) *models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projects[id].Clone()
}

func (m *memoryProjectStore) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]models.WorkflowLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.WorkflowLog, 0)
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].ProjectID == projectID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	events   []models.TransitionEvent
	requests []NotificationRequest
}

func (n *recordingNotifier) NotifyTransition(ctx context.Context, event models.TransitionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Notify(ctx context.Context, req NotificationRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
}

type recordingAudit struct {
	entries []*models.AuditLog
	err     error
}

func (a *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.entries = append(a.entries, log)
	return a.err
}

func strPtr(v string) *string { return &v }

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleProject(status models.ProjectStatus) *models.Project {
	return &models.Project{
		ID:          "p-1",
		Title:       "Smart Irrigation",
		Status:      status,
		MemberIDs:   []string{"s-1", "s-2"},
		AdviserID:   strPtr("a-1"),
		PanelistIDs: []string{"pn-1", "pn-2"},
		Version:     1,
	}
}

func newWorkflowFixture(project *models.Project) (*WorkflowService, *memoryProjectStore, *recordingNotifier, *recordingAudit) {
	store := newMemoryProjectStore(project)
	notifier := &recordingNotifier{}
	audit := &recordingAudit{}
	svc := NewWorkflowService(store, store, notifier, nil, zap.NewNop(),
		WithWorkflowClock(func() time.Time { return fixedNow }),
		WithWorkflowAudit(audit),
		WithWorkflowMetrics(NewMetricsService()),
	)
	return svc, store, notifier, audit
}

func actorFor(role models.UserRole) string {
	switch role {
	case models.RoleStudent:
		return "s-1"
	case models.RoleAdviser:
		return "a-1"
	case models.RolePanelist:
		return "pn-1"
	default:
		return "c-1"
	}
}

var allRoles = []models.UserRole{models.RoleStudent, models.RoleAdviser, models.RolePanelist, models.RoleCoordinator}

func allStatuses() []models.ProjectStatus {
	seen := map[models.ProjectStatus]struct{}{}
	for from, edges := range transitionTable {
		seen[from] = struct{}{}
		for to := range edges {
			seen[to] = struct{}{}
		}
	}
	out := make([]models.ProjectStatus, 0, len(seen))
	for status := range seen {
		out = append(out, status)
	}
	return out
}

func TestTransitionAdviserApprovesForDefense(t *testing.T) {
	svc, store, notifier, _ := newWorkflowFixture(sampleProject(models.StatusAdviserReview))

	result, err := svc.Transition(context.Background(), "p-1", models.RoleAdviser, "a-1", models.StatusApprovedForDefense, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApprovedForDefense, result.Project.Status)
	require.Len(t, result.Project.StatusHistory, 1)
	assert.Equal(t, models.StatusAdviserReview, result.Project.StatusHistory[0].FromStatus)
	assert.Equal(t, "a-1", result.Project.StatusHistory[0].ChangedBy)
	assert.Equal(t, fixedNow, result.Project.StatusHistory[0].ChangedAt)
	assert.EqualValues(t, 2, result.Project.Version)
	assert.Nil(t, result.Log.Comment)

	require.Len(t, store.logs, 1)
	assert.Equal(t, models.StatusApprovedForDefense, store.stored("p-1").Status)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.StatusAdviserReview, notifier.events[0].FromStatus)
}

func TestTransitionStudentNeedsUploadBeforeReview(t *testing.T) {
	svc, store, notifier, _ := newWorkflowFixture(sampleProject(models.StatusProposed))

	_, err := svc.Transition(context.Background(), "p-1", models.RoleStudent, "s-1", models.StatusAdviserReview, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Empty(t, store.logs)
	assert.Empty(t, notifier.events)
	assert.Equal(t, models.StatusProposed, store.stored("p-1").Status)
}

func TestTransitionStudentWithUploadEntersReview(t *testing.T) {
	project := sampleProject(models.StatusProposed)
	project.PrimaryDocumentRef = strPtr("doc-1")
	svc, _, _, _ := newWorkflowFixture(project)

	result, err := svc.Transition(context.Background(), "p-1", models.RoleStudent, "s-1", models.StatusAdviserReview, "ready")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAdviserReview, result.Project.Status)
	require.NotNil(t, result.Log.Comment)
	assert.Equal(t, "ready", *result.Log.Comment)
}

func TestTransitionMissingEdgeRejectedForEveryRole(t *testing.T) {
	statuses := allStatuses()
	for _, from := range statuses {
		for _, to := range statuses {
			if _, ok := AllowedRoles(from, to); ok {
				continue
			}
			for _, role := range allRoles {
				project := sampleProject(from)
				project.PrimaryDocumentRef = strPtr("doc-1")
				svc, store, _, _ := newWorkflowFixture(project)
				_, err := svc.Transition(context.Background(), "p-1", role, actorFor(role), to, "")
				require.Error(t, err, "%s -> %s as %s", from, to, role)
				assert.True(t, errors.Is(err, appErrors.ErrTransitionNotAllowed), "%s -> %s as %s", from, to, role)
				assert.Empty(t, store.logs)
			}
		}
	}
}

func TestTransitionEveryEdgeSucceedsForEveryAllowedRole(t *testing.T) {
	for from, edges := range transitionTable {
		for to, roles := range edges {
			for _, role := range roles {
				project := sampleProject(from)
				project.PrimaryDocumentRef = strPtr("doc-1")
				if from == models.StatusRevisionRequired {
					project.StatusHistory = sentBackFrom(revisionOriginFor(t, to))
				}
				svc, store, _, _ := newWorkflowFixture(project)
				result, err := svc.Transition(context.Background(), "p-1", role, actorFor(role), to, "note")
				require.NoError(t, err, "%s -> %s as %s", from, to, role)
				assert.Equal(t, to, result.Project.Status)
				assert.Len(t, result.Project.StatusHistory, len(project.StatusHistory)+1)
				assert.Len(t, store.logs, 1)
			}
		}
	}
}

func sentBackFrom(origin models.ProjectStatus) models.StatusHistory {
	return models.StatusHistory{{
		FromStatus: origin,
		ToStatus:   models.StatusRevisionRequired,
		ChangedBy:  "a-1",
		ChangedAt:  fixedNow.Add(-time.Hour),
	}}
}

func revisionOriginFor(t *testing.T, to models.ProjectStatus) models.ProjectStatus {
	t.Helper()
	if to == models.StatusProjectReset {
		return models.StatusChapter1Review
	}
	for origin, targets := range revisionReturns {
		for _, target := range targets {
			if target == to {
				return origin
			}
		}
	}
	t.Fatalf("no revision origin resumes at %s", to)
	return ""
}

func TestTransitionResubmitCannotSkipPhases(t *testing.T) {
	svc, store, _, _ := newWorkflowFixture(sampleProject(models.StatusChapter1Review))

	_, err := svc.Transition(context.Background(), "p-1", models.RoleAdviser, "a-1", models.StatusRevisionRequired, "tighten the scope")
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), "p-1", models.RoleStudent, "s-1", models.StatusChapter5Review, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Equal(t, models.StatusChapter1Review, appErrors.FromError(err).Details["revisionOrigin"])
	assert.Equal(t, models.StatusRevisionRequired, store.stored("p-1").Status)
	assert.Len(t, store.logs, 1)

	result, err := svc.Transition(context.Background(), "p-1", models.RoleStudent, "s-1", models.StatusChapter1Review, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusChapter1Review, result.Project.Status)
}

func TestTransitionFailedDefenseResumesWithinItsPhase(t *testing.T) {
	svc, store, _, _ := newWorkflowFixture(sampleProject(models.StatusProposalDefenseScheduled))

	_, err := svc.Transition(context.Background(), "p-1", models.RoleCoordinator, "c-1", models.StatusRevisionRequired, "panel asks for more data")
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), "p-1", models.RoleCoordinator, "c-1", models.StatusFinalDefenseScheduled, "")
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	result, err := svc.Transition(context.Background(), "p-1", models.RoleCoordinator, "c-1", models.StatusProposalDefenseScheduled, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProposalDefenseScheduled, result.Project.Status)
	assert.Len(t, store.logs, 2)
}

func TestTransitionLegacyRevisionStaysOnLegacyTrack(t *testing.T) {
	project := sampleProject(models.StatusRevisionRequired)
	project.PrimaryDocumentRef = strPtr("doc-1")
	project.StatusHistory = sentBackFrom(models.StatusApprovedForDefense)
	svc, _, _, _ := newWorkflowFixture(project)

	_, err := svc.Transition(context.Background(), "p-1", models.RoleStudent, "s-1", models.StatusChapter1Review, "")
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	result, err := svc.Transition(context.Background(), "p-1", models.RoleStudent, "s-1", models.StatusAdviserReview, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAdviserReview, result.Project.Status)
}

func TestTransitionRevisionWithoutHistoryOnlyResets(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture(sampleProject(models.StatusRevisionRequired))

	_, err := svc.Transition(context.Background(), "p-1", models.RoleStudent, "s-1", models.StatusChapter2Review, "")
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	result, err := svc.Transition(context.Background(), "p-1", models.RoleCoordinator, "c-1", models.StatusProjectReset, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProjectReset, result.Project.Status)
}

func TestTransitionRoleOutsideEdgeIsNotAuthorized(t *testing.T) {
	svc, store, _, _ := newWorkflowFixture(sampleProject(models.StatusChapter1Review))

	_, err := svc.Transition(context.Background(), "p-1", models.RoleCoordinator, "c-1", models.StatusChapter2Draft, "")
	assert.True(t, errors.Is(err, appErrors.ErrNotAuthorized))
	assert.Empty(t, store.logs)
}

func TestTransitionUnassignedAdviserNeverSucceeds(t *testing.T) {
	for from, edges := range transitionTable {
		for to, roles := range edges {
			allowed := false
			for _, r := range roles {
				if r == models.RoleAdviser {
					allowed = true
				}
			}
			if !allowed {
				continue
			}
			svc, store, _, _ := newWorkflowFixture(sampleProject(from))
			_, err := svc.Transition(context.Background(), "p-1", models.RoleAdviser, "a-other", to, "")
			assert.True(t, errors.Is(err, appErrors.ErrNotAuthorized), "%s -> %s", from, to)
			assert.Empty(t, store.logs)
		}
	}
}

func TestTransitionPanelistAndStudentAssignment(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture(sampleProject(models.StatusApprovedForDefense))
	_, err := svc.Transition(context.Background(), "p-1", models.RolePanelist, "pn-9", models.StatusDefended, "")
	assert.True(t, errors.Is(err, appErrors.ErrNotAuthorized))

	svc, _, _, _ = newWorkflowFixture(sampleProject(models.StatusTopicSelection))
	_, err = svc.Transition(context.Background(), "p-1", models.RoleStudent, "s-9", models.StatusTopicProposed, "")
	assert.True(t, errors.Is(err, appErrors.ErrNotAuthorized))
}

func TestTransitionRevisionCycleStampsFeedback(t *testing.T) {
	svc, store, _, _ := newWorkflowFixture(sampleProject(models.StatusChapter2Review))

	result, err := svc.Transition(context.Background(), "p-1", models.RoleAdviser, "a-1", models.StatusRevisionRequired, "expand the RRL")
	require.NoError(t, err)
	require.NotNil(t, result.Project.RevisionFeedback)
	assert.Equal(t, "expand the RRL", result.Project.RevisionFeedback.Feedback)
	assert.Equal(t, "a-1", result.Project.RevisionFeedback.RequestedBy)
	assert.Nil(t, result.Project.RevisionFeedback.AddressedAt)

	result, err = svc.Transition(context.Background(), "p-1", models.RoleStudent, "s-1", models.StatusChapter2Review, "")
	require.NoError(t, err)
	require.NotNil(t, result.Project.RevisionFeedback.AddressedAt)
	assert.Equal(t, fixedNow, *result.Project.RevisionFeedback.AddressedAt)
	assert.Len(t, result.Project.StatusHistory, 2)
	assert.Len(t, store.logs, 2)
}

func TestTransitionRevisionWithoutCommentKeepsPreviousFeedback(t *testing.T) {
	project := sampleProject(models.StatusChapter1Review)
	project.RevisionFeedback = &models.RevisionFeedback{RequestedBy: "a-1", Feedback: "old", RequestedAt: fixedNow.Add(-time.Hour)}
	svc, _, _, _ := newWorkflowFixture(project)

	result, err := svc.Transition(context.Background(), "p-1", models.RoleAdviser, "a-1", models.StatusRevisionRequired, "  ")
	require.NoError(t, err)
	assert.Equal(t, "old", result.Project.RevisionFeedback.Feedback)
}

func TestTransitionLostRaceIsRetryableConflict(t *testing.T) {
	svc, store, notifier, _ := newWorkflowFixture(sampleProject(models.StatusAdviserReview))
	store.beforeSwap = func(id string) {
		store.bump(id)
		store.beforeSwap = nil
	}

	_, err := svc.Transition(context.Background(), "p-1", models.RoleAdviser, "a-1", models.StatusApprovedForDefense, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrVersionConflict))
	assert.True(t, appErrors.FromError(err).Retryable)
	assert.Empty(t, store.logs)
	assert.Empty(t, notifier.events)
	assert.Equal(t, models.StatusAdviserReview, store.stored("p-1").Status)
}

func TestTransitionConcurrentAttemptsApplyOnce(t *testing.T) {
	svc, store, _, _ := newWorkflowFixture(sampleProject(models.StatusAdviserReview))

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transition(context.Background(), "p-1", models.RoleAdviser, "a-1", models.StatusApprovedForDefense, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		code := appErrors.FromError(err).Code
		assert.Contains(t, []string{appErrors.ErrVersionConflict.Code, appErrors.ErrTransitionNotAllowed.Code}, code)
	}
	assert.Equal(t, 1, successes)
	assert.Len(t, store.logs, 1)
	assert.Len(t, store.stored("p-1").StatusHistory, 1)
}

func TestTransitionValidationAndNotFound(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture(sampleProject(models.StatusAdviserReview))

	_, err := svc.Transition(context.Background(), "p-1", models.RoleAdviser, "a-1", models.StatusApprovedForDefense, strings.Repeat("x", MaxCommentLength+1))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Transition(context.Background(), "missing", models.RoleAdviser, "a-1", models.StatusApprovedForDefense, "")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTransitionStoreFailureIsInternal(t *testing.T) {
	svc, store, _, _ := newWorkflowFixture(sampleProject(models.StatusAdviserReview))
	store.swapErr = errors.New("connection refused")

	_, err := svc.Transition(context.Background(), "p-1", models.RoleAdviser, "a-1", models.StatusApprovedForDefense, "")
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestCreateProject(t *testing.T) {
	svc, store, _, audit := newWorkflowFixture(sampleProject(models.StatusProposed))
	coordinator := &models.JWTClaims{UserID: "c-1", Role: models.RoleCoordinator}

	project, err := svc.CreateProject(context.Background(), dto.CreateProjectRequest{
		Title:     " Library Kiosk ",
		MemberIDs: []string{"s-3", "s-4", "s-3"},
		AdviserID: strPtr("a-2"),
	}, coordinator)
	require.NoError(t, err)
	assert.Equal(t, "Library Kiosk", project.Title)
	assert.Equal(t, models.StatusTopicSelection, project.Status)
	assert.Equal(t, []string{"s-3", "s-4"}, []string(project.MemberIDs))
	assert.EqualValues(t, 1, project.Version)
	assert.False(t, project.DocumentLock.IsLocked)
	assert.NotNil(t, store.stored(project.ID))
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionProjectCreate, audit.entries[0].Action)

	legacy, err := svc.CreateProject(context.Background(), dto.CreateProjectRequest{Title: "Old", MemberIDs: []string{"s-5"}, Legacy: true}, coordinator)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProposed, legacy.Status)
}

func TestCreateProjectRejections(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture(sampleProject(models.StatusProposed))

	_, err := svc.CreateProject(context.Background(), dto.CreateProjectRequest{Title: "x", MemberIDs: []string{"s-1"}}, &models.JWTClaims{UserID: "a-1", Role: models.RoleAdviser})
	assert.True(t, errors.Is(err, appErrors.ErrNotAuthorized))

	_, err = svc.CreateProject(context.Background(), dto.CreateProjectRequest{Title: "x"}, &models.JWTClaims{UserID: "c-1", Role: models.RoleCoordinator})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateProject(context.Background(), dto.CreateProjectRequest{}, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAllowedTransitionsFiltersByRoleAndAssignment(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture(sampleProject(models.StatusChapter3Review))

	adviserMoves, err := svc.AllowedTransitions(context.Background(), "p-1", &models.JWTClaims{UserID: "a-1", Role: models.RoleAdviser})
	require.NoError(t, err)
	assert.Equal(t, []dto.AllowedTransition{
		{NextStatus: models.StatusProposalDefenseScheduled, Phase: 1},
		{NextStatus: models.StatusRevisionRequired, Phase: 0},
	}, adviserMoves)

	coordMoves, err := svc.AllowedTransitions(context.Background(), "p-1", &models.JWTClaims{UserID: "c-1", Role: models.RoleCoordinator})
	require.NoError(t, err)
	require.Len(t, coordMoves, 1)

	_, err = svc.AllowedTransitions(context.Background(), "p-1", &models.JWTClaims{UserID: "a-9", Role: models.RoleAdviser})
	assert.True(t, errors.Is(err, appErrors.ErrNotAuthorized))
}

func TestAllowedTransitionsAfterRevisionPointBack(t *testing.T) {
	project := sampleProject(models.StatusRevisionRequired)
	project.StatusHistory = sentBackFrom(models.StatusFinalDefenseScheduled)
	svc, _, _, _ := newWorkflowFixture(project)

	studentMoves, err := svc.AllowedTransitions(context.Background(), "p-1", &models.JWTClaims{UserID: "s-1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, []dto.AllowedTransition{{NextStatus: models.StatusChapter5Review, Phase: 3}}, studentMoves)

	coordMoves, err := svc.AllowedTransitions(context.Background(), "p-1", &models.JWTClaims{UserID: "c-1", Role: models.RoleCoordinator})
	require.NoError(t, err)
	assert.Equal(t, []dto.AllowedTransition{
		{NextStatus: models.StatusFinalDefenseScheduled, Phase: 3},
		{NextStatus: models.StatusProjectReset, Phase: 1},
	}, coordMoves)
}

func TestHistoryReturnsNewestFirst(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture(sampleProject(models.StatusTopicSelection))
	student := &models.JWTClaims{UserID: "s-1", Role: models.RoleStudent}

	_, err := svc.Transition(context.Background(), "p-1", models.RoleStudent, "s-1", models.StatusTopicProposed, "")
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), "p-1", models.RoleAdviser, "a-1", models.StatusTopicApproved, "")
	require.NoError(t, err)

	logs, err := svc.History(context.Background(), "p-1", student, dto.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.StatusTopicApproved, logs[0].ToStatus)

	_, err = svc.History(context.Background(), "p-1", &models.JWTClaims{UserID: "s-9", Role: models.RoleStudent}, dto.HistoryQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrNotAuthorized))
}

func TestAttachDocument(t *testing.T) {
	svc, store, _, audit := newWorkflowFixture(sampleProject(models.StatusProposed))

	project, err := svc.AttachDocument(context.Background(), "p-1", "s-1", dto.AttachDocumentRequest{DocumentRef: "doc-42"})
	require.NoError(t, err)
	require.NotNil(t, project.PrimaryDocumentRef)
	assert.Equal(t, "doc-42", *store.stored("p-1").PrimaryDocumentRef)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionDocumentAttach, audit.entries[0].Action)

	_, err = svc.Transition(context.Background(), "p-1", models.RoleStudent, "s-1", models.StatusAdviserReview, "")
	require.NoError(t, err)
}

func TestAttachDocumentRespectsLockAndMembership(t *testing.T) {
	project := sampleProject(models.StatusProposed)
	project.DocumentLock = models.DocumentLock{IsLocked: true, LockedBy: strPtr("s-2"), LockedAt: &fixedNow}
	svc, _, _, _ := newWorkflowFixture(project)

	_, err := svc.AttachDocument(context.Background(), "p-1", "s-1", dto.AttachDocumentRequest{DocumentRef: "doc-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrLockHeld))
	assert.Equal(t, "s-2", appErrors.FromError(err).Details["lockedBy"])

	_, err = svc.AttachDocument(context.Background(), "p-1", "s-2", dto.AttachDocumentRequest{DocumentRef: "doc-1"})
	require.NoError(t, err)

	_, err = svc.AttachDocument(context.Background(), "p-1", "a-1", dto.AttachDocumentRequest{DocumentRef: "doc-1"})
	assert.True(t, errors.Is(err, appErrors.ErrNotAuthorized))

	_, err = svc.AttachDocument(context.Background(), "p-1", "s-1", dto.AttachDocumentRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
