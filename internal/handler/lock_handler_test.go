package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/dto"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	appErrors "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/errors"
)

type lockServiceMock struct {
	acquireErr  error
	gotScope    *string
	gotRole     models.UserRole
	gotActor    string
	gotDenied   string
	overrideErr error
}

func (m *lockServiceMock) Status(ctx context.Context, projectID string, actorRole models.UserRole, actorID string) (*dto.LockStatus, error) {
	return &dto.LockStatus{ProjectID: projectID, UnlockRequests: []models.UnlockRequest{}}, nil
}

func (m *lockServiceMock) Acquire(ctx context.Context, projectID, actorID string, scopeID *string) (*dto.LockStatus, error) {
	m.gotActor, m.gotScope = actorID, scopeID
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	return &dto.LockStatus{ProjectID: projectID, IsLocked: true, LockedBy: &actorID, HeldByCaller: true}, nil
}

func (m *lockServiceMock) Release(ctx context.Context, projectID, actorID string, actorRole models.UserRole) error {
	m.gotActor, m.gotRole = actorID, actorRole
	return nil
}

func (m *lockServiceMock) RequestUnlock(ctx context.Context, projectID, actorID string) error {
	m.gotActor = actorID
	return nil
}

func (m *lockServiceMock) DenyUnlock(ctx context.Context, projectID, holderID, requesterID string) error {
	m.gotActor, m.gotDenied = holderID, requesterID
	return nil
}

func (m *lockServiceMock) Override(ctx context.Context, projectID, actorID string, actorRole models.UserRole) error {
	m.gotActor, m.gotRole = actorID, actorRole
	return m.overrideErr
}

var studentA = &models.JWTClaims{UserID: "s-1", Role: models.RoleStudent}

func TestLockHandlerAcquireWithoutBody(t *testing.T) {
	svc := &lockServiceMock{}
	c, w := newTestContext(http.MethodPost, "/projects/p-1/lock", nil, studentA)

	NewLockHandler(svc).Acquire(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-1", svc.gotActor)
	assert.Nil(t, svc.gotScope)
}

func TestLockHandlerAcquireWithScope(t *testing.T) {
	svc := &lockServiceMock{}
	c, w := newTestContext(http.MethodPost, "/projects/p-1/lock", `{"scopeId":"chapter-2"}`, studentA)

	NewLockHandler(svc).Acquire(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.gotScope)
	assert.Equal(t, "chapter-2", *svc.gotScope)
}

func TestLockHandlerAcquireConflictCarriesHolder(t *testing.T) {
	lockedAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	holder := "s-1"
	svc := &lockServiceMock{acquireErr: appErrors.ErrLockHeld.WithDetails(map[string]interface{}{"lockedBy": holder, "lockedAt": &lockedAt})}
	c, w := newTestContext(http.MethodPost, "/projects/p-1/lock", nil, &models.JWTClaims{UserID: "s-2", Role: models.RoleStudent})

	NewLockHandler(svc).Acquire(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, w.Header().Get("Retry-After"))
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "LOCK_HELD", errBody["code"])
	assert.Equal(t, "s-1", errBody["details"].(map[string]interface{})["lockedBy"])
}

func TestLockHandlerReleaseAndRequest(t *testing.T) {
	svc := &lockServiceMock{}
	h := NewLockHandler(svc)

	c, w := newTestContext(http.MethodDelete, "/projects/p-1/lock", nil, studentA)
	h.Release(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, models.RoleStudent, svc.gotRole)

	c, w = newTestContext(http.MethodPost, "/projects/p-1/lock/requests", nil, &models.JWTClaims{UserID: "s-2", Role: models.RoleStudent})
	h.RequestUnlock(c)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "s-2", svc.gotActor)
}

func TestLockHandlerDenyRequiresRequester(t *testing.T) {
	svc := &lockServiceMock{}
	h := NewLockHandler(svc)

	c, w := newTestContext(http.MethodPost, "/projects/p-1/lock/requests/deny", `{}`, studentA)
	h.DenyUnlock(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodPost, "/projects/p-1/lock/requests/deny", dto.DenyUnlockRequest{RequesterID: "s-2"}, studentA)
	h.DenyUnlock(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "s-1", svc.gotActor)
	assert.Equal(t, "s-2", svc.gotDenied)
}

func TestLockHandlerOverrideErrors(t *testing.T) {
	svc := &lockServiceMock{overrideErr: appErrors.Clone(appErrors.ErrNotAuthorized, "only a coordinator may override the lock")}
	c, w := newTestContext(http.MethodPost, "/projects/p-1/lock/override", nil, adviserClaims)

	NewLockHandler(svc).Override(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	svc.overrideErr = errors.New("db down")
	c, w = newTestContext(http.MethodPost, "/projects/p-1/lock/override", nil, &models.JWTClaims{UserID: "c-1", Role: models.RoleCoordinator})
	NewLockHandler(svc).Override(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLockHandlerStatus(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/projects/p-1/lock", nil, studentA)
	NewLockHandler(&lockServiceMock{}).Status(c)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["isLocked"])
	assert.Equal(t, []interface{}{}, data["unlockRequests"])
}
