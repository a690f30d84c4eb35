package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/dto"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/middleware"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	appErrors "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/errors"
)

type workflowServiceMock struct {
	transitionErr error
	gotRole       models.UserRole
	gotActor      string
	gotNext       models.ProjectStatus
	gotComment    string
	gotHistory    dto.HistoryQuery
	gotCreate     dto.CreateProjectRequest
}

func (m *workflowServiceMock) CreateProject(ctx context.Context, req dto.CreateProjectRequest, actor *models.JWTClaims) (*models.Project, error) {
	m.gotCreate = req
	return &models.Project{ID: "p-1", Title: req.Title, Status: models.StatusTopicSelection, Version: 1}, nil
}

func (m *workflowServiceMock) GetProject(ctx context.Context, projectID string, actor *models.JWTClaims) (*models.Project, error) {
	if projectID != "p-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
	}
	return &models.Project{ID: projectID, Status: models.StatusProposed}, nil
}

func (m *workflowServiceMock) Transition(ctx context.Context, projectID string, actorRole models.UserRole, actorID string, nextStatus models.ProjectStatus, comment string) (*dto.TransitionResult, error) {
	m.gotRole, m.gotActor, m.gotNext, m.gotComment = actorRole, actorID, nextStatus, comment
	if m.transitionErr != nil {
		return nil, m.transitionErr
	}
	return &dto.TransitionResult{Project: &models.Project{ID: projectID, Status: nextStatus, Version: 2}}, nil
}

func (m *workflowServiceMock) AllowedTransitions(ctx context.Context, projectID string, actor *models.JWTClaims) ([]dto.AllowedTransition, error) {
	return []dto.AllowedTransition{{NextStatus: models.StatusAdviserReview, Phase: 1}}, nil
}

func (m *workflowServiceMock) History(ctx context.Context, projectID string, actor *models.JWTClaims, query dto.HistoryQuery) ([]models.WorkflowLog, error) {
	m.gotHistory = query
	return []models.WorkflowLog{}, nil
}

func (m *workflowServiceMock) AttachDocument(ctx context.Context, projectID, actorID string, req dto.AttachDocumentRequest) (*models.Project, error) {
	ref := req.DocumentRef
	return &models.Project{ID: projectID, PrimaryDocumentRef: &ref}, nil
}

func newTestContext(method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "p-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

var adviserClaims = &models.JWTClaims{UserID: "a-1", Role: models.RoleAdviser}

func TestWorkflowHandlerTransition(t *testing.T) {
	svc := &workflowServiceMock{}
	h := NewWorkflowHandler(svc)
	c, w := newTestContext(http.MethodPost, "/projects/p-1/transitions", dto.TransitionRequest{NextStatus: models.StatusApprovedForDefense, Comment: "ready"}, adviserClaims)

	h.Transition(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleAdviser, svc.gotRole)
	assert.Equal(t, "a-1", svc.gotActor)
	assert.Equal(t, models.StatusApprovedForDefense, svc.gotNext)
	assert.Equal(t, "ready", svc.gotComment)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "APPROVED_FOR_DEFENSE", data["project"].(map[string]interface{})["status"])
}

func TestWorkflowHandlerTransitionConflictIsRetryable(t *testing.T) {
	h := NewWorkflowHandler(&workflowServiceMock{transitionErr: appErrors.Clone(appErrors.ErrVersionConflict, "")})
	c, w := newTestContext(http.MethodPost, "/projects/p-1/transitions", dto.TransitionRequest{NextStatus: models.StatusApprovedForDefense}, adviserClaims)

	h.Transition(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "0", w.Header().Get("Retry-After"))
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "VERSION_CONFLICT", errBody["code"])
	assert.Equal(t, true, errBody["retryable"])
}

func TestWorkflowHandlerTransitionRequiresNextStatus(t *testing.T) {
	svc := &workflowServiceMock{}
	c, w := newTestContext(http.MethodPost, "/projects/p-1/transitions", `{"comment":"x"}`, adviserClaims)

	NewWorkflowHandler(svc).Transition(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.gotActor)
}

func TestWorkflowHandlerRequiresClaims(t *testing.T) {
	h := NewWorkflowHandler(&workflowServiceMock{})
	for name, fn := range map[string]gin.HandlerFunc{
		"get":        h.Get,
		"transition": h.Transition,
		"allowed":    h.AllowedTransitions,
		"history":    h.History,
		"document":   h.AttachDocument,
		"create":     h.Create,
	} {
		c, w := newTestContext(http.MethodGet, "/projects/p-1", nil, nil)
		fn(c)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}
}

func TestWorkflowHandlerCreate(t *testing.T) {
	svc := &workflowServiceMock{}
	coordinator := &models.JWTClaims{UserID: "c-1", Role: models.RoleCoordinator}
	c, w := newTestContext(http.MethodPost, "/projects", dto.CreateProjectRequest{Title: "Smart Irrigation", MemberIDs: []string{"s-1"}}, coordinator)

	NewWorkflowHandler(svc).Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"s-1"}, svc.gotCreate.MemberIDs)

	c, w = newTestContext(http.MethodPost, "/projects", `not json`, coordinator)
	NewWorkflowHandler(svc).Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowHandlerGetNotFound(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/projects/p-9", nil, adviserClaims)
	c.Params = gin.Params{{Key: "id", Value: "p-9"}}

	NewWorkflowHandler(&workflowServiceMock{}).Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkflowHandlerHistoryBindsPaging(t *testing.T) {
	svc := &workflowServiceMock{}
	c, w := newTestContext(http.MethodGet, "/projects/p-1/history?limit=20&offset=40", nil, adviserClaims)

	NewWorkflowHandler(svc).History(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.HistoryQuery{Limit: 20, Offset: 40}, svc.gotHistory)
}

func TestWorkflowHandlerAllowedAndDocument(t *testing.T) {
	h := NewWorkflowHandler(&workflowServiceMock{})

	c, w := newTestContext(http.MethodGet, "/projects/p-1/transitions", nil, adviserClaims)
	h.AllowedTransitions(c)
	assert.Equal(t, http.StatusOK, w.Code)
	items := decodeEnvelope(t, w)["data"].([]interface{})
	require.Len(t, items, 1)

	student := &models.JWTClaims{UserID: "s-1", Role: models.RoleStudent}
	c, w = newTestContext(http.MethodPut, "/projects/p-1/document", dto.AttachDocumentRequest{DocumentRef: "drive://doc-1"}, student)
	h.AttachDocument(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "drive://doc-1", decodeEnvelope(t, w)["data"].(map[string]interface{})["primaryDocumentRef"])
}
