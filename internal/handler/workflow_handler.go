package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/dto"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	appErrors "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/errors"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/response"
)

type workflowService interface {
	CreateProject(ctx context.Context, req dto.CreateProjectRequest, actor *models.JWTClaims) (*models.Project, error)
	GetProject(ctx context.Context, projectID string, actor *models.JWTClaims) (*models.Project, error)
	Transition(ctx context.Context, projectID string, actorRole models.UserRole, actorID string, nextStatus models.ProjectStatus, comment string) (*dto.TransitionResult, error)
	AllowedTransitions(ctx context.Context, projectID string, actor *models.JWTClaims) ([]dto.AllowedTransition, error)
	History(ctx context.Context, projectID string, actor *models.JWTClaims, query dto.HistoryQuery) ([]models.WorkflowLog, error)
	AttachDocument(ctx context.Context, projectID, actorID string, req dto.AttachDocumentRequest) (*models.Project, error)
}

// WorkflowHandler exposes project lifecycle endpoints.
type WorkflowHandler struct {
	service workflowService
}

// NewWorkflowHandler constructs the handler.
func NewWorkflowHandler(service workflowService) *WorkflowHandler {
	return &WorkflowHandler{service: service}
}

// Create godoc
// @Summary Create capstone project
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body dto.CreateProjectRequest true "Project payload"
// @Success 201 {object} response.Envelope
// @Router /projects [post]
func (h *WorkflowHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid project payload"))
		return
	}
	project, err := h.service.CreateProject(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Get godoc
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [get]
func (h *WorkflowHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	project, err := h.service.GetProject(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Transition godoc
// @Summary Move project to the next status
// @Description Fails with 409 VERSION_CONFLICT when another writer committed first; reload and retry.
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /projects/{id}/transitions [post]
func (h *WorkflowHandler) Transition(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}
	result, err := h.service.Transition(c.Request.Context(), c.Param("id"), claims.Role, claims.UserID, req.NextStatus, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AllowedTransitions godoc
// @Summary List statuses the caller may move the project to
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/transitions [get]
func (h *WorkflowHandler) AllowedTransitions(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, err := h.service.AllowedTransitions(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// History godoc
// @Summary Workflow history
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/history [get]
func (h *WorkflowHandler) History(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	logs, err := h.service.History(c.Request.Context(), c.Param("id"), claims, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// AttachDocument godoc
// @Summary Record the primary document reference
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.AttachDocumentRequest true "Document reference"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/document [put]
func (h *WorkflowHandler) AttachDocument(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.AttachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return
	}
	project, err := h.service.AttachDocument(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}
