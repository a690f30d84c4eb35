package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/dto"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	appErrors "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/errors"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/response"
)

type lockService interface {
	Status(ctx context.Context, projectID string, actorRole models.UserRole, actorID string) (*dto.LockStatus, error)
	Acquire(ctx context.Context, projectID, actorID string, scopeID *string) (*dto.LockStatus, error)
	Release(ctx context.Context, projectID, actorID string, actorRole models.UserRole) error
	RequestUnlock(ctx context.Context, projectID, actorID string) error
	DenyUnlock(ctx context.Context, projectID, holderID, requesterID string) error
	Override(ctx context.Context, projectID, actorID string, actorRole models.UserRole) error
}

// LockHandler exposes the document lock endpoints.
type LockHandler struct {
	service lockService
}

// NewLockHandler constructs the handler.
func NewLockHandler(service lockService) *LockHandler {
	return &LockHandler{service: service}
}

// Status godoc
// @Summary Document lock status
// @Tags Locks
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/lock [get]
func (h *LockHandler) Status(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	status, err := h.service.Status(c.Request.Context(), c.Param("id"), claims.Role, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Acquire godoc
// @Summary Acquire document lock
// @Description Returns 409 LOCK_HELD with the current holder in error.details when someone else holds the lock.
// @Tags Locks
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.AcquireLockRequest false "Optional scope"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /projects/{id}/lock [post]
func (h *LockHandler) Acquire(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.AcquireLockRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lock payload"))
		return
	}
	status, err := h.service.Acquire(c.Request.Context(), c.Param("id"), claims.UserID, req.ScopeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Release godoc
// @Summary Release document lock
// @Tags Locks
// @Param id path string true "Project ID"
// @Success 204
// @Router /projects/{id}/lock [delete]
func (h *LockHandler) Release(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Release(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RequestUnlock godoc
// @Summary Ask the lock holder to release the document
// @Tags Locks
// @Param id path string true "Project ID"
// @Success 202 {object} response.Envelope
// @Router /projects/{id}/lock/requests [post]
func (h *LockHandler) RequestUnlock(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.RequestUnlock(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"status": models.UnlockRequestPending}, nil)
}

// DenyUnlock godoc
// @Summary Decline pending unlock requests from one member
// @Tags Locks
// @Accept json
// @Param id path string true "Project ID"
// @Param payload body dto.DenyUnlockRequest true "Requester"
// @Success 204
// @Router /projects/{id}/lock/requests/deny [post]
func (h *LockHandler) DenyUnlock(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.DenyUnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "requesterId is required"))
		return
	}
	if err := h.service.DenyUnlock(c.Request.Context(), c.Param("id"), claims.UserID, req.RequesterID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Override godoc
// @Summary Force-clear document lock
// @Tags Locks
// @Param id path string true "Project ID"
// @Success 204
// @Router /projects/{id}/lock/override [post]
func (h *LockHandler) Override(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Override(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
