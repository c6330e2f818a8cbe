package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"project-comms/internal/communication"
	"project-comms/internal/middleware"
	"project-comms/internal/models"
	"project-comms/internal/repositories"
	"project-comms/internal/storage"
	"project-comms/internal/telemetry"
)

type sessions interface {
	Acquire(ctx context.Context, id communication.Identity) (*communication.Manager, func(), error)
}

type uploader interface {
	PresignUpload(ctx context.Context, projectID, fileName string) (storage.Upload, error)
}

// CommunicationHandler exposes a project's communication state over HTTP.
type CommunicationHandler struct {
	sessions sessions
	uploads  uploader
	audit    *telemetry.AuditEmitter
}

// NewCommunicationHandler constructs a CommunicationHandler. uploads may be nil.
func NewCommunicationHandler(sessions sessions, uploads uploader, audit *telemetry.AuditEmitter) *CommunicationHandler {
	return &CommunicationHandler{
		sessions: sessions,
		uploads:  uploads,
		audit:    audit,
	}
}

// Register mounts the project routes on group.
func (h *CommunicationHandler) Register(group *gin.RouterGroup) {
	project := group.Group("/projects/:project_id")
	project.GET("/communication", h.GetSnapshot)
	project.POST("/messages", h.SendMessage)
	project.POST("/groups", h.CreateChatGroup)
	project.POST("/progress-reports", h.CreateProgressReport)
	project.POST("/safety-alerts", h.CreateSafetyAlert)
	project.POST("/notifications", h.CreateNotification)
	project.POST("/notifications/read-all", h.MarkAllNotificationsAsRead)
	project.POST("/notifications/:notification_id/read", h.MarkNotificationAsRead)
	project.POST("/refetch/:collection", h.Refetch)
	project.POST("/uploads", h.PresignUpload)
}

// GetSnapshot handles GET /projects/:project_id/communication.
func (h *CommunicationHandler) GetSnapshot(c *gin.Context) {
	mgr, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	c.JSON(http.StatusOK, mgr.Snapshot())
}

// Refetch handles POST /projects/:project_id/refetch/:collection.
func (h *CommunicationHandler) Refetch(c *gin.Context) {
	collection, ok := communication.ParseCollection(c.Param("collection"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
		return
	}

	mgr, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	if err := mgr.Refetch(c.Request.Context(), collection); err != nil {
		if errors.Is(err, communication.ErrClosed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session closed"})
			return
		}
		h.emitAudit(c, "ERROR", "refetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to refetch " + string(collection)})
		return
	}
	c.JSON(http.StatusOK, mgr.Snapshot())
}

// PresignUpload handles POST /projects/:project_id/uploads.
func (h *CommunicationHandler) PresignUpload(c *gin.Context) {
	if h.uploads == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads not configured"})
		return
	}

	var req struct {
		FileName string `json:"file_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upload, err := h.uploads.PresignUpload(c.Request.Context(), c.Param("project_id"), req.FileName)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidFileName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.emitAudit(c, "ERROR", "presign upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create upload url"})
		return
	}
	c.JSON(http.StatusCreated, upload)
}

func (h *CommunicationHandler) acquire(c *gin.Context) (*communication.Manager, func(), bool) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, nil, false
	}
	projectID := c.Param("project_id")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return nil, nil, false
	}

	role := models.UserRole(principal.Role)
	if !role.Valid() {
		role = models.UserRoleWorker
	}
	mgr, release, err := h.sessions.Acquire(c.Request.Context(), communication.Identity{
		ProjectID: projectID,
		UserID:    principal.UserID,
		UserName:  principal.Name,
		Role:      role,
	})
	if err != nil {
		if errors.Is(err, communication.ErrMissingIdentity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, nil, false
		}
		h.emitAudit(c, "ERROR", "session unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session unavailable"})
		return nil, nil, false
	}
	return mgr, release, true
}

// writeActionError maps a manager action error to a response.
func (h *CommunicationHandler) writeActionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, communication.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, communication.ErrUnknownGroup):
		c.JSON(http.StatusNotFound, gin.H{"error": "chat group not found"})
	case errors.Is(err, communication.ErrDuplicateSubmission):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate submission"})
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, communication.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session closed"})
	default:
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func (h *CommunicationHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), telemetry.AuditRecord{
		Level:     level,
		Text:      text,
		RequestID: requestIDFromContext(c),
		UserID:    userIDFromContext(c),
		ProjectID: c.Param("project_id"),
	})
}
