package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"project-comms/internal/communication"
	"project-comms/internal/models"
)

// warningHeader carries the reason a created entity's follow-up notification failed.
const warningHeader = "X-Warning"

// SendMessage handles POST /projects/:project_id/messages.
func (h *CommunicationHandler) SendMessage(c *gin.Context) {
	var req struct {
		GroupID         string                  `json:"group_id"`
		MessageType     string                  `json:"message_type"`
		Content         string                  `json:"content" binding:"required,max=4000"`
		Metadata        *models.MessageMetadata `json:"metadata"`
		ClientMessageID string                  `json:"client_message_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mgr, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	in := communication.SendMessageInput{
		GroupID:         req.GroupID,
		MessageType:     models.MessageType(req.MessageType),
		Content:         req.Content,
		ClientMessageID: req.ClientMessageID,
	}
	if req.Metadata != nil {
		in.Metadata = *req.Metadata
	}
	msg, err := mgr.SendMessage(c.Request.Context(), in)
	if err != nil {
		h.writeActionError(c, err, "could not send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// CreateChatGroup handles POST /projects/:project_id/groups.
func (h *CommunicationHandler) CreateChatGroup(c *gin.Context) {
	var req struct {
		Name        string               `json:"name" binding:"required"`
		Description *string              `json:"description"`
		GroupType   string               `json:"group_type"`
		Members     []models.GroupMember `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mgr, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	group, err := mgr.CreateChatGroup(c.Request.Context(), communication.CreateChatGroupInput{
		Name:        req.Name,
		Description: req.Description,
		GroupType:   models.GroupType(req.GroupType),
		Members:     req.Members,
	})
	if err != nil {
		h.writeActionError(c, err, "could not create chat group")
		return
	}
	h.emitAudit(c, "INFO", "Chat group created")
	c.JSON(http.StatusCreated, group)
}

// CreateProgressReport handles POST /projects/:project_id/progress-reports.
func (h *CommunicationHandler) CreateProgressReport(c *gin.Context) {
	var req struct {
		TaskName             string           `json:"task_name" binding:"required"`
		TaskDescription      string           `json:"task_description"`
		CompletionPercentage *int             `json:"completion_percentage" binding:"required,min=0,max=100"`
		Status               string           `json:"status"`
		Location             *models.Location `json:"location"`
		Photos               []string         `json:"photos"`
		Notes                string           `json:"notes"`
		HoursWorked          float64          `json:"hours_worked" binding:"min=0"`
		MaterialsUsed        string           `json:"materials_used"`
		IssuesEncountered    string           `json:"issues_encountered"`
		NextSteps            string           `json:"next_steps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mgr, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	report, err := mgr.CreateProgressReport(c.Request.Context(), communication.ProgressReportInput{
		TaskName:             req.TaskName,
		TaskDescription:      req.TaskDescription,
		CompletionPercentage: *req.CompletionPercentage,
		Status:               models.ReportStatus(req.Status),
		Location:             req.Location,
		Photos:               req.Photos,
		Notes:                req.Notes,
		HoursWorked:          req.HoursWorked,
		MaterialsUsed:        req.MaterialsUsed,
		IssuesEncountered:    req.IssuesEncountered,
		NextSteps:            req.NextSteps,
	})
	if err != nil && report.ID == "" {
		h.writeActionError(c, err, "could not create progress report")
		return
	}
	if err != nil {
		h.emitAudit(c, "WARN", "progress report notification failed")
		c.Header(warningHeader, "notification not delivered")
	}
	c.JSON(http.StatusCreated, report)
}

// CreateSafetyAlert handles POST /projects/:project_id/safety-alerts.
func (h *CommunicationHandler) CreateSafetyAlert(c *gin.Context) {
	var req struct {
		Title               string              `json:"title" binding:"required"`
		Description         string              `json:"description"`
		SafetyLevel         string              `json:"safety_level" binding:"required,oneof=low medium high critical"`
		Category            string              `json:"category"`
		LocationDescription string              `json:"location_description"`
		LocationCoordinates *models.Coordinates `json:"location_coordinates"`
		Photos              []string            `json:"photos"`
		ActionsTaken        string              `json:"actions_taken"`
		AssignedTo          *string             `json:"assigned_to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mgr, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	alert, err := mgr.CreateSafetyAlert(c.Request.Context(), communication.SafetyAlertInput{
		Title:               req.Title,
		Description:         req.Description,
		SafetyLevel:         models.SafetyLevel(req.SafetyLevel),
		Category:            req.Category,
		LocationDescription: req.LocationDescription,
		LocationCoordinates: req.LocationCoordinates,
		Photos:              req.Photos,
		ActionsTaken:        req.ActionsTaken,
		AssignedTo:          req.AssignedTo,
	})
	if err != nil && alert.ID == "" {
		h.writeActionError(c, err, "could not create safety alert")
		return
	}
	if err != nil {
		h.emitAudit(c, "WARN", "safety alert notification failed")
		c.Header(warningHeader, "notification not delivered")
	}
	h.emitAudit(c, "INFO", "Safety alert raised")
	c.JSON(http.StatusCreated, alert)
}

// CreateNotification handles POST /projects/:project_id/notifications.
func (h *CommunicationHandler) CreateNotification(c *gin.Context) {
	var req struct {
		UserID           string         `json:"user_id"`
		NotificationType string         `json:"notification_type"`
		Title            string         `json:"title" binding:"required"`
		Content          string         `json:"content" binding:"max=4000"`
		Metadata         map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mgr, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	n, err := mgr.CreateNotification(c.Request.Context(), communication.NotificationInput{
		UserID:           req.UserID,
		NotificationType: models.NotificationType(req.NotificationType),
		Title:            req.Title,
		Content:          req.Content,
		Metadata:         req.Metadata,
	})
	if err != nil {
		h.writeActionError(c, err, "could not create notification")
		return
	}
	c.JSON(http.StatusCreated, n)
}

// MarkNotificationAsRead handles POST /projects/:project_id/notifications/:notification_id/read.
func (h *CommunicationHandler) MarkNotificationAsRead(c *gin.Context) {
	mgr, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	n, err := mgr.MarkNotificationAsRead(c.Request.Context(), c.Param("notification_id"))
	if err != nil {
		h.writeActionError(c, err, "could not mark notification as read")
		return
	}
	c.JSON(http.StatusOK, n)
}

// MarkAllNotificationsAsRead handles POST /projects/:project_id/notifications/read-all.
func (h *CommunicationHandler) MarkAllNotificationsAsRead(c *gin.Context) {
	mgr, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	updated, err := mgr.MarkAllNotificationsAsRead(c.Request.Context())
	if err != nil {
		h.writeActionError(c, err, "could not mark notifications as read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
