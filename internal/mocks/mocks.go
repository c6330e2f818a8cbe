package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"project-comms/internal/models"
	"project-comms/internal/repositories"
)

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) ListGroups(ctx context.Context, projectID string) ([]models.ChatGroup, error) {
	args := m.Called(ctx, projectID)
	var list []models.ChatGroup
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatGroup)
	}
	return list, args.Error(1)
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, group models.NewChatGroup) (models.ChatGroup, error) {
	args := m.Called(ctx, group)
	var created models.ChatGroup
	if val := args.Get(0); val != nil {
		created = val.(models.ChatGroup)
	}
	return created, args.Error(1)
}

func (m *GroupRepositoryMock) CreateDefaultGroup(ctx context.Context, projectID string, creator models.GroupMember) (models.ChatGroup, error) {
	args := m.Called(ctx, projectID, creator)
	var group models.ChatGroup
	if val := args.Get(0); val != nil {
		group = val.(models.ChatGroup)
	}
	return group, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, projectID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, projectID, limit)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, msg)
	var created models.Message
	if val := args.Get(0); val != nil {
		created = val.(models.Message)
	}
	return created, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) ListNotifications(ctx context.Context, projectID string, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, projectID, limit)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationRepositoryMock) CreateNotification(ctx context.Context, n models.NewNotification) (models.Notification, error) {
	args := m.Called(ctx, n)
	var created models.Notification
	if val := args.Get(0); val != nil {
		created = val.(models.Notification)
	}
	return created, args.Error(1)
}

func (m *NotificationRepositoryMock) UpdateNotification(ctx context.Context, projectID, userID, id string, patch models.NotificationPatch) (models.Notification, error) {
	args := m.Called(ctx, projectID, userID, id, patch)
	var updated models.Notification
	if val := args.Get(0); val != nil {
		updated = val.(models.Notification)
	}
	return updated, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, projectID string, userID string) ([]models.Notification, error) {
	args := m.Called(ctx, projectID, userID)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

type ProgressReportRepositoryMock struct {
	mock.Mock
}

func (m *ProgressReportRepositoryMock) ListProgressReports(ctx context.Context, projectID string) ([]models.ProgressReport, error) {
	args := m.Called(ctx, projectID)
	var list []models.ProgressReport
	if val := args.Get(0); val != nil {
		list = val.([]models.ProgressReport)
	}
	return list, args.Error(1)
}

func (m *ProgressReportRepositoryMock) CreateProgressReport(ctx context.Context, report models.NewProgressReport) (models.ProgressReport, error) {
	args := m.Called(ctx, report)
	var created models.ProgressReport
	if val := args.Get(0); val != nil {
		created = val.(models.ProgressReport)
	}
	return created, args.Error(1)
}

type SafetyAlertRepositoryMock struct {
	mock.Mock
}

func (m *SafetyAlertRepositoryMock) ListSafetyAlerts(ctx context.Context, projectID string) ([]models.SafetyAlert, error) {
	args := m.Called(ctx, projectID)
	var list []models.SafetyAlert
	if val := args.Get(0); val != nil {
		list = val.([]models.SafetyAlert)
	}
	return list, args.Error(1)
}

func (m *SafetyAlertRepositoryMock) CreateSafetyAlert(ctx context.Context, alert models.NewSafetyAlert) (models.SafetyAlert, error) {
	args := m.Called(ctx, alert)
	var created models.SafetyAlert
	if val := args.Get(0); val != nil {
		created = val.(models.SafetyAlert)
	}
	return created, args.Error(1)
}

var (
	_ repositories.GroupRepository          = (*GroupRepositoryMock)(nil)
	_ repositories.MessageRepository        = (*MessageRepositoryMock)(nil)
	_ repositories.NotificationRepository   = (*NotificationRepositoryMock)(nil)
	_ repositories.ProgressReportRepository = (*ProgressReportRepositoryMock)(nil)
	_ repositories.SafetyAlertRepository    = (*SafetyAlertRepositoryMock)(nil)
)
