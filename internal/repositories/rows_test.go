package repositories

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-comms/internal/models"
)

func TestDecodeMessage(t *testing.T) {
	raw := []byte(`{"id":"m1","project_id":"p1","group_id":"g1","sender_id":"u1","sender_name":"Ana","sender_role":"worker",
		"message_type":"image","content":"look","metadata":{"file_url":"http://x/y.jpg","location":{"lat":1.5,"lng":2}},
		"is_read":false,"created_at":"2024-05-01T10:00:00.123456+00:00","updated_at":"2024-05-01T10:00:00+00:00"}`)

	msg, err := DecodeMessage(raw)

	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, models.MessageTypeImage, msg.MessageType)
	assert.Equal(t, models.UserRoleWorker, msg.SenderRole)
	assert.Equal(t, "http://x/y.jpg", msg.Metadata.FileURL)
	require.NotNil(t, msg.Metadata.Location)
	assert.Equal(t, 1.5, msg.Metadata.Location.Lat)
	assert.Equal(t, 2024, msg.CreatedAt.Year())
}

func TestDecodeMessageRejectsUnknownType(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"id":"m1","project_id":"p1","group_id":"g1","message_type":"fax"}`))

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "message_type", rowErr.Field)
}

func TestDecodeMessageRequiresIDs(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"id":"m1","project_id":"p1","message_type":"text"}`))

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "group_id", rowErr.Field)
}

func TestDecodeNotificationDefaultsMetadata(t *testing.T) {
	n, err := DecodeNotification([]byte(`{"id":"n1","user_id":"u1","project_id":"p1","notification_type":"safety_alert","title":"Gas","metadata":null}`))

	require.NoError(t, err)
	assert.Equal(t, models.NotificationTypeSafetyAlert, n.NotificationType)
	assert.NotNil(t, n.Metadata)
	assert.Empty(t, n.Metadata)
}

func TestDecodeRowID(t *testing.T) {
	id, err := DecodeRowID(models.TableMessages, []byte(`{"id":"m9"}`))
	require.NoError(t, err)
	assert.Equal(t, "m9", id)

	_, err = DecodeRowID(models.TableMessages, []byte(`{"id":" "}`))
	assert.Error(t, err)

	_, err = DecodeRowID(models.TableMessages, []byte(`null`))
	assert.Error(t, err)

	_, err = DecodeRowID(models.TableMessages, []byte(`{"id":`))
	assert.Error(t, err)
}

func TestRowToProgressReportValidates(t *testing.T) {
	_, err := rowToProgressReport(progressReportRow{ID: "r1", ProjectID: "p1", CompletionPercentage: 101, Status: "in_progress"})
	assert.Error(t, err)

	report, err := rowToProgressReport(progressReportRow{ID: "r1", ProjectID: "p1", CompletionPercentage: 100, Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusCompleted, report.Status)
	assert.Equal(t, []string{}, report.Photos)
	assert.Nil(t, report.Location)
}

func TestRowToSafetyAlertRejectsUnknownRole(t *testing.T) {
	_, err := rowToSafetyAlert(safetyAlertRow{ID: "a1", ProjectID: "p1", SafetyLevel: "high", Status: "open", ReporterRole: "ceo"})

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "reporter_role", rowErr.Field)
}

func TestRowToGroupRejectsUnknownType(t *testing.T) {
	_, err := rowToGroup(groupRow{ID: "g1", ProjectID: "p1", GroupType: "party"})
	assert.Error(t, err)

	group, err := rowToGroup(groupRow{ID: "g1", ProjectID: "p1", GroupType: "safety"})
	require.NoError(t, err)
	assert.Equal(t, []models.GroupMember{}, group.Members)
}

func TestJSONColumnRoundTrip(t *testing.T) {
	col := jsonColumn[models.MessageMetadata]{V: models.MessageMetadata{FileName: "plan.pdf"}}
	v, err := col.Value()
	require.NoError(t, err)

	var back jsonColumn[models.MessageMetadata]
	require.NoError(t, back.Scan([]byte(v.(string))))
	assert.Equal(t, "plan.pdf", back.V.FileName)

	require.NoError(t, back.Scan(nil))
	assert.Equal(t, models.MessageMetadata{}, back.V)
	assert.Error(t, back.Scan(42))
}

func TestWithCreator(t *testing.T) {
	members := withCreator([]models.GroupMember{{UserID: "u2"}, {UserID: "u2"}, {UserID: ""}, {UserID: "u1"}}, "u1")

	require.Len(t, members, 2)
	assert.Equal(t, "u2", members[0].UserID)
	assert.False(t, members[0].IsAdmin)
	assert.Equal(t, "u1", members[1].UserID)
	assert.True(t, members[1].IsAdmin)
	assert.False(t, members[1].JoinedAt.IsZero())

	members = withCreator(nil, "u1")
	require.Len(t, members, 1)
	assert.True(t, members[0].IsAdmin)
}
