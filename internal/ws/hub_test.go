package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"project-comms/internal/communication"
	"project-comms/internal/middleware"
	"project-comms/internal/mocks"
	"project-comms/internal/models"
)

func TestHubAddAndRemove(t *testing.T) {
	hub := NewHub(nil)

	hub.Add(nil, ConnInfo{ProjectID: "p1"})
	require.Equal(t, 1, hub.Count("p1"))
	require.Len(t, hub.rooms, 1)

	hub.Remove("p1", nil)
	require.Equal(t, 0, hub.Count("p1"))
	require.Len(t, hub.rooms, 0)
}

func TestCheckOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.True(t, checkOrigin(nil)(req))

	allow := checkOrigin([]string{"https://app.example.com"})
	assert.True(t, allow(req))
	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, allow(req))
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, allow(req))
}

type streamRepos struct {
	groups        *mocks.GroupRepositoryMock
	messages      *mocks.MessageRepositoryMock
	notifications *mocks.NotificationRepositoryMock
	reports       *mocks.ProgressReportRepositoryMock
	alerts        *mocks.SafetyAlertRepositoryMock
	alertFetches  atomic.Int32
}

func newStreamServer(t *testing.T) (*streamRepos, *Hub, string) {
	t.Helper()
	repos := &streamRepos{
		groups:        new(mocks.GroupRepositoryMock),
		messages:      new(mocks.MessageRepositoryMock),
		notifications: new(mocks.NotificationRepositoryMock),
		reports:       new(mocks.ProgressReportRepositoryMock),
		alerts:        new(mocks.SafetyAlertRepositoryMock),
	}
	repos.groups.On("ListGroups", mock.Anything, "p1").Return([]models.ChatGroup{{ID: "g1", ProjectID: "p1", IsDefault: true}}, nil)
	repos.messages.On("ListMessages", mock.Anything, "p1", 100).Return([]models.Message{{ID: "m1", ProjectID: "p1", GroupID: "g1"}}, nil)
	repos.notifications.On("ListNotifications", mock.Anything, "p1", 50).Return([]models.Notification{}, nil)
	repos.reports.On("ListProgressReports", mock.Anything, "p1").Return([]models.ProgressReport{}, nil)
	repos.alerts.On("ListSafetyAlerts", mock.Anything, "p1").Return([]models.SafetyAlert{}, nil).
		Run(func(mock.Arguments) { repos.alertFetches.Add(1) })

	registry := communication.NewRegistry(communication.Dependencies{
		Groups:        repos.groups,
		Messages:      repos.messages,
		Notifications: repos.notifications,
		Reports:       repos.reports,
		Alerts:        repos.alerts,
	}, communication.Options{}, time.Minute)
	t.Cleanup(registry.Close)

	hub := NewHub(nil)
	handler := NewStreamHandler(hub, registry, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "u1")
		c.Set(middleware.ContextUserName, "Ana")
		c.Set(middleware.ContextUserRole, "worker")
		c.Next()
	})
	r.GET("/ws/projects/:project_id", handler.Handle)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return repos, hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/projects/p1"
}

func TestStreamSendsInitialSnapshot(t *testing.T) {
	_, hub, url := newStreamServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, FrameSnapshot, frame.Type)
	require.NotNil(t, frame.Snapshot)
	assert.Equal(t, "p1", frame.Snapshot.ProjectID)
	assert.Len(t, frame.Snapshot.Messages, 1)
	assert.Equal(t, 1, hub.Count("p1"))
}

func TestStreamSendsEachSnapshotVersionOnce(t *testing.T) {
	_, _, url := newStreamServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	seen := map[uint64]int{}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}
		if frame.Type == FrameSnapshot {
			seen[frame.Snapshot.Version]++
		}
	}
	require.NotEmpty(t, seen)
	for version, n := range seen {
		assert.Equal(t, 1, n, "snapshot version %d", version)
	}
}

func TestStreamRefetchCommand(t *testing.T) {
	repos, _, url := newStreamServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))

	require.NoError(t, conn.WriteJSON(command{Type: "refetch", Collection: "safety-alerts"}))
	require.Eventually(t, func() bool {
		return repos.alertFetches.Load() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestStreamUnknownCommandReportsError(t *testing.T) {
	_, _, url := newStreamServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))

	require.NoError(t, conn.WriteJSON(command{Type: "refetch", Collection: "photos"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, FrameError, frame.Type)
	assert.Contains(t, frame.Error, "photos")
}

func TestStreamClosedUnregisters(t *testing.T) {
	_, hub, url := newStreamServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	require.Eventually(t, func() bool { return hub.Count("p1") == 0 }, time.Second, 10*time.Millisecond)
}
