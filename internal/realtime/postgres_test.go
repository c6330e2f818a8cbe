package realtime

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-comms/internal/models"
	"project-comms/internal/repositories"
)

func newTestPGBroker(t *testing.T, projectID string) (*PGBroker, *Subscription) {
	t.Helper()
	b := &PGBroker{hub: newHub(4), pingInterval: time.Minute}
	sub := newSubscription(projectID, 4, nil)
	require.True(t, b.hub.add(sub))
	return b, sub
}

func TestPGBrokerDispatchesTriggerPayload(t *testing.T) {
	b, sub := newTestPGBroker(t, "p1")

	b.dispatch(&pq.Notification{
		Channel: ChannelName("p1"),
		Extra: `{"eventType":"INSERT","table":"messages",` +
			`"new":{"id":"m1","project_id":"p1","group_id":"g1","message_type":"text","content":"hi","metadata":{},` +
			`"created_at":"2024-05-01T10:00:00.123456+00:00","updated_at":"2024-05-01T10:00:00.123456+00:00"},"old":null}`,
	})
	b.dispatch(&pq.Notification{
		Channel: ChannelName("p1"),
		Extra:   `{"eventType":"DELETE","table":"messages","new":null,"old":{"id":"m1"}}`,
	})

	require.Len(t, sub.Events(), 2)
	insert := <-sub.Events()
	assert.Equal(t, models.EventInsert, insert.Type)
	assert.Equal(t, models.TableMessages, insert.Table)
	msg, err := repositories.DecodeMessage(insert.New)
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), msg.CreatedAt.UTC())

	del := <-sub.Events()
	assert.Equal(t, models.EventDelete, del.Type)
	id, err := repositories.DecodeRowID(del.Table, del.Old)
	require.NoError(t, err)
	assert.Equal(t, "m1", id)
}

func TestPGBrokerDropsMalformedAndForeignNotifications(t *testing.T) {
	b, sub := newTestPGBroker(t, "p1")

	b.dispatch(&pq.Notification{Channel: ChannelName("p1"), Extra: `{"eventType":`})
	b.dispatch(&pq.Notification{Channel: "audit-p1", Extra: `{"eventType":"INSERT","table":"messages"}`})
	b.dispatch(&pq.Notification{Channel: "project-", Extra: `{"eventType":"INSERT","table":"messages"}`})
	b.dispatch(&pq.Notification{Channel: ChannelName("p2"), Extra: `{"eventType":"INSERT","table":"messages"}`})

	assert.Len(t, sub.Events(), 0)
	assert.Len(t, sub.Status(), 0)
}

func TestPGBrokerListenerEventsBecomeStatuses(t *testing.T) {
	cases := []struct {
		event pq.ListenerEventType
		err   error
		want  Status
	}{
		{pq.ListenerEventConnected, nil, StatusConnected},
		{pq.ListenerEventDisconnected, errors.New("connection reset"), StatusDisconnected},
		{pq.ListenerEventReconnected, nil, StatusReconnected},
	}
	for _, tc := range cases {
		b, sub := newTestPGBroker(t, "p1")
		b.handleListenerEvent(tc.event, tc.err)
		require.Len(t, sub.Status(), 1)
		assert.Equal(t, tc.want, <-sub.Status())
	}
}

func TestPGBrokerIgnoresFailedReconnectAttempts(t *testing.T) {
	b, sub := newTestPGBroker(t, "p1")

	b.handleListenerEvent(pq.ListenerEventConnectionAttemptFailed, errors.New("refused"))

	assert.Len(t, sub.Status(), 0)
}
