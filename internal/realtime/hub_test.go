package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-comms/internal/models"
)

func TestHubAddAndRemoveSubscription(t *testing.T) {
	h := newHub(4)
	sub := newSubscription("p1", 4, nil)

	require.True(t, h.add(sub))
	require.Equal(t, 1, h.projects())

	other := newSubscription("p1", 4, nil)
	require.False(t, h.add(other))

	require.False(t, h.remove(sub))
	require.True(t, h.remove(other))
	require.Equal(t, 0, h.projects())
	require.False(t, h.remove(other))
}

func TestMemoryBrokerPublishesToProjectOnly(t *testing.T) {
	broker := NewMemoryBroker()
	sub1, err := broker.Subscribe(context.Background(), "p1")
	require.NoError(t, err)
	sub2, err := broker.Subscribe(context.Background(), "p2")
	require.NoError(t, err)

	ev := models.RealtimeEvent{Type: models.EventInsert, Table: models.TableMessages, New: []byte(`{"id":"m1"}`)}
	require.Equal(t, 1, broker.Publish("p1", ev))

	got := <-sub1.Events()
	assert.Equal(t, ev.Type, got.Type)
	assert.Len(t, sub2.Events(), 0)
}

func TestSubscriptionOverflowRequestsResync(t *testing.T) {
	h := newHub(1)
	sub := newSubscription("p1", 1, nil)
	h.add(sub)

	ev := models.RealtimeEvent{Type: models.EventInsert, Table: models.TableMessages}
	require.Equal(t, 1, h.publish("p1", ev))
	require.Equal(t, 0, h.publish("p1", ev))

	require.Equal(t, StatusResync, <-sub.Status())
}

func TestSubscriptionCloseDetaches(t *testing.T) {
	broker := NewMemoryBroker()
	sub, err := broker.Subscribe(context.Background(), "p1")
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	require.Equal(t, 0, broker.Projects())
	require.Equal(t, 0, broker.Publish("p1", models.RealtimeEvent{Type: models.EventDelete}))
	_, open := <-sub.Done()
	require.False(t, open)
}

func TestBroadcastStatusReachesAllProjects(t *testing.T) {
	broker := NewMemoryBroker()
	sub1, _ := broker.Subscribe(context.Background(), "p1")
	sub2, _ := broker.Subscribe(context.Background(), "p2")

	broker.Broadcast(StatusReconnected)

	assert.Equal(t, StatusReconnected, <-sub1.Status())
	assert.Equal(t, StatusReconnected, <-sub2.Status())
}

func TestSubscribeWithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryBroker().Subscribe(ctx, "p1")
	var chErr *ChannelError
	require.ErrorAs(t, err, &chErr)
	assert.Equal(t, "p1", chErr.ProjectID)
}

func TestSubscriptionKeepsLatestStatusWhenFull(t *testing.T) {
	sub := newSubscription("p1", 1, nil)
	for i := 0; i < cap(sub.status); i++ {
		sub.notify(StatusDisconnected)
	}
	sub.notify(StatusReconnected)

	var got []Status
	for len(sub.Status()) > 0 {
		got = append(got, <-sub.Status())
	}
	require.Len(t, got, cap(sub.status))
	assert.Equal(t, StatusReconnected, got[len(got)-1])
}
