package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *publisherMock) Close() error {
	return m.Called().Error(0)
}

func TestEventEmitterDefaultsRoutingKey(t *testing.T) {
	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, EventMessageCreated, mock.MatchedBy(func(ev EventEnvelope) bool {
		return ev.EventType == EventMessageCreated && ev.ProjectID == "p1" && ev.ActorID == "u1" && ev.Service == "comms"
	})).Return(nil).Once()

	emitter := NewEventEmitter(pub, "comms", "test")
	require.NoError(t, emitter.Emit(context.Background(), "", EventMessageCreated, "p1", "u1", map[string]string{"id": "m1"}))
	pub.AssertExpectations(t)
}

func TestEventEmitterReturnsPublishError(t *testing.T) {
	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, "safety_alert.critical", mock.Anything).Return(errors.New("closed")).Once()

	emitter := NewEventEmitter(pub, "comms", "test")
	require.Error(t, emitter.Emit(context.Background(), "safety_alert.critical", EventSafetyAlertCreated, "p1", "u1", nil))
}

func TestNilEventEmitterIsNoop(t *testing.T) {
	var emitter *EventEmitter
	require.NoError(t, emitter.Emit(context.Background(), "", EventNotificationCreated, "p1", "u1", nil))
}
