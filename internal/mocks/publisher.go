package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"project-comms/internal/telemetry"
)

var _ telemetry.Publisher = (*PublisherMock)(nil)

// PublisherMock records published envelopes.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// EventTypes returns the event types of every published telemetry.EventEnvelope, in order.
func (m *PublisherMock) EventTypes() []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method != "Publish" {
			continue
		}
		if env, ok := call.Arguments.Get(2).(telemetry.EventEnvelope); ok {
			out = append(out, env.EventType)
		}
	}
	return out
}
