package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	pub := new(publisherMock)
	pub.On("Publish", mock.Anything, "audit.project_comms", mock.Anything).Return(nil).Once()
	emitter := NewAuditEmitter(pub, "audit.project_comms", "project-comms", "test")

	userID := "u1"
	emitter.Emit(context.Background(), AuditRecord{Level: "ERROR", Text: "internal error", RequestID: "r1", UserID: &userID, ProjectID: "p1"})

	pub.AssertExpectations(t)
	env, ok := pub.Calls[0].Arguments.Get(2).(AuditEnvelope)
	require.True(t, ok)
	assert.Equal(t, "audit_log", env.EventType)
	assert.Equal(t, "p1", env.ProjectID)
	assert.Equal(t, "u1", *env.UserID)
	assert.Equal(t, AuditPayload{Level: "ERROR", Text: "internal error"}, env.Payload)
	assert.Empty(t, env.TraceID)
}

func TestAuditEmitterSwallowsPublishError(t *testing.T) {
	pub := new(publisherMock)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	NewAuditEmitter(pub, "audit", "svc", "test").Emit(context.Background(), AuditRecord{Level: "INFO", Text: "x"})

	pub.AssertExpectations(t)
}

func TestNilAuditEmitterIsNoop(t *testing.T) {
	var emitter *AuditEmitter
	emitter.Emit(context.Background(), AuditRecord{Level: "INFO", Text: "x"})
}
