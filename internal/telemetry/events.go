package telemetry

import (
	"context"
	"log"
	"time"
)

// Domain event types published after successful writes.
const (
	EventMessageCreated        = "message.created"
	EventProgressReportCreated = "progress_report.created"
	EventSafetyAlertCreated    = "safety_alert.created"
	EventNotificationCreated   = "notification.created"
)

type EventEnvelope struct {
	SchemaVersion int    `json:"schema_version"`
	EventType     string `json:"event_type"`
	OccurredAt    string `json:"occurred_at"`
	Service       string `json:"service"`
	Environment   string `json:"environment"`
	ProjectID     string `json:"project_id"`
	ActorID       string `json:"actor_id"`
	Payload       any    `json:"payload"`
}

// EventEmitter publishes domain events. A nil emitter drops every event.
type EventEmitter struct {
	publisher   Publisher
	service     string
	environment string
}

func NewEventEmitter(publisher Publisher, service, environment string) *EventEmitter {
	return &EventEmitter{
		publisher:   publisher,
		service:     service,
		environment: environment,
	}
}

// Emit publishes eventType under routingKey; routingKey defaults to eventType.
func (e *EventEmitter) Emit(ctx context.Context, routingKey, eventType, projectID, actorID string, payload any) error {
	if e == nil || e.publisher == nil {
		return nil
	}
	if routingKey == "" {
		routingKey = eventType
	}

	envelope := EventEnvelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		ProjectID:     projectID,
		ActorID:       actorID,
		Payload:       payload,
	}
	if err := e.publisher.Publish(ctx, routingKey, envelope); err != nil {
		log.Printf("event publish failed: event_type=%s project_id=%s: %v", eventType, projectID, err)
		return err
	}
	return nil
}
