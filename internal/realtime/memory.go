package realtime

import (
	"context"

	"project-comms/internal/models"
)

// MemoryBroker is an in-process event source. Writers publish explicitly.
type MemoryBroker struct {
	hub *hub
}

// NewMemoryBroker creates an empty broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{hub: newHub(defaultBufferSize)}
}

// Subscribe attaches a subscriber to the project channel.
func (b *MemoryBroker) Subscribe(ctx context.Context, projectID string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ChannelError{ProjectID: projectID, Err: err}
	}
	sub := newSubscription(projectID, b.hub.bufferSize, func(s *Subscription) { b.hub.remove(s) })
	b.hub.add(sub)
	return sub, nil
}

// Publish delivers ev to the project's subscribers.
func (b *MemoryBroker) Publish(projectID string, ev models.RealtimeEvent) int {
	return b.hub.publish(projectID, ev)
}

// Broadcast sends a status change to every subscriber.
func (b *MemoryBroker) Broadcast(st Status) {
	b.hub.broadcastStatus(st)
}

// Projects returns the number of projects with at least one subscriber.
func (b *MemoryBroker) Projects() int {
	return b.hub.projects()
}
