package realtime

import (
	"fmt"
	"sync"

	"project-comms/internal/models"
)

// Status reports the health of the channel behind a subscription.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnected  Status = "reconnected"
	// StatusResync means events were dropped because the subscriber fell behind.
	StatusResync Status = "resync"
)

const defaultBufferSize = 256

// ChannelName returns the notification channel of a project.
func ChannelName(projectID string) string {
	return "project-" + projectID
}

// ChannelError reports a subscription that could not be established.
type ChannelError struct {
	ProjectID string
	Err       error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("realtime channel %s: %v", ChannelName(e.ProjectID), e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// Subscription receives the change events of one project.
type Subscription struct {
	projectID string
	events    chan models.RealtimeEvent
	status    chan Status
	done      chan struct{}
	statusMu  sync.Mutex
	closeOnce sync.Once
	release   func(*Subscription)
}

func newSubscription(projectID string, buffer int, release func(*Subscription)) *Subscription {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &Subscription{
		projectID: projectID,
		events:    make(chan models.RealtimeEvent, buffer),
		status:    make(chan Status, 4),
		done:      make(chan struct{}),
		release:   release,
	}
}

// ProjectID returns the project the subscription listens to.
func (s *Subscription) ProjectID() string { return s.projectID }

// Events delivers change events in arrival order.
func (s *Subscription) Events() <-chan models.RealtimeEvent { return s.events }

// Status delivers channel status changes.
func (s *Subscription) Status() <-chan Status { return s.status }

// Done is closed once the subscription is closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close detaches the subscription from its source. It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		if s.release != nil {
			s.release(s)
		}
		close(s.done)
	})
}

func (s *Subscription) deliver(ev models.RealtimeEvent) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	default:
		s.notify(StatusResync)
		return false
	}
}

// notify queues st, evicting the oldest pending status when the buffer is full
// so the latest channel state always reaches the consumer.
func (s *Subscription) notify(st Status) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	for {
		select {
		case <-s.done:
			return
		case s.status <- st:
			return
		default:
		}
		select {
		case <-s.status:
		default:
		}
	}
}
