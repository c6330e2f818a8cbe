package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"project-comms/internal/models"
	"project-comms/internal/observability"
)

const defaultPingInterval = 90 * time.Second

// PGBroker streams row changes published by database triggers through LISTEN/NOTIFY.
// A single connection serves every project; channels are listened while subscribed.
type PGBroker struct {
	hub          *hub
	listener     *pq.Listener
	pingInterval time.Duration
	mu           sync.Mutex
}

// NewPGBroker creates a broker. The listener reconnects with exponential backoff
// between minReconnect and maxReconnect.
func NewPGBroker(dsn string, minReconnect, maxReconnect time.Duration) *PGBroker {
	b := &PGBroker{
		hub:          newHub(defaultBufferSize),
		pingInterval: defaultPingInterval,
	}
	b.listener = pq.NewListener(dsn, minReconnect, maxReconnect, b.handleListenerEvent)
	return b
}

// Subscribe attaches a subscriber to the project channel, issuing LISTEN for the first one.
func (b *PGBroker) Subscribe(ctx context.Context, projectID string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ChannelError{ProjectID: projectID, Err: err}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscription(projectID, b.hub.bufferSize, b.release)
	if b.hub.add(sub) {
		if err := b.listener.Listen(ChannelName(projectID)); err != nil && !errors.Is(err, pq.ErrChannelAlreadyOpen) {
			b.hub.remove(sub)
			return nil, &ChannelError{ProjectID: projectID, Err: err}
		}
		log.Printf("realtime listen channel=%s", ChannelName(projectID))
	}
	observability.SetRealtimeChannels(b.hub.projects())
	return sub, nil
}

func (b *PGBroker) release(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hub.remove(sub) {
		if err := b.listener.Unlisten(ChannelName(sub.projectID)); err != nil && !errors.Is(err, pq.ErrChannelNotOpen) {
			log.Printf("realtime unlisten failed channel=%s: %v", ChannelName(sub.projectID), err)
		}
	}
	observability.SetRealtimeChannels(b.hub.projects())
}

// Run dispatches notifications until ctx is cancelled.
func (b *PGBroker) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-b.listener.Notify:
			if !ok {
				return nil
			}
			if n == nil {
				// sent after a reconnect; the status callback already told subscribers
				continue
			}
			b.dispatch(n)
		case <-ticker.C:
			go func() {
				if err := b.listener.Ping(); err != nil {
					log.Printf("realtime listener ping failed: %v", err)
				}
			}()
		}
	}
}

// Close stops the listener connection.
func (b *PGBroker) Close() error {
	return b.listener.Close()
}

func (b *PGBroker) dispatch(n *pq.Notification) {
	projectID, ok := strings.CutPrefix(n.Channel, "project-")
	if !ok || projectID == "" {
		return
	}
	var ev models.RealtimeEvent
	if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
		log.Printf("realtime payload dropped channel=%s: %v", n.Channel, err)
		observability.IncRealtimeEvent("unknown", "unknown", "malformed")
		return
	}
	b.hub.publish(projectID, ev)
}

func (b *PGBroker) handleListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		log.Printf("realtime listener connected")
		b.hub.broadcastStatus(StatusConnected)
	case pq.ListenerEventDisconnected:
		log.Printf("realtime listener disconnected: %v", err)
		observability.IncRealtimeStatus(string(StatusDisconnected))
		b.hub.broadcastStatus(StatusDisconnected)
	case pq.ListenerEventReconnected:
		log.Printf("realtime listener reconnected")
		observability.IncRealtimeStatus(string(StatusReconnected))
		b.hub.broadcastStatus(StatusReconnected)
	case pq.ListenerEventConnectionAttemptFailed:
		log.Printf("realtime listener reconnect attempt failed: %v", err)
	}
}
