package realtime

import (
	"sync"

	"project-comms/internal/models"
)

// hub maintains the subscribers of every project channel.
type hub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Subscription]struct{}
	bufferSize int
}

func newHub(bufferSize int) *hub {
	return &hub{
		rooms:      make(map[string]map[*Subscription]struct{}),
		bufferSize: bufferSize,
	}
}

// add registers sub and reports whether it is the first subscriber of its project.
func (h *hub) add(sub *Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[sub.projectID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.rooms[sub.projectID] = subs
	}
	subs[sub] = struct{}{}
	return !ok
}

// remove unregisters sub and reports whether its project has no subscribers left.
func (h *hub) remove(sub *Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[sub.projectID]
	if !ok {
		return false
	}
	if _, present := subs[sub]; !present {
		return false
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.rooms, sub.projectID)
		return true
	}
	return false
}

// publish delivers ev to the project's subscribers and returns how many accepted it.
func (h *hub) publish(projectID string, ev models.RealtimeEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for sub := range h.rooms[projectID] {
		if sub.deliver(ev) {
			delivered++
		}
	}
	return delivered
}

func (h *hub) broadcastStatus(st Status) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, subs := range h.rooms {
		for sub := range subs {
			sub.notify(st)
		}
	}
}

func (h *hub) projects() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
