package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"project-comms/internal/observability"
	"project-comms/internal/telemetry"
)

const (
	wsKind       = "project"
	wsRoutingKey = "ws_events.projects"
)

// Hub tracks the open snapshot streams per project.
type Hub struct {
	rooms  map[string]map[*websocket.Conn]ConnInfo
	events *telemetry.EventEmitter
	mu     sync.RWMutex
}

// NewHub creates an empty hub. events may be nil.
func NewHub(events *telemetry.EventEmitter) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*websocket.Conn]ConnInfo),
		events: events,
	}
}

// Add registers a stream of a project.
func (h *Hub) Add(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[info.ProjectID]; !ok {
		h.rooms[info.ProjectID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.rooms[info.ProjectID][conn] = info
}

// Remove unregisters a stream.
func (h *Hub) Remove(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[projectID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, projectID)
		}
	}
}

// Count returns the number of open streams of a project.
func (h *Hub) Count(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}

// Shutdown sends a going-away close frame to every stream.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	var conns []*websocket.Conn
	for _, room := range h.rooms {
		for conn := range room {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	deadline := time.Now().Add(time.Second)
	for _, conn := range conns {
		if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Printf("websocket close frame failed: %v", err)
		}
	}
}

// publishEvent records a connection lifecycle event.
func (h *Hub) publishEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(wsKind, event)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        wsKind,
			"resource_id": info.ProjectID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":    info.UserID,
			"device_id":  info.DeviceID,
			"ip":         info.IP,
			"request_id": info.RequestID,
			"trace_id":   info.TraceID,
		},
	}
	_ = h.events.Emit(context.WithoutCancel(ctx), wsRoutingKey, "ws_events."+event, info.ProjectID, info.UserID, payload)
}
