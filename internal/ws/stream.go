package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"project-comms/internal/communication"
	"project-comms/internal/middleware"
	"project-comms/internal/models"
	"project-comms/internal/observability"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxClientMessage = 4096
)

// Frame types written to a stream.
const (
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

type sessions interface {
	Acquire(ctx context.Context, id communication.Identity) (*communication.Manager, func(), error)
}

// Frame is one server message. Every state change is sent as a full snapshot.
type Frame struct {
	Type     string                  `json:"type"`
	Snapshot *communication.Snapshot `json:"snapshot,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// command is a client request sent over an open stream.
type command struct {
	Type       string `json:"type"`
	Collection string `json:"collection,omitempty"`
}

// StreamHandler serves the project snapshot stream.
type StreamHandler struct {
	hub      *Hub
	sessions sessions
	upgrader websocket.Upgrader
}

// NewStreamHandler constructs a StreamHandler. An empty allowedOrigins accepts any origin.
func NewStreamHandler(hub *Hub, sessions sessions, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin(allowedOrigins)},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		if len(set) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Handle upgrades the connection and streams the caller's project state.
func (h *StreamHandler) Handle(c *gin.Context) {
	projectID := c.Param("project_id")
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ctx, span := otel.Tracer("project-comms/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	role := models.UserRole(principal.Role)
	if !role.Valid() {
		role = models.UserRoleWorker
	}
	mgr, release, err := h.sessions.Acquire(ctx, communication.Identity{
		ProjectID: projectID,
		UserID:    principal.UserID,
		UserName:  principal.Name,
		Role:      role,
	})
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		release()
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		ProjectID:   projectID,
		UserID:      principal.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Add(conn, info)
	observability.IncWSActive(wsKind)
	h.hub.publishEvent(ctx, "ws_connect", info, "")

	go h.serve(context.WithoutCancel(ctx), conn, mgr, release, info)
}

// serve owns every write to conn until the stream ends.
func (h *StreamHandler) serve(ctx context.Context, conn *websocket.Conn, mgr *communication.Manager, release func(), info ConnInfo) {
	ctx, cancel := context.WithCancel(ctx)
	updates, unsubscribe := mgr.Subscribe()
	var closeReason string
	defer func() {
		cancel()
		unsubscribe()
		release()
		h.hub.Remove(info.ProjectID, conn)
		observability.DecWSActive(wsKind)
		h.hub.publishEvent(ctx, "ws_disconnect", info, closeReason)
		conn.Close()
	}()

	commands := make(chan command, 8)
	readErr := make(chan error, 1)
	go readLoop(conn, commands, readErr)

	results := make(chan Frame, 8)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// updates already holds the current snapshot, which becomes the first frame.
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				closeReason = "session closed"
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, closeReason)
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			if err := writeFrame(conn, Frame{Type: FrameSnapshot, Snapshot: &snap}); err != nil {
				closeReason = err.Error()
				h.hub.publishEvent(ctx, "ws_error", info, closeReason)
				return
			}
		case cmd := <-commands:
			go func() {
				if err := runCommand(ctx, mgr, cmd); err != nil {
					select {
					case results <- Frame{Type: FrameError, Error: err.Error()}:
					case <-ctx.Done():
					}
				}
			}()
		case frame := <-results:
			if err := writeFrame(conn, frame); err != nil {
				closeReason = err.Error()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				closeReason = err.Error()
				return
			}
		case err := <-readErr:
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.hub.publishEvent(ctx, "ws_error", info, closeReason)
			}
			return
		}
	}
}

func readLoop(conn *websocket.Conn, commands chan<- command, errs chan<- error) {
	conn.SetReadLimit(maxClientMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errs <- err
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Printf("ws command ignored: %v", err)
			continue
		}
		select {
		case commands <- cmd:
		default:
			log.Printf("ws command dropped type=%s", cmd.Type)
		}
	}
}

// runCommand executes a client command. Its effects reach the client as snapshots.
func runCommand(ctx context.Context, mgr *communication.Manager, cmd command) error {
	switch cmd.Type {
	case "refetch":
		c, ok := communication.ParseCollection(cmd.Collection)
		if !ok {
			return fmt.Errorf("%w: %q", communication.ErrUnknownCollection, cmd.Collection)
		}
		return mgr.Refetch(ctx, c)
	case "reload":
		return mgr.Load(ctx)
	}
	return fmt.Errorf("unknown command %q", cmd.Type)
}

func writeFrame(conn *websocket.Conn, frame Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}
