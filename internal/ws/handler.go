// Package ws implements the subscriber event stream. Each WebSocket
// connection is one anonymous bus identity; it adopts activities and
// receives their lifecycle events until it departs, at which point every
// subscription it held is dropped.
package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/coreplane/activityd/internal/domain/activity"
	"github.com/coreplane/activityd/internal/domain/scheduler"
	"github.com/coreplane/activityd/internal/infrastructure/logging"
	"github.com/coreplane/activityd/internal/infrastructure/monitoring"
	"github.com/coreplane/activityd/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler manages subscriber WebSocket connections.
type Handler struct {
	manager *scheduler.Manager
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(manager *scheduler.Manager, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	return &Handler{manager: manager, metrics: metrics, log: log.Named("ws")}
}

// Message is the inbound message shape.
type Message struct {
	Type       string `json:"type"`
	ActivityID uint64 `json:"activityId,omitempty"`
}

// subscriber adapts one connection to activity.Subscriber. Events are
// queued to a writer goroutine so loop-side notification never blocks on
// the socket.
type subscriber struct {
	id     types.BusID
	events chan interface{}
}

type outEvent struct {
	ActivityID uint64         `json:"activityId"`
	Event      activity.Event `json:"event"`
	Type       string         `json:"type"`
}

// BusID implements activity.Subscriber.
func (s *subscriber) BusID() types.BusID {
	return s.id
}

// Notify implements activity.Subscriber.
func (s *subscriber) Notify(activityID uint64, event activity.Event) {
	select {
	case s.events <- outEvent{ActivityID: activityID, Event: event, Type: "event"}:
	default:
		// Slow consumer; the event is dropped rather than stalling the
		// control plane.
	}
}

// HandleConnection upgrades the socket and serves the subscription
// session.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.WSConnected()
		defer h.metrics.WSDisconnected()
	}

	sub := &subscriber{
		id:     types.AnonBusID(uuid.New().String()),
		events: make(chan interface{}, 64),
	}

	done := make(chan struct{})
	defer close(done)
	go h.writeEvents(conn, sub, done)

	sub.send(gin.H{"type": "hello", "subscriber": sub.id})

	defer h.manager.DropSubscriberEverywhere(sub.id)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			h.log.Debug("WebSocket read error", zap.Error(err))
			return
		}
		h.handleMessage(sub, msg)
	}
}

// send enqueues a control payload behind any pending events. All socket
// writes happen on the writer goroutine.
func (s *subscriber) send(payload interface{}) {
	select {
	case s.events <- payload:
	default:
	}
}

func (h *Handler) handleMessage(sub *subscriber, msg Message) {
	switch msg.Type {
	case "adopt", "subscribe":
		if err := h.manager.Adopt(msg.ActivityID, sub); err != nil {
			h.sendError(sub, msg, err)
			return
		}
		sub.send(gin.H{"type": "adopted", "activityId": msg.ActivityID, "ok": true})
	case "unsubscribe":
		if err := h.manager.DropSubscriber(msg.ActivityID, sub.id); err != nil {
			h.sendError(sub, msg, err)
			return
		}
		sub.send(gin.H{"type": "unsubscribed", "activityId": msg.ActivityID, "ok": true})
	case "complete":
		if err := h.manager.SendCommand(msg.ActivityID, activity.CommandComplete); err != nil {
			h.sendError(sub, msg, err)
			return
		}
		sub.send(gin.H{"type": "completed", "activityId": msg.ActivityID, "ok": true})
	case "ping":
		sub.send(gin.H{"type": "pong"})
	default:
		h.sendError(sub, msg, types.InvalidArg("unknown message type %q", msg.Type))
	}
}

func (h *Handler) writeEvents(conn *websocket.Conn, sub *subscriber, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case event := <-sub.events:
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

func (h *Handler) sendError(sub *subscriber, msg Message, err error) {
	sub.send(gin.H{
		"type":       "error",
		"request":    msg.Type,
		"activityId": msg.ActivityID,
		"ok":         false,
		"errorCode":  types.CodeOf(err),
		"errorText":  err.Error(),
	})
}
