package channel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lettera-hq/notifier/internal/prefs"
)

const wsWriteWait = 5 * time.Second

// Conn is one live websocket attachment for a user.
type Conn struct {
	ws     *websocket.Conn
	userID string
}

// Hub tracks live websocket connections per user. Each user may hold
// several connections (multiple tabs, devices); a frame goes to all of
// them.
type Hub struct {
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		conns:  make(map[string]map[*Conn]struct{}),
	}
}

// Attach registers a websocket connection for a user and returns the
// handle needed to detach it.
func (h *Hub) Attach(userID string, ws *websocket.Conn) *Conn {
	c := &Conn{ws: ws, userID: userID}

	h.mu.Lock()
	if _, ok := h.conns[userID]; !ok {
		h.conns[userID] = make(map[*Conn]struct{})
	}
	h.conns[userID][c] = struct{}{}
	total := len(h.conns[userID])
	h.mu.Unlock()

	h.logger.Debug("websocket attached", "user_id", userID, "connections", total)
	return c
}

// Detach removes a connection and closes the underlying socket.
func (h *Hub) Detach(c *Conn) {
	h.mu.Lock()
	if set, ok := h.conns[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, c.userID)
		}
	}
	h.mu.Unlock()

	_ = c.ws.Close()
	h.logger.Debug("websocket detached", "user_id", c.userID)
}

// Publish writes a JSON frame to every live connection of a user and
// reports how many connections received it. Broken connections are
// detached as they are found.
func (h *Hub) Publish(userID string, frame any) int {
	h.mu.RLock()
	set := h.conns[userID]
	targets := make([]*Conn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.ws.WriteJSON(frame); err != nil {
			h.logger.Warn("websocket write failed", "user_id", userID, "error", err)
			h.Detach(c)
			continue
		}
		delivered++
	}
	return delivered
}

// Connected reports whether the user has at least one live connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// inAppFrame is the wire shape pushed over the websocket stream.
type inAppFrame struct {
	NotificationID string `json:"notificationId"`
	Type           string `json:"type"`
	Priority       string `json:"priority"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	ResourceID     string `json:"resourceId,omitempty"`
	Digest         bool   `json:"digest,omitempty"`
	ItemCount      int    `json:"itemCount,omitempty"`
}

// InAppSender pushes notifications to live websocket sessions. The inbox
// row is persisted before dispatch, so an offline user is not a failure:
// they see the notification on their next fetch.
type InAppSender struct {
	hub *Hub
}

func NewInAppSender(hub *Hub) *InAppSender {
	return &InAppSender{hub: hub}
}

func (s *InAppSender) Channel() prefs.Channel { return prefs.ChannelInApp }

func (s *InAppSender) Send(_ context.Context, rcpt Recipient, msg Message) error {
	s.hub.Publish(rcpt.UserID, inAppFrame{
		NotificationID: msg.NotificationID,
		Type:           string(msg.EventType),
		Priority:       string(msg.Priority),
		Title:          msg.Title,
		Body:           msg.Body,
		ResourceID:     msg.ResourceID,
		Digest:         msg.Digest,
		ItemCount:      msg.ItemCount,
	})
	return nil
}
