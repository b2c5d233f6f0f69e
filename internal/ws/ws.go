// Package ws bridges websocket clients to the chat room and the event bus.
// Each connection is one chat session: joined on connect, removed on
// disconnect, with bus events fanned out as JSON frames.
package ws

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"fileshare/internal/chat"
	"fileshare/internal/eventbus"
	"fileshare/internal/metrics"
	"fileshare/internal/model"
)

// Frame is the JSON message format in both directions. Type carries the
// event name; Payload is event-specific.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// inboundMessage is a client frame. Message and MessageType matter only for
// chat_message frames; MessageType defaults to text.
type inboundMessage struct {
	Type        string `json:"type"`
	Message     string `json:"message,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	FileRef     string `json:"file_ref,omitempty"`
}

// Handler owns the websocket endpoint.
type Handler struct {
	room   *chat.Room
	bus    *eventbus.Bus
	replay int
	m      *metrics.Metrics
}

// NewHandler constructs a Handler. replay caps how many history messages a
// newly connected client receives; zero or negative means the full history.
func NewHandler(room *chat.Room, bus *eventbus.Bus, replay int, m *metrics.Metrics) *Handler {
	return &Handler{room: room, bus: bus, replay: replay, m: m}
}

// Upgrade gates the route so only websocket upgrade requests pass through.
func (h *Handler) Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Serve returns the websocket endpoint handler.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(h.session)
}

func (h *Handler) session(conn *websocket.Conn) {
	defer conn.Close()

	username := conn.Query("username")
	sessionID, err := h.room.Join(username)
	if err != nil {
		_ = conn.WriteJSON(Frame{Type: "error", Payload: map[string]string{"error": err.Error()}})
		return
	}

	sub := h.bus.Subscribe()
	h.m.WSConnections.Inc()
	defer func() {
		h.bus.Unsubscribe(sub)
		h.room.Leave(sessionID)
		h.m.WSConnections.Dec()
	}()

	// WriteJSON is not safe for concurrent use; the fan-out goroutine and
	// the read loop share this mutex.
	var wmu sync.Mutex
	send := func(f Frame) error {
		wmu.Lock()
		defer wmu.Unlock()
		return conn.WriteJSON(f)
	}

	hist := h.room.History()
	if h.replay > 0 && len(hist) > h.replay {
		hist = hist[len(hist)-h.replay:]
	}
	if err := send(Frame{Type: "chat_history", Payload: hist}); err != nil {
		return
	}

	go func() {
		for e := range sub.C {
			// A client renders its own typing state locally.
			if e.Origin == username && (e.Kind == eventbus.UserTyping || e.Kind == eventbus.UserStopTyping) {
				continue
			}
			if err := send(Frame{Type: string(e.Kind), Payload: e.Payload}); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}

		switch msg.Type {
		case "chat_message":
			typ := model.MessageType(msg.MessageType)
			if typ == "" {
				typ = model.MessageText
			}
			payload := msg.Message
			if typ != model.MessageText {
				payload = msg.FileRef
			}
			if _, err := h.room.Post(username, typ, payload); err != nil {
				_ = send(Frame{Type: "error", Payload: map[string]string{"error": err.Error()}})
				continue
			}
			h.m.ChatMessages.Inc()

		case "user_typing":
			h.room.SetTyping(username, true)

		case "user_stop_typing":
			h.room.SetTyping(username, false)

		default:
			_ = send(Frame{Type: "error", Payload: map[string]string{"error": "unknown message type: " + msg.Type}})
		}
	}
}
