package ws

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshare/internal/chat"
	"fileshare/internal/eventbus"
	"fileshare/internal/metrics"
	"fileshare/internal/model"
)

type testFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// startServer runs a fiber app with the /ws endpoint on a random local port
// and returns its ws:// base URL.
func startServer(t *testing.T, h *Handler) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use("/ws", h.Upgrade())
	app.Get("/ws", h.Serve())

	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws"
}

func dial(t *testing.T, url, username string) *websocket.Conn {
	t.Helper()

	var (
		conn *websocket.Conn
		err  error
	)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, _, err = websocket.DefaultDialer.Dial(url+"?username="+username, nil)
		if err == nil {
			t.Cleanup(func() { conn.Close() })
			return conn
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("dial %s: %v", url, err)
	return nil
}

func readFrame(t *testing.T, conn *websocket.Conn) testFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f testFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func newTestHandler(t *testing.T, replay int) (*Handler, *chat.Room, *eventbus.Bus) {
	t.Helper()
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	bus := eventbus.New()
	room := chat.NewRoom(bus, nil)
	return NewHandler(room, bus, replay, m), room, bus
}

func TestSessionHistoryAndMessages(t *testing.T) {
	h, room, _ := newTestHandler(t, 0)
	_, err := room.Post("seed", model.MessageText, "welcome")
	require.NoError(t, err)

	url := startServer(t, h)
	conn := dial(t, url, "alice")

	// First frame is the history replay.
	f := readFrame(t, conn)
	require.Equal(t, "chat_history", f.Type)

	var hist []model.ChatMessage
	require.NoError(t, json.Unmarshal(f.Payload, &hist))
	require.Len(t, hist, 1)
	assert.Equal(t, "welcome", hist[0].Text)

	// A posted message comes back as new_message, sender included.
	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":    "chat_message",
		"message": "hello there",
	}))

	f = readFrame(t, conn)
	require.Equal(t, "new_message", f.Type)

	var msg model.ChatMessage
	require.NoError(t, json.Unmarshal(f.Payload, &msg))
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, "hello there", msg.Text)

	// The message is now in room history.
	assert.Len(t, room.History(), 2)
}

func TestTypingFanOutSkipsSender(t *testing.T) {
	h, _, _ := newTestHandler(t, 0)
	url := startServer(t, h)

	alice := dial(t, url, "alice")
	readFrame(t, alice) // chat_history

	bob := dial(t, url, "bob")
	readFrame(t, bob) // chat_history

	require.NoError(t, alice.WriteJSON(map[string]string{"type": "user_typing"}))

	// Bob sees the indicator.
	f := readFrame(t, bob)
	require.Equal(t, "user_typing", f.Type)

	var p model.Presence
	require.NoError(t, json.Unmarshal(f.Payload, &p))
	assert.Equal(t, "alice", p.Username)
	assert.True(t, p.Typing)

	// Alice does not see her own indicator: the next frame she receives is
	// the message she posts afterwards.
	require.NoError(t, alice.WriteJSON(map[string]string{
		"type":    "chat_message",
		"message": "done typing",
	}))
	f = readFrame(t, alice)
	assert.Equal(t, "new_message", f.Type)
}

func TestHistoryReplayCap(t *testing.T) {
	h, room, _ := newTestHandler(t, 2)
	for _, txt := range []string{"one", "two", "three"} {
		_, err := room.Post("seed", model.MessageText, txt)
		require.NoError(t, err)
	}

	url := startServer(t, h)
	conn := dial(t, url, "alice")

	f := readFrame(t, conn)
	require.Equal(t, "chat_history", f.Type)

	var hist []model.ChatMessage
	require.NoError(t, json.Unmarshal(f.Payload, &hist))
	require.Len(t, hist, 2)
	assert.Equal(t, "two", hist[0].Text)
	assert.Equal(t, "three", hist[1].Text)
}

func TestRejectedJoin(t *testing.T) {
	h, _, _ := newTestHandler(t, 0)
	url := startServer(t, h)

	conn := dial(t, url, "x") // too short

	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)

	// The server closes after the error frame.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var dummy testFrame
	assert.Error(t, conn.ReadJSON(&dummy))
}

func TestFileEventsReachClients(t *testing.T) {
	h, _, bus := newTestHandler(t, 0)
	url := startServer(t, h)

	conn := dial(t, url, "alice")
	readFrame(t, conn) // chat_history

	bus.Publish(eventbus.Event{
		Kind:    eventbus.FileUploaded,
		Payload: model.File{ID: "id-1", Name: "a.txt"},
	})

	f := readFrame(t, conn)
	require.Equal(t, "file_uploaded", f.Type)

	var rec model.File
	require.NoError(t, json.Unmarshal(f.Payload, &rec))
	assert.Equal(t, "a.txt", rec.Name)
}
