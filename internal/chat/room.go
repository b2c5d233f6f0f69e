// Package chat holds the shared room: ordered message history, the presence
// set, and typing state. All of it lives in memory; history is unbounded and
// replayed in full to newly joined sessions.
package chat

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fileshare/internal/eventbus"
	"fileshare/internal/model"
)

var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrEmptyMessage    = errors.New("empty message")
	ErrUnknownType     = errors.New("unknown message type")
)

// MinUsernameLen is the shortest username Join accepts.
const MinUsernameLen = 2

// Files lets Post verify that an attachment was ingested by the file store
// before it is referenced from history.
type Files interface {
	GetFile(fileID string) (*model.File, error)
}

type presence struct {
	username string
	typing   bool
}

// Room is the single shared chat room. One mutex guards history, the
// sequence counter, and presence; the sequence id is assigned under the lock
// before the NewMessage event is published, so history order and event order
// agree.
type Room struct {
	mu       sync.Mutex
	msgs     []model.ChatMessage
	nextID   int64
	sessions map[string]*presence // by session id
	active   map[string]string    // username -> session id
	bus      *eventbus.Bus
	files    Files
}

// NewRoom constructs an empty Room publishing to bus. files may be nil if
// attachments are not used (tests).
func NewRoom(bus *eventbus.Bus, files Files) *Room {
	return &Room{
		sessions: make(map[string]*presence),
		active:   make(map[string]string),
		bus:      bus,
		files:    files,
	}
}

// Join creates a presence entry and returns the session id. Usernames
// shorter than MinUsernameLen, or exactly matching an already-active
// username (case-sensitive), are rejected.
func (r *Room) Join(username string) (string, error) {
	if len(strings.TrimSpace(username)) < MinUsernameLen {
		return "", fmt.Errorf("%w: %q is too short", ErrInvalidUsername, username)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.active[username]; taken {
		return "", fmt.Errorf("%w: %q is already active", ErrInvalidUsername, username)
	}
	id := uuid.NewString()
	r.sessions[id] = &presence{username: username}
	r.active[username] = id
	return id, nil
}

// Leave removes the session's presence entry. Idempotent; history is never
// retroactively altered.
func (r *Room) Leave(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)
	if r.active[p.username] == sessionID {
		delete(r.active, p.username)
	}
}

// Post appends a message to history and publishes NewMessage. For text the
// payload is the message body; for image/file it is the id of a file already
// present in the file store.
func (r *Room) Post(username string, typ model.MessageType, payload string) (*model.ChatMessage, error) {
	msg := model.ChatMessage{
		Username: username,
		Type:     typ,
	}
	switch typ {
	case model.MessageText:
		if strings.TrimSpace(payload) == "" {
			return nil, ErrEmptyMessage
		}
		msg.Text = payload
	case model.MessageImage, model.MessageFile:
		if r.files == nil {
			return nil, fmt.Errorf("attachments unsupported: no file store")
		}
		if _, err := r.files.GetFile(payload); err != nil {
			return nil, fmt.Errorf("attachment %s: %w", payload, err)
		}
		msg.FileRef = payload
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	r.mu.Lock()
	r.nextID++
	msg.ID = r.nextID
	msg.Timestamp = time.Now().UTC()
	r.msgs = append(r.msgs, msg)
	if r.bus != nil {
		r.bus.Publish(eventbus.Event{Kind: eventbus.NewMessage, Origin: username, Payload: msg})
	}
	r.mu.Unlock()

	return &msg, nil
}

// SetTyping updates the presence entry and publishes the typing change.
// The event's Origin carries the username so the transport layer can
// suppress the sender's own indicator. A username that never joined is
// ignored; no event is published for it.
func (r *Room) SetTyping(username string, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.active[username]
	if !ok {
		return
	}
	r.sessions[id].typing = isTyping
	kind := eventbus.UserTyping
	if !isTyping {
		kind = eventbus.UserStopTyping
	}
	if r.bus != nil {
		r.bus.Publish(eventbus.Event{
			Kind:    kind,
			Origin:  username,
			Payload: model.Presence{Username: username, Typing: isTyping},
		})
	}
}

// History returns the full ordered message sequence. Repeated calls return
// the same content until a new message arrives.
func (r *Room) History() []model.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ChatMessage, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// Present returns the current presence set in unspecified order.
func (r *Room) Present() []model.Presence {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Presence, 0, len(r.sessions))
	for _, p := range r.sessions {
		out = append(out, model.Presence{Username: p.username, Typing: p.typing})
	}
	return out
}
