package model

import "time"

// MessageType distinguishes plain text messages from file attachments.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

// ChatMessage is one entry in the room's append-only history. Immutable once created.
// For image/file messages FileRef holds the id of a file already ingested by the
// file store; the room never stores binary content itself.
type ChatMessage struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Type      MessageType `json:"type"`
	Text      string      `json:"message,omitempty"`
	FileRef   string      `json:"file_ref,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Presence is one joined chat participant and their typing state.
type Presence struct {
	Username string `json:"username"`
	Typing   bool   `json:"typing"`
}
