// Package domain contains core concepts of the chat system.
// This file defines the Message broadcast to every participant of the room.
// Messages are immutable once built and carry their rendered text.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageKind int

const (
	ChatMessage MessageKind = iota
	SystemNotice
)

func (k MessageKind) String() string {
	switch k {
	case ChatMessage:
		return "chat"
	case SystemNotice:
		return "system"
	default:
		return "unknown"
	}
}

// Message represents an immutable line delivered to the room.
type Message struct {
	ID        uuid.UUID // unique identifier
	Kind      MessageKind
	Author    string
	Text      string // already rendered, without line terminator
	CreatedAt time.Time
}

func NewChatMessage(author, content string) Message {
	return newMessage(ChatMessage, author, fmt.Sprintf("%s: %s", author, content))
}

func NewJoinedNotice(name string) Message {
	return newMessage(SystemNotice, name, fmt.Sprintf("%s has joined the room.", name))
}

func NewLeftNotice(name string) Message {
	return newMessage(SystemNotice, name, fmt.Sprintf("%s has left the room.", name))
}

func newMessage(kind MessageKind, author, text string) Message {
	return Message{
		ID:        uuid.New(),
		Kind:      kind,
		Author:    author,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

// Wire returns the bytes written to a socket for this message.
func (m Message) Wire() []byte {
	return append([]byte(m.Text), '\n')
}

// IsSystemNotice reports whether a received line is a join or leave notice.
func IsSystemNotice(line string) bool {
	return strings.HasSuffix(line, " has joined the room.") || strings.HasSuffix(line, " has left the room.")
}
