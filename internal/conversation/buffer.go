// Package conversation holds the ordered message history of a chat session.
package conversation

import (
	"errors"
	"slices"

	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
)

// ErrNoOpenMessage is returned when mutating the trailing assistant message while none is open.
var ErrNoOpenMessage = errors.New("no open assistant message")

// Buffer is an ordered list of messages where at most the trailing assistant message is open, that
// is, still receiving text. Buffer is not safe for concurrent use; its owner serializes access.
type Buffer struct {
	messages []models.Message
	open     bool
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Len returns the number of messages.
func (b *Buffer) Len() int {
	return len(b.messages)
}

// Append adds a closed message. Any open assistant message is closed first, so it is never
// followed by another message while still open.
func (b *Buffer) Append(msg models.Message) {
	b.open = false
	b.messages = append(b.messages, msg)
}

// HasOpen reports whether the trailing assistant message is still receiving text.
func (b *Buffer) HasOpen() bool {
	return b.open
}

// Open appends a new assistant message with the given content and keeps it open.
func (b *Buffer) Open(content string) models.Message {
	msg := models.NewMessage(models.RoleAssistant, content)
	b.Append(msg)
	b.open = true
	return msg
}

// SetOpen replaces the content of the open assistant message.
func (b *Buffer) SetOpen(content string) error {
	if !b.open {
		return ErrNoOpenMessage
	}
	b.messages[len(b.messages)-1].Content = content
	return nil
}

// Close freezes the open assistant message, if any.
func (b *Buffer) Close() {
	b.open = false
}

// Last returns the trailing message and whether the buffer has one.
func (b *Buffer) Last() (models.Message, bool) {
	if len(b.messages) == 0 {
		return models.Message{}, false
	}
	return b.messages[len(b.messages)-1], true
}

// Window returns a copy of at most the last n messages.
func (b *Buffer) Window(n int) []models.Message {
	if n <= 0 {
		return nil
	}
	start := max(len(b.messages)-n, 0)
	return slices.Clone(b.messages[start:])
}

// Messages returns a copy of every message, safe to hand to readers.
func (b *Buffer) Messages() []models.Message {
	return slices.Clone(b.messages)
}
