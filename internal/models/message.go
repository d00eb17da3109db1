package models

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a single entry of the conversation. The trailing assistant message may be
// mutated while its reply is streaming; every other message is frozen.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant represents a message generated by the model.
	RoleAssistant Role = "assistant"
	// RoleSystem represents the preamble that sets up the character. It is never shown to the user.
	RoleSystem Role = "system"
)

// NewMessage creates a message with a fresh ID and the current timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}
