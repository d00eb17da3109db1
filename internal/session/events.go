package session

import (
	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
)

// EventType tells observers what happened.
type EventType string

const (
	// EventState is published after any change of the snapshot.
	EventState EventType = "state"
	// EventScroll asks the presentation to scroll the history to its newest message. It follows every
	// mutation of the message list.
	EventScroll EventType = "scroll"
)

// Snapshot is a read-only copy of the session state for rendering.
type Snapshot struct {
	Messages []models.Message
	Mood     models.Mood
	State    models.SessionState
	// Greeting is the text of the greeting bubble, empty once it is hidden.
	Greeting string
	// LastError describes why the last turn or the initialization failed, empty otherwise.
	LastError string
	// Version increases with every published event.
	Version uint64
}

// Initializing reports whether the engine is still loading.
func (s Snapshot) Initializing() bool {
	return s.State == models.StateInitializing
}

// Typing reports whether a reply is streaming.
func (s Snapshot) Typing() bool {
	return s.State == models.StateStreaming
}

// InputEnabled reports whether a new message would be accepted.
func (s Snapshot) InputEnabled() bool {
	return s.State == models.StateIdle
}

// MoodImage returns the picture file name of the current mood.
func (s Snapshot) MoodImage() string {
	return s.Mood.Image()
}

// Event is delivered to observers.
type Event struct {
	Type     EventType
	Snapshot Snapshot
}

// Observer receives events. It is called synchronously while the controller holds its lock, so it
// must not block on I/O and must not call back into the controller.
type Observer func(Event)

type subscription struct {
	id       int
	observer Observer
}
