package models

// SessionState is the lifecycle of the engine connection, independent of individual messages.
type SessionState string

const (
	StateInitializing SessionState = "initializing"
	StateIdle         SessionState = "idle"
	StateStreaming    SessionState = "streaming"
	// StateUnavailable is terminal: the engine failed to initialize and is never retried.
	StateUnavailable SessionState = "unavailable"
	StateClosed      SessionState = "closed"
)

// EngineConfig holds the sampling parameters handed to the engine on initialization.
type EngineConfig struct {
	Temperature float64
	TopP        float64
}
