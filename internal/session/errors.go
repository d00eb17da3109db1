package session

import "errors"

var (
	// ErrEmptyMessage is returned when the submitted text is blank. Nothing is sent.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrUnavailable is returned when the engine is still initializing, failed to initialize, or the
	// session was closed.
	ErrUnavailable = errors.New("engine is unavailable")
	// ErrTurnInProgress is returned when a message is submitted while a reply is still streaming.
	// The submission is dropped.
	ErrTurnInProgress = errors.New("a reply is still being generated")
	// ErrInitialization wraps the engine error of a failed Initialize.
	ErrInitialization = errors.New("failed to initialize engine")
	// ErrStream wraps an engine error that ended a turn early.
	ErrStream = errors.New("failed to generate reply")
)

const errLoggerKey = "err"
