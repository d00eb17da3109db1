package handlers

import (
	"context"
	"html/template"
	"log/slog"
	"sync"
	"time"

	garfieldwebui "github.com/MegaGrindStone/garfield-web-ui"
	"github.com/MegaGrindStone/garfield-web-ui/internal/session"
	"github.com/tmaxmax/go-sse"
	"github.com/yuin/goldmark"
)

// Session is the chat session the handlers present. It accepts messages and reports every change of
// its state to subscribed observers.
type Session interface {
	StartMessage(text string) (<-chan error, error)
	Snapshot() session.Snapshot
	Subscribe(o session.Observer) func()
}

// Main serves the chat page, accepts messages and pushes state changes to browsers with server-sent
// events.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template
	markdown  goldmark.Markdown

	session     Session
	unsubscribe func()
	loadingText string

	// Session events are coalesced here until forward publishes them.
	pendingMu     sync.Mutex
	pending       *session.Snapshot
	pendingScroll bool
	wake          chan struct{}
	done          chan struct{}
	stopOnce      sync.Once

	logger *slog.Logger
}

const errLoggerKey = "err"

// DefaultLoadingText is shown while the engine is still initializing.
const DefaultLoadingText = "Garfield is busy eating lasagna... Jeez, why don't you just wait a minute?"

// SSE event types for real-time updates.
var (
	stateSSEType  = sse.Type("state")
	scrollSSEType = sse.Type("scroll")
)

// NewMain creates a Main presenting sess. It parses the required HTML templates from the embedded
// filesystem and subscribes to the session, so every state change is published to connected
// browsers until Shutdown.
func NewMain(sess Session, loadingText string, logger *slog.Logger) (*Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		garfieldwebui.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return nil, err
	}

	if loadingText == "" {
		loadingText = DefaultLoadingText
	}

	m := &Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      []string{sse.DefaultTopic},
				}, true
			},
		},
		templates:   tmpl,
		markdown:    newMarkdown(),
		session:     sess,
		loadingText: loadingText,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		logger:      logger.With(slog.String("module", "main")),
	}
	go m.forward()
	m.unsubscribe = sess.Subscribe(m.publish)

	return m, nil
}

// publish records a session event. It runs under the session's lock, so it only keeps the newest
// snapshot and wakes forward.
func (m *Main) publish(e session.Event) {
	m.pendingMu.Lock()
	switch e.Type {
	case session.EventState:
		snap := e.Snapshot
		m.pending = &snap
	case session.EventScroll:
		m.pendingScroll = true
	default:
		m.pendingMu.Unlock()
		return
	}
	m.pendingMu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// forward renders the pending state and pushes it to the browsers until Shutdown. Intermediate
// snapshots that arrive while a publish is blocked are dropped in favor of the newest one.
func (m *Main) forward() {
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}

		m.pendingMu.Lock()
		snap, scroll := m.pending, m.pendingScroll
		m.pending, m.pendingScroll = nil, false
		m.pendingMu.Unlock()

		if snap != nil {
			m.publishState(*snap)
		}
		if scroll {
			msg := &sse.Message{Type: scrollSSEType}
			msg.AppendData("bottom")
			m.publishMessage(string(session.EventScroll), msg)
		}
	}
}

func (m *Main) publishState(s session.Snapshot) {
	data, err := m.stateJSON(s)
	if err != nil {
		m.logger.Error("Failed to render state",
			slog.Uint64("version", s.Version),
			slog.String(errLoggerKey, err.Error()))
		return
	}
	msg := &sse.Message{Type: stateSSEType}
	msg.AppendData(string(data))
	m.publishMessage(string(session.EventState), msg)
}

func (m *Main) publishMessage(eventType string, msg *sse.Message) {
	if err := m.sseSrv.Publish(msg); err != nil {
		m.logger.Error("Failed to publish event",
			slog.String("type", eventType),
			slog.String(errLoggerKey, err.Error()))
	}
}

// Shutdown stops forwarding session events and gracefully terminates the SSE server. It broadcasts
// a close message to all connected clients and waits up to 5 seconds for connections to terminate.
// After the timeout, any remaining connections are forcefully closed.
func (m *Main) Shutdown(ctx context.Context) error {
	m.unsubscribe()
	m.stopOnce.Do(func() { close(m.done) })

	e := &sse.Message{Type: sse.Type("closeChat")}
	// We create a close event that complies with SSE spec requiring data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
