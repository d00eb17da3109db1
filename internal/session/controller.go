package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MegaGrindStone/garfield-web-ui/internal/conversation"
	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
	"github.com/MegaGrindStone/garfield-web-ui/internal/mood"
)

// Controller owns one chat session: the engine, the conversation buffer, the mood and the timers.
// Only one turn runs at a time; a message submitted meanwhile is rejected.
type Controller struct {
	engine Engine
	opts   Options
	logger *slog.Logger

	// ctx bounds engine calls. It is canceled only by Close.
	ctx    context.Context
	cancel context.CancelFunc
	turns  sync.WaitGroup

	mu            sync.Mutex
	buffer        *conversation.Buffer
	mood          *mood.Tracker
	state         models.SessionState
	initStarted   bool
	greeting      bool
	greetingTimer *time.Timer
	lastErr       string
	version       uint64
	subs          []subscription
	nextSubID     int
}

// New creates a Controller in the initializing state. Call Initialize before sending messages.
func New(engine Engine, opts Options, logger *slog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		engine: engine,
		opts:   opts.withDefaults(),
		logger: logger.With(slog.String("module", "session")),
		ctx:    ctx,
		cancel: cancel,
		buffer: conversation.NewBuffer(),
		state:  models.StateInitializing,
	}
	c.mood = mood.NewTracker(c.opts.MoodResetDelay, c.moodReset)
	return c
}

// Initialize loads the engine. On failure the session becomes permanently unavailable and the
// returned error wraps ErrInitialization. Close cancels a running Initialize and waits for it.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initStarted || c.state != models.StateInitializing {
		c.mu.Unlock()
		return fmt.Errorf("%w: initialize called twice", ErrUnavailable)
	}
	c.initStarted = true
	c.turns.Add(1)
	c.mu.Unlock()
	defer c.turns.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	c.logger.Info("Initializing engine", slog.String("model", c.opts.ModelID))
	err := c.engine.Initialize(ctx, c.opts.ModelID, c.opts.EngineConfig)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == models.StateClosed {
		return ErrUnavailable
	}

	if err != nil {
		c.logger.Error("Failed to initialize engine",
			slog.String("model", c.opts.ModelID),
			slog.String(errLoggerKey, err.Error()))
		c.state = models.StateUnavailable
		c.lastErr = err.Error()
		c.publishLocked(EventState)
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	c.logger.Info("Engine ready", slog.String("model", c.opts.ModelID))
	c.state = models.StateIdle
	c.greeting = true
	c.greetingTimer = time.AfterFunc(c.opts.GreetingDuration, c.hideGreeting)
	c.publishLocked(EventState)
	return nil
}

// SendMessage runs one turn to completion. It returns ErrEmptyMessage, ErrUnavailable or
// ErrTurnInProgress without touching the conversation, or the turn's error wrapping ErrStream.
// If ctx ends first SendMessage returns ctx.Err() and the turn keeps running.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	done, err := c.StartMessage(text)
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartMessage appends the user message and starts generating the reply in the background. The
// returned channel receives the turn's result once and is then closed.
func (c *Controller) StartMessage(text string) (<-chan error, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case models.StateIdle:
	case models.StateStreaming:
		c.logger.Warn("Message dropped, reply in progress")
		return nil, ErrTurnInProgress
	default:
		return nil, fmt.Errorf("%w: session is %s", ErrUnavailable, c.state)
	}

	userMsg := models.NewMessage(models.RoleUser, text)
	request := c.requestMessagesLocked(userMsg)

	c.buffer.Append(userMsg)
	c.state = models.StateStreaming
	c.lastErr = ""
	c.publishLocked(EventState)
	c.publishLocked(EventScroll)

	done := make(chan error, 1)
	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		defer close(done)
		done <- c.runTurn(request)
	}()

	return done, nil
}

// requestMessagesLocked builds the request: the system preamble, the last ContextWindow messages
// before userMsg, then userMsg.
func (c *Controller) requestMessagesLocked(userMsg models.Message) []models.Message {
	prior := c.buffer.Window(c.opts.ContextWindow)

	msgs := make([]models.Message, 0, len(prior)+2)
	msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: c.opts.SystemPrompt})
	msgs = append(msgs, prior...)
	msgs = append(msgs, userMsg)
	return msgs
}

func (c *Controller) runTurn(request []models.Message) (err error) {
	defer func() { c.endTurn(err) }()

	var reply strings.Builder
	for delta, streamErr := range c.engine.StreamCompletion(c.ctx, request) {
		if streamErr != nil {
			return fmt.Errorf("%w: %w", ErrStream, streamErr)
		}
		if delta == "" {
			continue
		}
		reply.WriteString(delta)
		c.applyDelta(reply.String())
	}

	c.mu.Lock()
	c.mood.Apply(mood.Classify(reply.String()))
	c.publishLocked(EventState)
	c.mu.Unlock()

	final, finalErr := c.engine.FinalMessage(c.ctx)
	if finalErr != nil {
		return fmt.Errorf("%w: fetch final message: %w", ErrStream, finalErr)
	}
	c.finalize(final)

	return nil
}

func (c *Controller) applyDelta(reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buffer.HasOpen() {
		// SetOpen cannot fail while HasOpen holds.
		_ = c.buffer.SetOpen(reply)
	} else {
		c.buffer.Open(reply)
	}
	c.mood.Apply(mood.Classify(reply))

	c.publishLocked(EventState)
	c.publishLocked(EventScroll)
}

func (c *Controller) finalize(final string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.buffer.HasOpen():
		_ = c.buffer.SetOpen(final)
	case final != "":
		c.buffer.Open(final)
	default:
		return
	}
	c.buffer.Close()

	c.publishLocked(EventState)
	c.publishLocked(EventScroll)
}

func (c *Controller) endTurn(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buffer.Close()
	if err != nil {
		c.logger.Error("Turn failed", slog.String(errLoggerKey, err.Error()))
		c.lastErr = err.Error()
	}
	if c.state == models.StateStreaming {
		c.state = models.StateIdle
	}
	c.publishLocked(EventState)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Messages:  c.buffer.Messages(),
		Mood:      c.mood.Current(),
		State:     c.state,
		LastError: c.lastErr,
		Version:   c.version,
	}
	if c.greeting {
		s.Greeting = c.opts.Greeting
	}
	return s
}

// Subscribe registers an observer and returns a function that removes it.
func (c *Controller) Subscribe(o Observer) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subs = append(c.subs, subscription{id: id, observer: o})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs = slices.DeleteFunc(c.subs, func(s subscription) bool { return s.id == id })
	}
}

func (c *Controller) publishLocked(t EventType) {
	c.version++
	e := Event{Type: t, Snapshot: c.snapshotLocked()}
	for _, s := range c.subs {
		s.observer(e)
	}
}

func (c *Controller) moodReset(models.Mood) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == models.StateClosed {
		return
	}
	c.publishLocked(EventState)
}

func (c *Controller) hideGreeting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.greeting || c.state == models.StateClosed {
		return
	}
	c.greeting = false
	c.publishLocked(EventState)
}

// Close rejects further messages, waits for a running Initialize or turn to end, stops the timers
// and tears the engine down. The session is unusable afterwards.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state == models.StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = models.StateClosed
	c.greeting = false
	if c.greetingTimer != nil {
		c.greetingTimer.Stop()
	}
	c.publishLocked(EventState)
	c.mu.Unlock()

	c.cancel()
	c.turns.Wait()

	// A turn that was still running may have armed a new reset timer.
	c.mood.Stop()

	if err := c.engine.Teardown(ctx); err != nil {
		return fmt.Errorf("failed to tear down engine: %w", err)
	}
	return nil
}
