package mood

import (
	"sync"
	"time"

	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
)

// DefaultResetDelay is how long a non-default mood stays before falling back to the default one.
const DefaultResetDelay = 3 * time.Second

// Tracker holds the current mood and at most one pending reset timer.
type Tracker struct {
	delay    time.Duration
	onChange func(models.Mood)

	mu      sync.Mutex
	current models.Mood
	timer   *time.Timer
	// gen identifies the latest Apply. A timer whose generation is stale must not reset anything,
	// even when it fired before Stop could disarm it.
	gen uint64
}

// NewTracker creates a Tracker starting at MoodDefault. onChange is called, without any Tracker lock
// held, when a timer resets the mood. It may be nil. A non-positive delay uses DefaultResetDelay.
func NewTracker(delay time.Duration, onChange func(models.Mood)) *Tracker {
	if delay <= 0 {
		delay = DefaultResetDelay
	}
	return &Tracker{
		delay:    delay,
		onChange: onChange,
		current:  models.MoodDefault,
	}
}

// Current returns the mood on display.
func (t *Tracker) Current() models.Mood {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Apply cancels any pending reset, sets the mood immediately and, unless it is the default mood,
// arms a reset timer.
func (t *Tracker) Apply(m models.Mood) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.disarm()
	t.current = m
	if m == models.MoodDefault {
		return
	}

	gen := t.gen
	t.timer = time.AfterFunc(t.delay, func() { t.expire(gen) })
}

// Stop disarms the pending reset, if any, and leaves the current mood untouched.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disarm()
}

func (t *Tracker) disarm() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.current = models.MoodDefault
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(models.MoodDefault)
	}
}
