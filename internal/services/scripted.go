package services

import (
	"context"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
)

// DefaultScriptedReplies are used by a Scripted engine created without replies.
var DefaultScriptedReplies = []string{
	"Ugh... Mondays. Do I look like I have answers before lunch?",
	"Hmm, let me think about it... *yawns* Nope. Have you tried a nap?",
	"Seriously, the best advice I can give: eat the lasagna first.",
	"Haha, that's funny. Now go away, I'm busy doing nothing.",
	"Whatever... Mmm... lasagna.",
}

// Scripted is an offline engine that cycles through canned replies, streaming them word by word.
// It lets the front-end run without a model server.
type Scripted struct {
	replies []string
	delay   time.Duration

	mu    sync.Mutex
	next  int
	reply lastReply
}

// NewScripted creates a Scripted engine. delay is the pause before each streamed chunk.
func NewScripted(replies []string, delay time.Duration) *Scripted {
	if len(replies) == 0 {
		replies = DefaultScriptedReplies
	}
	return &Scripted{
		replies: replies,
		delay:   delay,
	}
}

// Initialize accepts any model.
func (s *Scripted) Initialize(context.Context, string, models.EngineConfig) error {
	return nil
}

// StreamCompletion streams the next canned reply, ignoring messages.
func (s *Scripted) StreamCompletion(ctx context.Context, _ []models.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.mu.Lock()
		text := s.replies[s.next%len(s.replies)]
		s.next++
		s.mu.Unlock()

		s.reply.begin()

		for _, chunk := range strings.SplitAfter(text, " ") {
			if s.delay > 0 {
				select {
				case <-time.After(s.delay):
				case <-ctx.Done():
					yield("", ctx.Err())
					return
				}
			}
			if !yield(chunk, nil) {
				return
			}
		}

		s.reply.complete(text)
	}
}

// FinalMessage returns the last reply that streamed to its end.
func (s *Scripted) FinalMessage(context.Context) (string, error) {
	return s.reply.get()
}

// Teardown does nothing.
func (s *Scripted) Teardown(context.Context) error {
	return nil
}
