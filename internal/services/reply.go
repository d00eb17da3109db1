package services

import (
	"errors"
	"sync"
)

// ErrNoReply is returned by FinalMessage when no reply has completed since the last request began.
var ErrNoReply = errors.New("no completed reply")

// lastReply keeps the canonical text of the most recent completed reply.
type lastReply struct {
	mu   sync.Mutex
	text string
	done bool
}

func (r *lastReply) begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = ""
	r.done = false
}

func (r *lastReply) complete(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = text
	r.done = true
}

func (r *lastReply) get() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.done {
		return "", ErrNoReply
	}
	return r.text, nil
}
