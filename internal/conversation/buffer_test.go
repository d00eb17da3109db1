package conversation_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/MegaGrindStone/garfield-web-ui/internal/conversation"
	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
)

func TestBufferOpenAndClose(t *testing.T) {
	b := conversation.NewBuffer()

	if err := b.SetOpen("x"); !errors.Is(err, conversation.ErrNoOpenMessage) {
		t.Fatalf("SetOpen() on empty buffer error = %v, want %v", err, conversation.ErrNoOpenMessage)
	}

	b.Append(models.NewMessage(models.RoleUser, "I hate Mondays"))
	opened := b.Open("Ugh")
	if !b.HasOpen() {
		t.Fatal("HasOpen() = false after Open()")
	}
	if opened.Role != models.RoleAssistant || opened.ID == "" {
		t.Errorf("Open() = %+v, want assistant message with ID", opened)
	}

	if err := b.SetOpen("Ugh... Mondays."); err != nil {
		t.Fatalf("SetOpen() error = %v", err)
	}
	b.Close()

	if b.HasOpen() {
		t.Error("HasOpen() = true after Close()")
	}
	if err := b.SetOpen("late"); !errors.Is(err, conversation.ErrNoOpenMessage) {
		t.Errorf("SetOpen() after Close() error = %v, want %v", err, conversation.ErrNoOpenMessage)
	}

	last, ok := b.Last()
	if !ok {
		t.Fatal("Last() ok = false")
	}
	if last.Content != "Ugh... Mondays." || last.ID != opened.ID {
		t.Errorf("Last() = %+v, want content %q with ID %q", last, "Ugh... Mondays.", opened.ID)
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
}

func TestBufferAppendClosesOpen(t *testing.T) {
	b := conversation.NewBuffer()
	b.Open("partial")
	b.Append(models.NewMessage(models.RoleUser, "next"))

	if b.HasOpen() {
		t.Error("HasOpen() = true after Append()")
	}
}

func TestBufferWindow(t *testing.T) {
	b := conversation.NewBuffer()
	for i := range 15 {
		b.Append(models.NewMessage(models.RoleUser, fmt.Sprintf("msg %d", i)))
	}

	tests := []struct {
		name      string
		n         int
		wantLen   int
		wantFirst string
	}{
		{name: "last ten", n: 10, wantLen: 10, wantFirst: "msg 5"},
		{name: "more than stored", n: 20, wantLen: 15, wantFirst: "msg 0"},
		{name: "zero", n: 0, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.Window(tt.n)
			if len(got) != tt.wantLen {
				t.Fatalf("Window(%d) len = %d, want %d", tt.n, len(got), tt.wantLen)
			}
			if tt.wantLen > 0 && got[0].Content != tt.wantFirst {
				t.Errorf("Window(%d)[0] = %q, want %q", tt.n, got[0].Content, tt.wantFirst)
			}
		})
	}
}

func TestBufferMessagesIsCopy(t *testing.T) {
	b := conversation.NewBuffer()
	b.Open("original")

	snapshot := b.Messages()
	snapshot[0].Content = "changed"

	last, _ := b.Last()
	if last.Content != "original" {
		t.Errorf("buffer content = %q, want %q", last.Content, "original")
	}
}
