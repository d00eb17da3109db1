package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MegaGrindStone/garfield-web-ui/internal/services"
)

func TestScriptedCyclesReplies(t *testing.T) {
	s := services.NewScripted([]string{"Ugh... Mondays.", "Mmm... lasagna."}, 0)

	want := []string{"Ugh... Mondays.", "Mmm... lasagna.", "Ugh... Mondays."}
	for _, w := range want {
		var chunks []string
		for d, err := range s.StreamCompletion(context.Background(), nil) {
			if err != nil {
				t.Fatalf("StreamCompletion() error = %v", err)
			}
			chunks = append(chunks, d)
		}
		if len(chunks) != 2 {
			t.Errorf("chunks = %q, want two words", chunks)
		}
		if got := strings.Join(chunks, ""); got != w {
			t.Errorf("reply = %q, want %q", got, w)
		}
		final, err := s.FinalMessage(context.Background())
		if err != nil || final != w {
			t.Errorf("FinalMessage() = %q, %v, want %q", final, err, w)
		}
	}
}

func TestScriptedCanceled(t *testing.T) {
	s := services.NewScripted(nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range s.StreamCompletion(ctx, nil) {
		gotErr = err
	}
	if !errors.Is(gotErr, context.Canceled) {
		t.Errorf("StreamCompletion() error = %v, want %v", gotErr, context.Canceled)
	}
	if _, err := s.FinalMessage(context.Background()); !errors.Is(err, services.ErrNoReply) {
		t.Errorf("FinalMessage() error = %v, want %v", err, services.ErrNoReply)
	}
}
