package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
	"github.com/MegaGrindStone/garfield-web-ui/internal/services"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tmaxmax/go-sse"
)

type fakeOpenAI struct {
	model  string
	chunks []string
	status int

	mu       sync.Mutex
	requests []goopenai.ChatCompletionRequest
}

func (f *fakeOpenAI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/v1/models/")
		w.Header().Set("Content-Type", "application/json")
		if id != f.model {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `{"error":{"message":"model %s not found","type":"invalid_request_error"}}`, id)
			return
		}
		fmt.Fprintf(w, `{"id":%q,"object":"model","created":0,"owned_by":"local"}`, id)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req goopenai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		if f.status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range f.chunks {
			chunk := goopenai.ChatCompletionStreamResponse{
				ID:     "chunk",
				Object: "chat.completion.chunk",
				Model:  req.Model,
				Choices: []goopenai.ChatCompletionStreamChoice{
					{Delta: goopenai.ChatCompletionStreamChoiceDelta{Content: c}},
				},
			}
			data, _ := json.Marshal(chunk)
			writeSSE(w, string(data))
		}
		writeSSE(w, "[DONE]")
	})
	return mux
}

func writeSSE(w http.ResponseWriter, data string) {
	m := &sse.Message{}
	m.AppendData(data)
	_, _ = m.WriteTo(w)
}

func newOpenAI(t *testing.T, f *fakeOpenAI) *services.OpenAI {
	t.Helper()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	return services.NewOpenAI(srv.URL+"/v1", "local", testLogger())
}

func TestOpenAIInitialize(t *testing.T) {
	f := &fakeOpenAI{model: "Llama-3.2-3B-Instruct-q4f32_1-MLC"}
	o := newOpenAI(t, f)

	if err := o.Initialize(context.Background(), "missing", models.EngineConfig{}); err == nil {
		t.Error("Initialize() with unknown model error = nil, want error")
	}
	if err := o.Initialize(context.Background(), f.model, models.EngineConfig{}); err != nil {
		t.Errorf("Initialize() error = %v", err)
	}
}

func TestOpenAIStreamCompletion(t *testing.T) {
	f := &fakeOpenAI{model: "llama", chunks: []string{"Hmm", ", maybe ", "a nap."}}
	o := newOpenAI(t, f)

	if err := o.Initialize(context.Background(), "llama", models.EngineConfig{Temperature: 1, TopP: 0.5}); err != nil {
		t.Fatal(err)
	}

	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "be Garfield"},
		{Role: models.RoleUser, Content: "What should I do?"},
	}
	var sb strings.Builder
	for d, err := range o.StreamCompletion(context.Background(), msgs) {
		if err != nil {
			t.Fatalf("StreamCompletion() error = %v", err)
		}
		sb.WriteString(d)
	}

	if sb.String() != "Hmm, maybe a nap." {
		t.Errorf("streamed = %q, want %q", sb.String(), "Hmm, maybe a nap.")
	}
	final, err := o.FinalMessage(context.Background())
	if err != nil || final != "Hmm, maybe a nap." {
		t.Errorf("FinalMessage() = %q, %v, want %q", final, err, "Hmm, maybe a nap.")
	}

	f.mu.Lock()
	req := f.requests[0]
	f.mu.Unlock()
	if !req.Stream || req.Temperature != 1 || req.TopP != 0.5 || len(req.Messages) != 2 {
		t.Errorf("request = %+v", req)
	}
}

func TestOpenAIStreamCompletionError(t *testing.T) {
	f := &fakeOpenAI{model: "llama", status: http.StatusServiceUnavailable}
	o := newOpenAI(t, f)
	if err := o.Initialize(context.Background(), "llama", models.EngineConfig{}); err != nil {
		t.Fatal(err)
	}

	var gotErr error
	for _, err := range o.StreamCompletion(context.Background(), nil) {
		if err != nil {
			gotErr = err
		}
	}
	if gotErr == nil {
		t.Fatal("StreamCompletion() error = nil, want error")
	}
	if _, err := o.FinalMessage(context.Background()); err == nil {
		t.Error("FinalMessage() after failed stream error = nil, want error")
	}
}
