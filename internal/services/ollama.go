package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
	"github.com/ollama/ollama/api"
)

// Ollama is an engine backed by a local Ollama server. It streams chat completions and keeps the
// text of the last completed reply for FinalMessage.
type Ollama struct {
	client *api.Client
	logger *slog.Logger

	mu    sync.Mutex
	model string
	cfg   models.EngineConfig
	reply lastReply
}

// NewOllama creates an Ollama engine talking to host. An empty host falls back to the OLLAMA_HOST
// environment variable and then to Ollama's default address.
func NewOllama(host string, logger *slog.Logger) (*Ollama, error) {
	var client *api.Client
	if host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("error creating ollama client: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		client = api.NewClient(u, &http.Client{})
	}

	return &Ollama{
		client: client,
		logger: logger.With(slog.String("module", "ollama")),
	}, nil
}

// Initialize checks the server is up and has the model, then loads the model into memory with an
// empty generate request so the first reply does not pay the load time.
func (o *Ollama) Initialize(ctx context.Context, modelID string, cfg models.EngineConfig) error {
	if err := o.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama server is not reachable: %w", err)
	}

	if _, err := o.client.Show(ctx, &api.ShowRequest{Model: modelID}); err != nil {
		return fmt.Errorf("model %s is not available: %w", modelID, err)
	}

	// Recorded before the warm-up so Teardown unloads a model whose load was interrupted.
	o.mu.Lock()
	o.model = modelID
	o.cfg = cfg
	o.mu.Unlock()

	if err := o.client.Generate(ctx, &api.GenerateRequest{Model: modelID}, func(api.GenerateResponse) error {
		return nil
	}); err != nil {
		return fmt.Errorf("error loading model %s: %w", modelID, err)
	}

	o.logger.Debug("Model loaded", slog.String("model", modelID))
	return nil
}

// StreamCompletion streams the reply of the model to messages.
func (o *Ollama) StreamCompletion(ctx context.Context, messages []models.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		o.mu.Lock()
		model, cfg := o.model, o.cfg
		o.mu.Unlock()

		msgs := make([]api.Message, len(messages))
		for i, msg := range messages {
			msgs[i] = api.Message{
				Role:    string(msg.Role),
				Content: msg.Content,
			}
		}

		t := true
		req := api.ChatRequest{
			Model:    model,
			Messages: msgs,
			Stream:   &t,
			Options: map[string]any{
				"temperature": cfg.Temperature,
				"top_p":       cfg.TopP,
			},
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		o.reply.begin()

		var sb strings.Builder
		stopped := false
		err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
			sb.WriteString(res.Message.Content)
			if stopped || res.Message.Content == "" {
				return nil
			}
			if !yield(res.Message.Content, nil) {
				stopped = true
				cancel()
			}
			return nil
		})
		if err != nil {
			if stopped || errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}

		o.reply.complete(sb.String())
	}
}

// FinalMessage returns the full text of the last reply that streamed to its end.
func (o *Ollama) FinalMessage(context.Context) (string, error) {
	return o.reply.get()
}

// Teardown asks the server to unload the model right away.
func (o *Ollama) Teardown(ctx context.Context) error {
	o.mu.Lock()
	model := o.model
	o.mu.Unlock()

	if model == "" {
		return nil
	}

	req := api.GenerateRequest{
		Model:     model,
		KeepAlive: &api.Duration{Duration: 0},
	}
	if err := o.client.Generate(ctx, &req, func(api.GenerateResponse) error { return nil }); err != nil {
		return fmt.Errorf("error unloading model %s: %w", model, err)
	}
	return nil
}
