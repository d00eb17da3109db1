package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI is an engine for servers speaking the OpenAI chat completion API, such as mlc_llm serve,
// llama.cpp's server or LM Studio.
type OpenAI struct {
	client *goopenai.Client
	logger *slog.Logger

	mu    sync.Mutex
	model string
	cfg   models.EngineConfig
	reply lastReply
}

// NewOpenAI creates an OpenAI engine. An empty baseURL targets api.openai.com; local servers usually
// accept any apiKey.
func NewOpenAI(baseURL, apiKey string, logger *slog.Logger) *OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAI{
		client: goopenai.NewClientWithConfig(cfg),
		logger: logger.With(slog.String("module", "openai")),
	}
}

// Initialize checks that the server serves modelID.
func (o *OpenAI) Initialize(ctx context.Context, modelID string, cfg models.EngineConfig) error {
	if _, err := o.client.GetModel(ctx, modelID); err != nil {
		return fmt.Errorf("model %s is not available: %w", modelID, err)
	}

	o.mu.Lock()
	o.model = modelID
	o.cfg = cfg
	o.mu.Unlock()

	return nil
}

// StreamCompletion streams the reply of the model to messages.
func (o *OpenAI) StreamCompletion(ctx context.Context, messages []models.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		o.mu.Lock()
		model, cfg := o.model, o.cfg
		o.mu.Unlock()

		msgs := make([]goopenai.ChatCompletionMessage, len(messages))
		for i, msg := range messages {
			msgs[i] = goopenai.ChatCompletionMessage{
				Role:    string(msg.Role),
				Content: msg.Content,
			}
		}

		req := goopenai.ChatCompletionRequest{
			Model:       model,
			Messages:    msgs,
			Stream:      true,
			Temperature: float32(cfg.Temperature),
			TopP:        float32(cfg.TopP),
		}

		o.reply.begin()

		stream, err := o.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}
		defer stream.Close()

		var sb strings.Builder
		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error receiving response: %w", err))
				return
			}

			if len(response.Choices) == 0 {
				continue
			}

			delta := response.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			sb.WriteString(delta)
			if !yield(delta, nil) {
				return
			}
		}

		o.reply.complete(sb.String())
	}
}

// FinalMessage returns the full text of the last reply that streamed to its end.
func (o *OpenAI) FinalMessage(context.Context) (string, error) {
	return o.reply.get()
}

// Teardown does nothing: the server owns the model's lifetime.
func (o *OpenAI) Teardown(context.Context) error {
	return nil
}
