// Package session drives a chat turn between the user, the conversation history and a language
// model engine, and publishes every resulting state change to observers.
package session

import (
	"context"
	"iter"

	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
)

// Engine is the boundary to the language model runtime. A Controller owns its Engine exclusively.
type Engine interface {
	// Initialize loads or attaches to the model. A failure is permanent for the session.
	Initialize(ctx context.Context, modelID string, cfg models.EngineConfig) error
	// StreamCompletion yields text deltas of the reply to messages, in order. The sequence is finite,
	// ends when the model ends its turn or on the first error, and cannot be restarted.
	StreamCompletion(ctx context.Context, messages []models.Message) iter.Seq2[string, error]
	// FinalMessage returns the engine's canonical text of the last completed reply.
	FinalMessage(ctx context.Context) (string, error)
	// Teardown releases the engine resources.
	Teardown(ctx context.Context) error
}
