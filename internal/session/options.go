package session

import (
	"time"

	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
	"github.com/MegaGrindStone/garfield-web-ui/internal/mood"
)

const (
	// DefaultContextWindow is the number of prior messages sent along with a new user message.
	DefaultContextWindow = 10
	// DefaultGreetingDuration is how long the greeting stays visible after initialization.
	DefaultGreetingDuration = 5 * time.Second

	DefaultModelID = "llama3.2:3b"

	DefaultSystemPrompt = `You are Garfield, the lazy, sarcastic, and lasagna-loving cat from the famous comic strip. ` +
		`You're known for hating Mondays and loving food, especially lasagna. You give advice about life with a ` +
		`cynical but humorous twist, often relating things back to food, naps, or avoiding exercise. Keep your ` +
		`responses witty and characteristically lazy. You may also get angry if the user is being annoying. Use ` +
		`expressions like "Ugh...", "Whatever..." and "Mmm... lasagna". Maintain your signature sarcastic tone ` +
		`while occasionally sharing surprisingly practical wisdom. Your responses should be concise.`

	DefaultGreeting = "Hey, why are you bothering me? I hear you like making games... *yawns lazily* especially about " +
		"some other annoying cat."
)

// Options configures a Controller. Zero values are replaced by the package defaults.
type Options struct {
	ModelID      string
	EngineConfig models.EngineConfig
	SystemPrompt string
	// ContextWindow is the number of prior messages included in each request.
	ContextWindow    int
	MoodResetDelay   time.Duration
	Greeting         string
	GreetingDuration time.Duration
}

// DefaultEngineConfig matches the sampling the character was tuned with.
func DefaultEngineConfig() models.EngineConfig {
	return models.EngineConfig{Temperature: 1.0, TopP: 1.0}
}

func (o Options) withDefaults() Options {
	if o.ModelID == "" {
		o.ModelID = DefaultModelID
	}
	if o.EngineConfig == (models.EngineConfig{}) {
		o.EngineConfig = DefaultEngineConfig()
	}
	if o.SystemPrompt == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	if o.ContextWindow <= 0 {
		o.ContextWindow = DefaultContextWindow
	}
	if o.MoodResetDelay <= 0 {
		o.MoodResetDelay = mood.DefaultResetDelay
	}
	if o.Greeting == "" {
		o.Greeting = DefaultGreeting
	}
	if o.GreetingDuration <= 0 {
		o.GreetingDuration = DefaultGreetingDuration
	}
	return o
}
