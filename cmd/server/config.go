package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MegaGrindStone/garfield-web-ui/internal/services"
	"github.com/MegaGrindStone/garfield-web-ui/internal/session"
	"gopkg.in/yaml.v3"
)

type llmConfig interface {
	engine(logger *slog.Logger) (session.Engine, error)
	base() BaseLLMConfig
}

// BaseLLMConfig contains the common fields for all LLM configurations.
type BaseLLMConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"topP"`
}

type config struct {
	Port             string        `yaml:"port"`
	SystemPrompt     string        `yaml:"systemPrompt"`
	Greeting         string        `yaml:"greeting"`
	LoadingText      string        `yaml:"loadingText"`
	ContextWindow    int           `yaml:"contextWindow"`
	MoodResetDelay   time.Duration `yaml:"moodResetDelay"`
	GreetingDuration time.Duration `yaml:"greetingDuration"`
	LogLevel         string        `yaml:"logLevel"`
	LogMode          string        `yaml:"logMode"`
	LLM              llmConfig     `yaml:"llm"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

type openAIConfig struct {
	BaseLLMConfig `yaml:",inline"`
	BaseURL       string `yaml:"baseURL"`
	APIKey        string `yaml:"apiKey"`
}

type scriptedConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Replies       []string      `yaml:"replies"`
	ChunkDelay    time.Duration `yaml:"chunkDelay"`
}

const defaultPort = "8080"

const errLoggerKey = "err"

func defaultConfigPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting user config dir: %w", err)
	}
	return filepath.Join(cfgDir, "garfieldwebui", "config.yaml"), nil
}

// loadConfig reads the YAML config at path. A missing file yields the defaults.
func loadConfig(path string) (config, error) {
	cfg := config{}

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return config{}, fmt.Errorf("error opening config file: %w", err)
	default:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *config) applyDefaults() {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMode == "" {
		c.LogMode = "text"
	}
	if c.LLM == nil {
		c.LLM = &ollamaConfig{BaseLLMConfig: BaseLLMConfig{Provider: "ollama"}}
	}
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port             string         `yaml:"port"`
		SystemPrompt     string         `yaml:"systemPrompt"`
		Greeting         string         `yaml:"greeting"`
		LoadingText      string         `yaml:"loadingText"`
		ContextWindow    int            `yaml:"contextWindow"`
		MoodResetDelay   time.Duration  `yaml:"moodResetDelay"`
		GreetingDuration time.Duration  `yaml:"greetingDuration"`
		LogLevel         string         `yaml:"logLevel"`
		LogMode          string         `yaml:"logMode"`
		LLM              map[string]any `yaml:"llm"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.Port = rawConfig.Port
	c.SystemPrompt = rawConfig.SystemPrompt
	c.Greeting = rawConfig.Greeting
	c.LoadingText = rawConfig.LoadingText
	c.ContextWindow = rawConfig.ContextWindow
	c.MoodResetDelay = rawConfig.MoodResetDelay
	c.GreetingDuration = rawConfig.GreetingDuration
	c.LogLevel = rawConfig.LogLevel
	c.LogMode = rawConfig.LogMode

	if rawConfig.LLM == nil {
		return nil
	}

	llmProvider, ok := rawConfig.LLM["provider"].(string)
	if !ok {
		return fmt.Errorf("llm provider is required")
	}

	llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
	if err != nil {
		return err
	}

	var llm llmConfig
	switch llmProvider {
	case "ollama":
		llm = &ollamaConfig{}
	case "openai":
		llm = &openAIConfig{}
	case "scripted":
		llm = &scriptedConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
		return err
	}

	c.LLM = llm

	return nil
}

func (c config) sessionOptions() session.Options {
	base := c.LLM.base()

	engineCfg := session.DefaultEngineConfig()
	if base.Temperature != nil {
		engineCfg.Temperature = *base.Temperature
	}
	if base.TopP != nil {
		engineCfg.TopP = *base.TopP
	}

	return session.Options{
		ModelID:          base.Model,
		EngineConfig:     engineCfg,
		SystemPrompt:     c.SystemPrompt,
		ContextWindow:    c.ContextWindow,
		MoodResetDelay:   c.MoodResetDelay,
		Greeting:         c.Greeting,
		GreetingDuration: c.GreetingDuration,
	}
}

func newLogger(w io.Writer, level, mode string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch mode {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log mode: %s", mode)
	}
}

func (b BaseLLMConfig) base() BaseLLMConfig {
	return b
}

func (o ollamaConfig) engine(logger *slog.Logger) (session.Engine, error) {
	return services.NewOllama(o.Host, logger)
}

func (o openAIConfig) engine(logger *slog.Logger) (session.Engine, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return services.NewOpenAI(o.BaseURL, apiKey, logger), nil
}

func (s scriptedConfig) engine(*slog.Logger) (session.Engine, error) {
	return services.NewScripted(s.Replies, s.ChunkDelay), nil
}
