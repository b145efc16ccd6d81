package llm

import (
	"fmt"
	"strings"

	"github.com/aretw0/agentcore/pkg/adapters/llm/anthropic"
	"github.com/aretw0/agentcore/pkg/adapters/llm/ollama"
	"github.com/aretw0/agentcore/pkg/adapters/llm/openai"
	"github.com/aretw0/agentcore/pkg/brain"
)

// Config selects and configures a backend.
type Config struct {
	Provider    string
	Host        string
	Model       string
	Temperature float64
	APIKey      string
	BaseURL     string
	MaxTokens   int
}

// New builds the ChatModel for cfg.Provider ("ollama", "openai" or "anthropic").
func New(cfg Config) (brain.ChatModel, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		return ollama.New(ollama.Config{Host: cfg.Host, Model: cfg.Model, Temperature: cfg.Temperature})
	case "openai":
		return openai.New(openai.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Temperature: cfg.Temperature})
	case "anthropic":
		return anthropic.New(anthropic.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens})
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}
