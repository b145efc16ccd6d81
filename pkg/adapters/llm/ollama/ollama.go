// Package ollama adapts a local Ollama server to brain.ChatModel.
package ollama

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/agentcore/pkg/brain"
	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"
)

const (
	DefaultHost        = "http://localhost:11434"
	DefaultModel       = "llama3"
	DefaultTemperature = 0.1
)

// Config configures the Ollama backend.
type Config struct {
	Host        string
	Model       string
	Temperature float64
}

// Model is a brain.ChatModel served by Ollama in JSON mode.
type Model struct {
	llm         *lcollama.LLM
	temperature float64
}

// New creates the backend. Empty fields take the package defaults.
func New(cfg Config) (*Model, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	llm, err := lcollama.New(
		lcollama.WithServerURL(cfg.Host),
		lcollama.WithModel(cfg.Model),
		lcollama.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return &Model{llm: llm, temperature: cfg.Temperature}, nil
}

// Chat implements brain.ChatModel.
func (m *Model) Chat(ctx context.Context, messages []brain.Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(role(msg.Role), msg.Content))
	}
	resp, err := m.llm.GenerateContent(ctx, content, llms.WithTemperature(m.temperature))
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ollama: empty response")
	}
	return resp.Choices[0].Content, nil
}

func role(r brain.Role) llms.ChatMessageType {
	switch r {
	case brain.RoleSystem:
		return llms.ChatMessageTypeSystem
	case brain.RoleAssistant:
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}
