// Package openai adapts an OpenAI-compatible chat completions API to brain.ChatModel.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/agentcore/pkg/brain"
	goopenai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

// Config configures the backend. BaseURL points at any compatible server.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// Model is a brain.ChatModel using JSON response format.
type Model struct {
	client      *goopenai.Client
	model       string
	temperature float32
}

func New(cfg Config) (*Model, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Model{
		client:      goopenai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
	}, nil
}

// Chat implements brain.ChatModel.
func (m *Model) Chat(ctx context.Context, messages []brain.Message) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       m.model,
		Temperature: m.temperature,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{Role: role(msg.Role), Content: msg.Content})
	}
	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func role(r brain.Role) string {
	switch r {
	case brain.RoleSystem:
		return goopenai.ChatMessageRoleSystem
	case brain.RoleAssistant:
		return goopenai.ChatMessageRoleAssistant
	}
	return goopenai.ChatMessageRoleUser
}
