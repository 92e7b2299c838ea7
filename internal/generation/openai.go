// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package generation

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/synapse-labs/mindy/internal/config"
)

// OpenAIGenerator implements Generator over the OpenAI chat completions
// API (or any compatible endpoint via base_url).
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	apiKey  string
}

// NewOpenAIGenerator builds a generator from configuration. The API key
// is read once from the configured environment variable.
func NewOpenAIGenerator(cfg config.GenerationConfig) *OpenAIGenerator {
	apiKey := os.Getenv(cfg.APIKeyEnv)

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		apiKey:  apiKey,
	}
}

// Available reports whether an API key is configured
func (g *OpenAIGenerator) Available() bool {
	return g.apiKey != ""
}

// Generate runs one chat completion with the configured timeout
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if !g.Available() {
		return "", fmt.Errorf("generation capability not configured: missing API key")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, turn := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    mapRole(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserText,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func mapRole(role string) string {
	switch role {
	case "assistant":
		return openai.ChatMessageRoleAssistant
	case "system":
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
