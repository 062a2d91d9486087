package agents

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
)

// ErrEmptyResponse is returned when the model returns no choices.
var ErrEmptyResponse = errors.New("llm returned empty response")

// LLMClient is the inference capability agents depend on. The coordinator
// treats it as a black box returning text it then parses into a verdict.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAIClient talks to any OpenAI-compatible endpoint, including the
// SiliconFlow API the default configuration points at.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an LLM client from agent configuration. Returns nil
// when no API key is configured so agents fall back to rule-based verdicts.
func NewOpenAIClient(cfg config.AgentsConfig) *OpenAIClient {
	if cfg.APIKey == "" {
		return nil
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Complete sends a chat completion request and returns the response text.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
