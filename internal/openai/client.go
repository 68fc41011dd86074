// Package openai provides an analysis model backed by the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o"

// Config selects the model and its output budget. BaseURL is optional and allows
// OpenAI-compatible endpoints.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

// Client implements report.Model.
type Client struct {
	api    *openai.Client
	config Config
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key must be set")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{api: openai.NewClientWithConfig(clientCfg), config: cfg}, nil
}

// GenerateJSON requests a JSON object completion.
func (c *Client) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	req := BuildRequest(c.config, system, prompt)
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("openai returned an empty completion (finish reason %q)", resp.Choices[0].FinishReason)
	}
	return content, nil
}

// BuildRequest assembles the chat completion request. Reasoning models take
// MaxCompletionTokens and reject a temperature.
func BuildRequest(cfg Config, system, prompt string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: cfg.Model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if isReasoningModel(cfg.Model) {
		req.MaxCompletionTokens = cfg.MaxTokens
	} else {
		req.MaxTokens = cfg.MaxTokens
		req.Temperature = cfg.Temperature
	}
	return req
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
