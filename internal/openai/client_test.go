package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	req := BuildRequest(Config{Model: "gpt-4o", MaxTokens: 4096, Temperature: 0.2}, "sys", "analyse")
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "analyse", req.Messages[1].Content)
	assert.Equal(t, 4096, req.MaxTokens)
	assert.Equal(t, float32(0.2), req.Temperature)

	req = BuildRequest(Config{Model: "o3-mini", MaxTokens: 4096, Temperature: 0.2}, "sys", "analyse")
	assert.Equal(t, 4096, req.MaxCompletionTokens)
	assert.Zero(t, req.MaxTokens)
	assert.Zero(t, req.Temperature)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestGenerateJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, defaultModel, req.Model)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: `{"items": []}`},
			}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	out, err := c.GenerateJSON(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"items": []}`, out)
}

func TestGenerateJSONRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "requests"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	_, err = c.GenerateJSON(context.Background(), "sys", "prompt")

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.HTTPStatusCode)
}
