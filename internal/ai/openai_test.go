package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func openaiServer(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIProvider("test-key", srv.URL+"/v1", "gpt-4", zap.NewNop())
}

func TestOpenAIGenerateSuccess(t *testing.T) {
	var gotBody chatRequest
	p := openaiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  hello there\n"}},
			},
			"usage": map[string]any{
				"prompt_tokens":     12,
				"completion_tokens": 7,
				"total_tokens":      19,
			},
		})
	})

	result, err := p.Generate(context.Background(), "hi", "be kind")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "be kind", gotBody.Messages[0].Content)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
	assert.Equal(t, "hi", gotBody.Messages[1].Content)

	assert.Equal(t, "hello there", result.Text, "reply text is trimmed")
	require.NotNil(t, result.PromptTokens)
	assert.Equal(t, 12, *result.PromptTokens)
	require.NotNil(t, result.CompletionTokens)
	assert.Equal(t, 7, *result.CompletionTokens)
	require.NotNil(t, result.TotalTokens)
	assert.Equal(t, 19, *result.TotalTokens)
}

func TestOpenAIBlankPersonaOmitsSystemMessage(t *testing.T) {
	var gotBody chatRequest
	p := openaiServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	})

	_, err := p.Generate(context.Background(), "hi", "   ")
	require.NoError(t, err)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
}

func TestOpenAIMissingUsageStaysAbsent(t *testing.T) {
	p := openaiServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	})

	result, err := p.Generate(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Nil(t, result.PromptTokens)
	assert.Nil(t, result.CompletionTokens)
	assert.Nil(t, result.TotalTokens)
}

func TestOpenAIAPIError(t *testing.T) {
	p := openaiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Incorrect API key provided", "type": "invalid_request_error"},
		})
	})

	result, err := p.Generate(context.Background(), "hi", "")
	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestOpenAIEmptyContent(t *testing.T) {
	p := openaiServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "   "}},
			},
		})
	})

	result, err := p.Generate(context.Background(), "hi", "")
	assert.Nil(t, result)
	assert.ErrorContains(t, err, "no text")
}

func TestOpenAIMetadata(t *testing.T) {
	p := NewOpenAIProvider("k", "", "gpt-4", zap.NewNop())
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-4", p.ModelName())
}
