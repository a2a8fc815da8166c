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

func geminiServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *GeminiProvider) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewGeminiProvider("test-key", srv.URL, "gemini-pro", srv.Client(), zap.NewNop())
	return srv, p
}

func TestGeminiGenerateSuccess(t *testing.T) {
	var gotBody geminiRequest
	var gotKey string
	_, p := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "hello there"}}}},
			},
			"usageMetadata": map[string]any{
				"promptTokenCount": 11,
				"totalTokenCount":  25,
			},
		})
	})

	result, err := p.Generate(context.Background(), "hi", "")
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Equal(t, "hi", gotBody.Contents[0].Parts[0].Text)

	assert.Equal(t, "hello there", result.Text)
	require.NotNil(t, result.PromptTokens)
	assert.Equal(t, 11, *result.PromptTokens)
	assert.Nil(t, result.CompletionTokens, "unreported counter stays absent")
	require.NotNil(t, result.TotalTokens)
	assert.Equal(t, 25, *result.TotalTokens)
}

func TestGeminiPersonaPrepended(t *testing.T) {
	var gotBody geminiRequest
	_, p := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "ok"}}}},
			},
		})
	})

	_, err := p.Generate(context.Background(), "question", "  be brief  ")
	require.NoError(t, err)
	assert.Equal(t, "be brief\n\n---\n\nquestion", gotBody.Contents[0].Parts[0].Text)
}

func TestGeminiBlankPersonaIgnored(t *testing.T) {
	var gotBody geminiRequest
	_, p := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "ok"}}}},
			},
		})
	})

	_, err := p.Generate(context.Background(), "question", "   ")
	require.NoError(t, err)
	assert.Equal(t, "question", gotBody.Contents[0].Parts[0].Text)
}

func TestGeminiAPIError(t *testing.T) {
	_, p := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "API key not valid"},
		})
	})

	result, err := p.Generate(context.Background(), "hi", "")
	assert.Nil(t, result)
	assert.ErrorContains(t, err, "API key not valid")
}

func TestGeminiMalformedResponse(t *testing.T) {
	_, p := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway timeout</html>"))
	})

	result, err := p.Generate(context.Background(), "hi", "")
	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestGeminiNoCandidates(t *testing.T) {
	_, p := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})

	result, err := p.Generate(context.Background(), "hi", "")
	assert.Nil(t, result)
	assert.ErrorContains(t, err, "no text")
}

func TestGeminiTransportError(t *testing.T) {
	srv, p := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	result, err := p.Generate(context.Background(), "hi", "")
	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestGeminiMetadata(t *testing.T) {
	_, p := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {})
	assert.Equal(t, "gemini", p.Name())
	assert.Equal(t, "gemini-pro", p.ModelName())
}
