package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// GeminiProvider speaks the generateContent wire format: one combined text
// blob per request, persona prepended to the prompt. The API key travels in
// the query string.
type GeminiProvider struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewGeminiProvider(apiKey, apiURL, model string, httpClient *http.Client, logger *zap.Logger) *GeminiProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GeminiProvider{
		apiKey:     apiKey,
		apiURL:     apiURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) ModelName() string { return p.model }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     *int `json:"promptTokenCount"`
		CandidatesTokenCount *int `json:"candidatesTokenCount"`
		TotalTokenCount      *int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt, persona string) (*Result, error) {
	finalPrompt := prompt
	if strings.TrimSpace(persona) != "" {
		// Persona goes in front, separated by a delimiter line for clarity.
		finalPrompt = strings.TrimSpace(persona) + "\n\n---\n\n" + prompt
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: finalPrompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	p.logger.Debug("Sending request to Gemini API",
		zap.String("url", p.apiURL),
		zap.Bool("persona_used", strings.TrimSpace(persona) != ""),
		zap.Int("prompt_length", len(finalPrompt)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"?key="+p.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("Gemini API request failed", zap.Error(err), zap.String("url", p.apiURL))
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		p.logger.Error("Failed to read Gemini API response", zap.Error(err))
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}

	var decoded geminiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		p.logger.Error("Failed to decode Gemini API response",
			zap.Error(err),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}

	if decoded.Error != nil {
		p.logger.Error("Gemini API returned an error",
			zap.String("message", decoded.Error.Message),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("gemini api error: %s", decoded.Error.Message)
	}

	result := &Result{}
	if decoded.UsageMetadata != nil {
		// candidatesTokenCount is the completion side of the ledger.
		result.PromptTokens = decoded.UsageMetadata.PromptTokenCount
		result.CompletionTokens = decoded.UsageMetadata.CandidatesTokenCount
		result.TotalTokens = decoded.UsageMetadata.TotalTokenCount
	} else {
		p.logger.Info("No token usage information in Gemini API response")
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		p.logger.Error("Gemini API response contains no text", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("gemini response contains no text")
	}

	result.Text = decoded.Candidates[0].Content.Parts[0].Text
	p.logger.Info("Text generated by Gemini API", zap.Int("response_length", len(result.Text)))
	return result, nil
}
