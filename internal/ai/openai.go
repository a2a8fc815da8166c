package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIProvider speaks the multi-turn chat completion API: the persona
// travels as a leading system message, the prompt as a user message.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIProvider(apiKey, baseURL, model string, logger *zap.Logger) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) ModelName() string { return p.model }

func (p *OpenAIProvider) Generate(ctx context.Context, prompt, persona string) (*Result, error) {
	var messages []openai.ChatCompletionMessage
	if strings.TrimSpace(persona) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: persona,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	p.logger.Debug("Sending request to OpenAI API",
		zap.String("model", p.model),
		zap.Bool("persona_used", strings.TrimSpace(persona) != ""),
		zap.Int("prompt_length", len(prompt)))

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	})
	if err != nil {
		// Transport failures and API error payloads both arrive here.
		p.logger.Error("OpenAI API request failed", zap.Error(err), zap.String("model", p.model))
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	result := &Result{}
	if resp.Usage != (openai.Usage{}) {
		promptTokens := resp.Usage.PromptTokens
		completionTokens := resp.Usage.CompletionTokens
		totalTokens := resp.Usage.TotalTokens
		result.PromptTokens = &promptTokens
		result.CompletionTokens = &completionTokens
		result.TotalTokens = &totalTokens
	} else {
		p.logger.Info("No token usage information in OpenAI API response")
	}

	if len(resp.Choices) == 0 {
		p.logger.Error("OpenAI API response contains no choices", zap.String("model", p.model))
		return nil, fmt.Errorf("openai response contains no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		p.logger.Error("OpenAI API response contains no text", zap.String("model", p.model))
		return nil, fmt.Errorf("openai response contains no text")
	}

	result.Text = text
	p.logger.Info("Text generated by OpenAI API",
		zap.String("model", p.model),
		zap.Int("response_length", len(text)))
	return result, nil
}
