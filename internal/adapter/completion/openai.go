package completion

import (
	"context"
	"errors"
	"net/http"
	"time"

	"quiz-ingest/internal/domain"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var errEmptyChoices = errors.New("openai returned no choices")

// OpenAICompleter calls the OpenAI chat completion API, or any compatible endpoint.
type OpenAICompleter struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAICompleter creates a completer. baseURL may be empty to use the public API.
func NewOpenAICompleter(apiKey, baseURL, model string, timeout time.Duration, httpClient *http.Client, logger *zap.Logger) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAICompleter{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Complete implements domain.Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		c.logger.Error("OpenAI completion failed", zap.String("model", c.model), zap.Error(err))
		return "", wrapCallError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", wrapCallError("openai", errEmptyChoices)
	}
	return resp.Choices[0].Message.Content, nil
}

var _ domain.Completer = (*OpenAICompleter)(nil)
