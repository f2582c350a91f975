package completion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"quiz-ingest/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

// OllamaCompleter calls a local Ollama server through langchaingo.
type OllamaCompleter struct {
	llm     llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

// NewOllamaCompleter creates a completer for the given Ollama server and model.
func NewOllamaCompleter(serverURL, model string, timeout time.Duration, httpClient *http.Client, logger *zap.Logger) (*OllamaCompleter, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("ollama server URL cannot be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model name cannot be empty")
	}
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return newOllamaCompleter(llm, timeout, logger), nil
}

func newOllamaCompleter(llm llms.Model, timeout time.Duration, logger *zap.Logger) *OllamaCompleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaCompleter{llm: llm, timeout: timeout, logger: logger}
}

// Complete implements domain.Completer.
func (c *OllamaCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	response, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, llms.WithTemperature(0.1))
	if err != nil {
		c.logger.Error("Ollama completion failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", wrapCallError("ollama", err)
	}
	c.logger.Debug("Ollama completion finished", zap.Duration("elapsed", time.Since(start)), zap.Int("response_length", len(response)))
	return response, nil
}

var _ domain.Completer = (*OllamaCompleter)(nil)
