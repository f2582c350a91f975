// Package completion adapts external text-completion services to domain.Completer.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"quiz-ingest/internal/config"
	"quiz-ingest/internal/domain"

	"go.uber.org/zap"
)

const defaultTimeout = 60 * time.Second

// New builds the completer selected by cfg. It returns nil, nil when no provider is
// configured so callers can fall back without treating it as an error.
func New(cfg config.LLMConfig, logger *zap.Logger) (domain.Completer, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	switch cfg.Provider {
	case config.ProviderOllama:
		if cfg.ServerURL == "" {
			return nil, nil
		}
		return NewOllamaCompleter(cfg.ServerURL, cfg.Model, timeout, httpClient, logger)
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, nil
		}
		return NewOpenAICompleter(cfg.APIKey, cfg.ServerURL, cfg.Model, timeout, httpClient, logger), nil
	case "", config.ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// withTimeout bounds one provider round trip so a hung provider surfaces as an error.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func wrapCallError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request timed out: %w", provider, err)
	}
	return fmt.Errorf("%s call failed: %w", provider, err)
}
