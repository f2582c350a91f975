package domain

import (
	"context"
	"errors"
)

// ErrCompleterNotConfigured is returned when no text-completion provider is set up.
// It is an expected condition, not a failure of the provider.
var ErrCompleterNotConfigured = errors.New("completion provider not configured")

// Completer sends a single prompt to an external text-completion service.
// Implementations must honour ctx cancellation so a slow provider cannot hang a worker.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
