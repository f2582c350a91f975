package domain

import (
	"context"
	"time"
)

// EnqueueOptions bounds delivery attempts and how many finished entries are retained.
// A non-positive Keep value disables pruning for that list.
type EnqueueOptions struct {
	MaxAttempts   int
	KeepCompleted int
	KeepFailed    int
}

// Delivery is one attempt at processing a queued payload.
type Delivery struct {
	ID         string
	Payload    ParseJobPayload
	Attempt    int
	Options    EnqueueOptions
	EnqueuedAt time.Time
}

// LastAttempt reports whether a failure of this delivery is terminal.
func (d Delivery) LastAttempt() bool {
	return d.Attempt >= d.Options.MaxAttempts
}

// JobQueue is the producer side of the ingestion queue.
type JobQueue interface {
	Enqueue(ctx context.Context, payload ParseJobPayload, opts EnqueueOptions) (string, error)
}

// JobHandler is the consumer side. Handle runs one delivery; OnFailed is called
// exactly once when a delivery fails for good (non-retryable error or attempts exhausted).
type JobHandler interface {
	Handle(ctx context.Context, d Delivery) error
	OnFailed(ctx context.Context, d Delivery, cause error)
}
