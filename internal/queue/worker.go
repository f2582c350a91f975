package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-ingest/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Broker is the consumer side of RedisQueue.
type Broker interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*domain.Delivery, error)
	Ack(ctx context.Context, d domain.Delivery) error
	Fail(ctx context.Context, d domain.Delivery, cause error, retry bool) error
	Reap(ctx context.Context) ([]domain.Delivery, error)
}

// WorkerOptions tunes a Worker.
type WorkerOptions struct {
	Concurrency  int
	PollTimeout  time.Duration
	ReapInterval time.Duration
	// JobTimeout bounds a single Handle call. It should stay below the queue's visibility timeout.
	JobTimeout time.Duration
}

// Worker runs consumers against a Broker and dispatches deliveries to a handler.
type Worker struct {
	broker  Broker
	handler domain.JobHandler
	opts    WorkerOptions
	logger  *zap.Logger

	errorBackoff time.Duration
}

// NewWorker creates a worker. Zero options fall back to one consumer and short polls.
func NewWorker(broker Broker, handler domain.JobHandler, opts WorkerOptions, logger *zap.Logger) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Second
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		broker:       broker,
		handler:      handler,
		opts:         opts,
		logger:       logger,
		errorBackoff: time.Second,
	}
}

// Run blocks until ctx is cancelled. In-flight jobs are allowed to finish.
func (w *Worker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < w.opts.Concurrency; i++ {
		consumer := i
		g.Go(func() error {
			w.consume(gctx, consumer)
			return nil
		})
	}
	g.Go(func() error {
		w.reapLoop(gctx)
		return nil
	})

	w.logger.Info("worker started", zap.Int("concurrency", w.opts.Concurrency))
	err := g.Wait()
	w.logger.Info("worker stopped")
	return err
}

func (w *Worker) consume(ctx context.Context, consumer int) {
	log := w.logger.With(zap.Int("consumer", consumer))
	for ctx.Err() == nil {
		d, err := w.broker.Dequeue(ctx, w.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("dequeue failed", zap.Error(err))
			w.sleep(ctx, w.errorBackoff)
			continue
		}
		if d == nil {
			continue
		}
		// Shutdown must not abort a job halfway through its state transitions.
		w.Process(context.WithoutCancel(ctx), *d)
	}
}

// Process runs one delivery through the handler and settles it on the broker.
func (w *Worker) Process(ctx context.Context, d domain.Delivery) {
	log := w.logger.With(
		zap.String("delivery_id", d.ID),
		zap.String("quiz_id", d.Payload.QuizID),
		zap.String("job_id", d.Payload.JobID),
		zap.Int("attempt", d.Attempt),
	)

	err := w.handle(ctx, d)
	if err == nil {
		if ackErr := w.broker.Ack(ctx, d); ackErr != nil {
			log.Error("failed to ack job", zap.Error(ackErr))
		}
		return
	}

	retry := domain.IsRetryable(err) && !d.LastAttempt()
	if failErr := w.broker.Fail(ctx, d, err, retry); failErr != nil {
		log.Error("failed to record job failure", zap.Error(failErr))
	}
	if retry {
		log.Warn("job failed, will be retried", zap.Error(err))
		return
	}
	log.Error("job failed permanently", zap.Error(err))
	w.handler.OnFailed(ctx, d, err)
}

func (w *Worker) handle(ctx context.Context, d domain.Delivery) (err error) {
	if w.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.JobTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return w.handler.Handle(ctx, d)
}

func (w *Worker) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(w.opts.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ReapOnce(ctx)
		}
	}
}

// ReapOnce recovers expired leases and runs the terminal failure path for exhausted ones.
func (w *Worker) ReapOnce(ctx context.Context) {
	exhausted, err := w.broker.Reap(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("lease reaper failed", zap.Error(err))
	}
	for _, d := range exhausted {
		w.handler.OnFailed(ctx, d, errors.New("job exceeded its visibility timeout on every attempt"))
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var _ Broker = (*RedisQueue)(nil)
