package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quiz-ingest/internal/cache"
	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/util"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Hash fields of a queued job.
const (
	fieldPayload       = "payload"
	fieldAttempt       = "attempt"
	fieldMaxAttempts   = "max_attempts"
	fieldKeepCompleted = "keep_completed"
	fieldKeepFailed    = "keep_failed"
	fieldEnqueuedAt    = "enqueued_at"
	fieldLastError     = "last_error"
	fieldFinishedAt    = "finished_at"
)

// RedisQueue is an at-least-once job queue on Redis lists.
//
// A job id moves wait -> processing on dequeue and gets a lease in a sorted set
// scored by its deadline. Ack and Fail remove it from processing and push it to
// completed, failed or back to wait. Expired leases are recovered by Reap, which
// also leases any processing entry that lost its lease write.
type RedisQueue struct {
	client     redis.Cmdable
	topic      string
	visibility time.Duration
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewRedisQueue creates a queue for topic. visibility is how long a dequeued job
// may run before Reap considers its worker gone.
func NewRedisQueue(client redis.Cmdable, topic string, visibility time.Duration, logger *zap.Logger) *RedisQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{
		client:     client,
		topic:      topic,
		visibility: visibility,
		logger:     logger,
		now:        time.Now,
		newID:      util.NewULID,
	}
}

func (q *RedisQueue) waitKey() string       { return cache.QueueKey(q.topic, "wait") }
func (q *RedisQueue) processingKey() string { return cache.QueueKey(q.topic, "processing") }
func (q *RedisQueue) leasesKey() string     { return cache.QueueKey(q.topic, "leases") }
func (q *RedisQueue) completedKey() string  { return cache.QueueKey(q.topic, "completed") }
func (q *RedisQueue) failedKey() string     { return cache.QueueKey(q.topic, "failed") }
func (q *RedisQueue) jobKey(id string) string {
	return cache.QueueKey(q.topic, "job:"+id)
}

// Enqueue stores payload and makes it available to workers.
func (q *RedisQueue) Enqueue(ctx context.Context, payload domain.ParseJobPayload, opts domain.EnqueueOptions) (string, error) {
	if payload.QuizID == "" {
		return "", domain.NewInvalidInputError("queue payload requires a quiz id")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode queue payload: %w", err)
	}

	id := q.newID()
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.jobKey(id),
			fieldPayload, string(data),
			fieldAttempt, 0,
			fieldMaxAttempts, opts.MaxAttempts,
			fieldKeepCompleted, opts.KeepCompleted,
			fieldKeepFailed, opts.KeepFailed,
			fieldEnqueuedAt, q.now().UnixMilli(),
		)
		pipe.LPush(ctx, q.waitKey(), id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job for quiz %s: %w", payload.QuizID, err)
	}

	q.logger.Debug("job enqueued", zap.String("delivery_id", id), zap.String("quiz_id", payload.QuizID))
	return id, nil
}

// Dequeue blocks up to timeout for the next job. It returns nil, nil when none arrived.
// The returned delivery has its attempt counter already incremented.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Delivery, error) {
	id, err := q.client.BRPopLPush(ctx, q.waitKey(), q.processingKey(), timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue from %s: %w", q.topic, err)
	}

	var fields *redis.MapStringStringCmd
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, q.jobKey(id), fieldAttempt, 1)
		pipe.ZAdd(ctx, q.leasesKey(), redis.Z{Score: q.deadline(), Member: id})
		fields = pipe.HGetAll(ctx, q.jobKey(id))
		return nil
	})
	if err != nil {
		// The id stays in processing without a lease until Reap adopts it.
		q.logger.Warn("failed to lease dequeued job", zap.String("delivery_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to lease job %s: %w", id, err)
	}

	d, err := decodeDelivery(id, fields.Val())
	if err != nil {
		// The job hash is unusable, so drop the id instead of redelivering it forever.
		q.logger.Error("dropping malformed queue entry", zap.String("delivery_id", id), zap.Error(err))
		q.discard(ctx, id)
		return nil, nil
	}
	return d, nil
}

// Ack marks a delivery completed.
func (q *RedisQueue) Ack(ctx context.Context, d domain.Delivery) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey(), 1, d.ID)
		pipe.ZRem(ctx, q.leasesKey(), d.ID)
		pipe.HSet(ctx, q.jobKey(d.ID), fieldFinishedAt, q.now().UnixMilli())
		pipe.LPush(ctx, q.completedKey(), d.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to ack job %s: %w", d.ID, err)
	}
	return q.prune(ctx, q.completedKey(), d.Options.KeepCompleted)
}

// Fail records cause on the delivery. With retry the job goes back to the wait
// list, otherwise it is moved to the failed list for good.
func (q *RedisQueue) Fail(ctx context.Context, d domain.Delivery, cause error, retry bool) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	target := q.failedKey()
	if retry {
		target = q.waitKey()
	}

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey(), 1, d.ID)
		pipe.ZRem(ctx, q.leasesKey(), d.ID)
		pipe.HSet(ctx, q.jobKey(d.ID), fieldLastError, msg)
		pipe.LPush(ctx, target, d.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record failure of job %s: %w", d.ID, err)
	}
	if retry {
		return nil
	}
	return q.prune(ctx, q.failedKey(), d.Options.KeepFailed)
}

// Reap recovers jobs whose lease expired. Jobs with attempts left go back to the
// wait list; exhausted ones are failed and returned so the caller can run its
// terminal failure path.
func (q *RedisQueue) Reap(ctx context.Context) ([]domain.Delivery, error) {
	if err := q.adoptOrphans(ctx); err != nil {
		return nil, err
	}

	ids, err := q.client.ZRangeByScore(ctx, q.leasesKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan expired leases: %w", err)
	}

	var exhausted []domain.Delivery
	for _, id := range ids {
		// Claiming the lease first keeps a concurrent reaper or a late ack from double handling it.
		removed, err := q.client.ZRem(ctx, q.leasesKey(), id).Result()
		if err != nil {
			return exhausted, fmt.Errorf("failed to claim expired lease %s: %w", id, err)
		}
		if removed == 0 {
			continue
		}

		fields, err := q.client.HGetAll(ctx, q.jobKey(id)).Result()
		if err != nil {
			return exhausted, fmt.Errorf("failed to load expired job %s: %w", id, err)
		}
		d, err := decodeDelivery(id, fields)
		if err != nil {
			q.logger.Error("dropping malformed queue entry", zap.String("delivery_id", id), zap.Error(err))
			q.discard(ctx, id)
			continue
		}

		lost := errors.New("worker lease expired")
		if d.LastAttempt() {
			if err := q.Fail(ctx, *d, lost, false); err != nil {
				return exhausted, err
			}
			exhausted = append(exhausted, *d)
			q.logger.Warn("expired job exhausted its attempts",
				zap.String("delivery_id", id), zap.String("quiz_id", d.Payload.QuizID), zap.Int("attempt", d.Attempt))
			continue
		}
		if err := q.Fail(ctx, *d, lost, true); err != nil {
			return exhausted, err
		}
		q.logger.Warn("requeued job with expired lease",
			zap.String("delivery_id", id), zap.String("quiz_id", d.Payload.QuizID), zap.Int("attempt", d.Attempt))
	}
	return exhausted, nil
}

// adoptOrphans gives a fresh lease to every processing id that has none, so it is
// redelivered once that lease expires. Ids with a lease are left untouched.
func (q *RedisQueue) adoptOrphans(ctx context.Context) error {
	ids, err := q.client.LRange(ctx, q.processingKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to scan processing jobs: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	deadline := q.deadline()
	members := make([]redis.Z, 0, len(ids))
	for _, id := range ids {
		members = append(members, redis.Z{Score: deadline, Member: id})
	}
	adopted, err := q.client.ZAddNX(ctx, q.leasesKey(), members...).Result()
	if err != nil {
		return fmt.Errorf("failed to lease orphaned jobs: %w", err)
	}
	if adopted > 0 {
		q.logger.Warn("leased processing jobs that had no lease", zap.Int64("count", adopted))
	}
	return nil
}

func (q *RedisQueue) deadline() float64 {
	return float64(q.now().Add(q.visibility).UnixMilli())
}

// prune keeps the newest keep ids of list and deletes the hashes of the rest.
func (q *RedisQueue) prune(ctx context.Context, list string, keep int) error {
	if keep <= 0 {
		return nil
	}
	evicted, err := q.client.LRange(ctx, list, int64(keep), -1).Result()
	if err != nil {
		return fmt.Errorf("failed to read %s for pruning: %w", list, err)
	}
	if len(evicted) == 0 {
		return nil
	}

	keys := make([]string, 0, len(evicted))
	for _, id := range evicted {
		keys = append(keys, q.jobKey(id))
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LTrim(ctx, list, 0, int64(keep-1))
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to prune %s: %w", list, err)
	}
	return nil
}

func (q *RedisQueue) discard(ctx context.Context, id string) {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey(), 1, id)
		pipe.ZRem(ctx, q.leasesKey(), id)
		pipe.Del(ctx, q.jobKey(id))
		return nil
	})
	if err != nil {
		q.logger.Error("failed to discard queue entry", zap.String("delivery_id", id), zap.Error(err))
	}
}

func decodeDelivery(id string, fields map[string]string) (*domain.Delivery, error) {
	raw, ok := fields[fieldPayload]
	if !ok {
		return nil, fmt.Errorf("job %s has no payload", id)
	}
	var payload domain.ParseJobPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("job %s has an invalid payload: %w", id, err)
	}

	d := &domain.Delivery{ID: id, Payload: payload}
	ints := []struct {
		field string
		dest  *int
	}{
		{fieldAttempt, &d.Attempt},
		{fieldMaxAttempts, &d.Options.MaxAttempts},
		{fieldKeepCompleted, &d.Options.KeepCompleted},
		{fieldKeepFailed, &d.Options.KeepFailed},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(fields[f.field])
		if err != nil {
			return nil, fmt.Errorf("job %s has an invalid %s: %w", id, f.field, err)
		}
		*f.dest = v
	}
	if ms, err := strconv.ParseInt(fields[fieldEnqueuedAt], 10, 64); err == nil {
		d.EnqueuedAt = time.UnixMilli(ms).UTC()
	}
	return d, nil
}

var _ domain.JobQueue = (*RedisQueue)(nil)
