package adapter

import (
	"context"
	"errors"
	"quiz-ingest/internal/cache"
	"quiz-ingest/internal/domain"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisCacheAdapter_QuestionListLifecycle(t *testing.T) {
	db, mock := redismock.NewClientMock()
	adapter := NewRedisCacheAdapter(db)
	ctx := context.Background()

	key := cache.QuestionsKey("01HQUIZ")
	payload := `[{"index":1,"type":"essay","questionText":"Q","correctAnswer":"A","explanation":"E"}]`
	ttl := 10 * time.Minute

	t.Run("MissBeforeSet", func(t *testing.T) {
		mock.ExpectGet(key).SetErr(redis.Nil)
		val, err := adapter.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
		assert.Empty(t, val)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SetThenHit", func(t *testing.T) {
		mock.ExpectSet(key, payload, ttl).SetVal("OK")
		mock.ExpectGet(key).SetVal(payload)

		assert.NoError(t, adapter.Set(ctx, key, payload, ttl))
		val, err := adapter.Get(ctx, key)
		assert.NoError(t, err)
		assert.Equal(t, payload, val)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidateMissingKeyIsNotAnError", func(t *testing.T) {
		mock.ExpectDel(key).SetVal(0)
		assert.NoError(t, adapter.Delete(ctx, key))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisCacheAdapter_PropagatesRedisErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	adapter := NewRedisCacheAdapter(db)
	ctx := context.Background()
	redisErr := errors.New("connection refused")
	key := cache.QuestionsKey("01HQUIZ")

	mock.ExpectGet(key).SetErr(redisErr)
	_, err := adapter.Get(ctx, key)
	assert.ErrorIs(t, err, redisErr)

	mock.ExpectSet(key, "v", time.Minute).SetErr(redisErr)
	assert.ErrorIs(t, adapter.Set(ctx, key, "v", time.Minute), redisErr)

	mock.ExpectDel(key).SetErr(redisErr)
	assert.ErrorIs(t, adapter.Delete(ctx, key), redisErr)

	mock.ExpectPing().SetErr(redisErr)
	assert.ErrorIs(t, adapter.Ping(ctx), redisErr)

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, adapter.Ping(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}
