package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-ingest/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Delivery, error) {
	args := m.Called(ctx, timeout)
	d, _ := args.Get(0).(*domain.Delivery)
	return d, args.Error(1)
}

func (m *MockBroker) Ack(ctx context.Context, d domain.Delivery) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockBroker) Fail(ctx context.Context, d domain.Delivery, cause error, retry bool) error {
	return m.Called(ctx, d, cause, retry).Error(0)
}

func (m *MockBroker) Reap(ctx context.Context) ([]domain.Delivery, error) {
	args := m.Called(ctx)
	ds, _ := args.Get(0).([]domain.Delivery)
	return ds, args.Error(1)
}

type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Handle(ctx context.Context, d domain.Delivery) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockHandler) OnFailed(ctx context.Context, d domain.Delivery, cause error) {
	m.Called(ctx, d, cause)
}

func delivery(attempt int) domain.Delivery {
	return domain.Delivery{
		ID:      "d1",
		Payload: domain.ParseJobPayload{QuizID: "q1", JobID: "j1"},
		Attempt: attempt,
		Options: domain.EnqueueOptions{MaxAttempts: 2},
	}
}

func TestWorker_ProcessSuccessAcks(t *testing.T) {
	broker, handler := new(MockBroker), new(MockHandler)
	w := NewWorker(broker, handler, WorkerOptions{}, nil)
	d := delivery(1)

	handler.On("Handle", mock.Anything, d).Return(nil).Once()
	broker.On("Ack", mock.Anything, d).Return(nil).Once()

	w.Process(context.Background(), d)

	broker.AssertExpectations(t)
	handler.AssertExpectations(t)
	handler.AssertNotCalled(t, "OnFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorker_ProcessRetryableFailure(t *testing.T) {
	broker, handler := new(MockBroker), new(MockHandler)
	w := NewWorker(broker, handler, WorkerOptions{}, nil)
	d := delivery(1)
	cause := domain.NewNoQuestionsExtractedError()

	handler.On("Handle", mock.Anything, d).Return(cause).Once()
	broker.On("Fail", mock.Anything, d, cause, true).Return(nil).Once()

	w.Process(context.Background(), d)

	broker.AssertExpectations(t)
	handler.AssertNotCalled(t, "OnFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorker_ProcessLastAttemptIsTerminal(t *testing.T) {
	broker, handler := new(MockBroker), new(MockHandler)
	w := NewWorker(broker, handler, WorkerOptions{}, nil)
	d := delivery(2)
	cause := errors.New("database unavailable")

	handler.On("Handle", mock.Anything, d).Return(cause).Once()
	broker.On("Fail", mock.Anything, d, cause, false).Return(nil).Once()
	handler.On("OnFailed", mock.Anything, d, cause).Once()

	w.Process(context.Background(), d)

	broker.AssertExpectations(t)
	handler.AssertExpectations(t)
}

func TestWorker_ProcessNonRetryableIsTerminal(t *testing.T) {
	broker, handler := new(MockBroker), new(MockHandler)
	w := NewWorker(broker, handler, WorkerOptions{}, nil)
	d := delivery(1)
	cause := domain.NewEmptyDocumentError()

	handler.On("Handle", mock.Anything, d).Return(cause).Once()
	broker.On("Fail", mock.Anything, d, cause, false).Return(nil).Once()
	handler.On("OnFailed", mock.Anything, d, cause).Once()

	w.Process(context.Background(), d)

	broker.AssertExpectations(t)
	handler.AssertExpectations(t)
}

func TestWorker_ProcessRecoversPanic(t *testing.T) {
	broker, handler := new(MockBroker), new(MockHandler)
	w := NewWorker(broker, handler, WorkerOptions{}, nil)
	d := delivery(2)

	handler.On("Handle", mock.Anything, d).Run(func(mock.Arguments) { panic("nil map") }).Return(nil).Once()
	broker.On("Fail", mock.Anything, d, mock.AnythingOfType("*errors.errorString"), false).Return(nil).Once()
	handler.On("OnFailed", mock.Anything, d, mock.Anything).Once()

	assert.NotPanics(t, func() { w.Process(context.Background(), d) })
	broker.AssertExpectations(t)
	handler.AssertExpectations(t)
}

func TestWorker_ReapOnceFailsExhausted(t *testing.T) {
	broker, handler := new(MockBroker), new(MockHandler)
	w := NewWorker(broker, handler, WorkerOptions{}, nil)
	d := delivery(2)

	broker.On("Reap", mock.Anything).Return([]domain.Delivery{d}, nil).Once()
	handler.On("OnFailed", mock.Anything, d, mock.Anything).Once()

	w.ReapOnce(context.Background())

	handler.AssertExpectations(t)
}

// chanBroker hands out deliveries from a channel.
type chanBroker struct {
	deliveries chan domain.Delivery

	mu    sync.Mutex
	acked []string
}

func (b *chanBroker) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Delivery, error) {
	select {
	case d := <-b.deliveries:
		return &d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

func (b *chanBroker) Ack(_ context.Context, d domain.Delivery) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acked = append(b.acked, d.ID)
	return nil
}

func (b *chanBroker) Fail(context.Context, domain.Delivery, error, bool) error { return nil }

func (b *chanBroker) Reap(context.Context) ([]domain.Delivery, error) { return nil, nil }

func (b *chanBroker) ackedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.acked)
}

func TestWorker_RunDrainsQueueUntilCancelled(t *testing.T) {
	broker := &chanBroker{deliveries: make(chan domain.Delivery, 3)}
	for _, id := range []string{"a", "b", "c"} {
		broker.deliveries <- domain.Delivery{ID: id, Attempt: 1, Options: domain.EnqueueOptions{MaxAttempts: 2}}
	}
	handler := new(MockHandler)
	handler.On("Handle", mock.Anything, mock.Anything).Return(nil)

	w := NewWorker(broker, handler, WorkerOptions{Concurrency: 2, PollTimeout: 10 * time.Millisecond, ReapInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return broker.ackedCount() == 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
