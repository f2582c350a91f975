package service

import (
	"context"
	"time"

	"quiz-ingest/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockQuizRepository ---
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	return m.Called(ctx, quiz).Error(0)
}

func (m *MockQuizRepository) GetQuizByID(ctx context.Context, id string) (*domain.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quiz), args.Error(1)
}

func (m *MockQuizRepository) UpdateQuiz(ctx context.Context, id string, patch domain.QuizPatch) error {
	return m.Called(ctx, id, patch).Error(0)
}

func (m *MockQuizRepository) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]*domain.Quiz, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Quiz), args.Error(1)
}

// --- MockJobRepository ---
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockJobRepository) GetJobByID(ctx context.Context, id string) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepository) UpdateJob(ctx context.Context, id string, patch domain.JobPatch) error {
	return m.Called(ctx, id, patch).Error(0)
}

func (m *MockJobRepository) LatestParseModes(ctx context.Context, quizIDs []string) (map[string]domain.ParseMode, error) {
	args := m.Called(ctx, quizIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.ParseMode), args.Error(1)
}

// --- MockFileStore ---
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) ReadAll(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// --- MockJobQueue ---
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, payload domain.ParseJobPayload, opts domain.EnqueueOptions) (string, error) {
	args := m.Called(ctx, payload, opts)
	return args.String(0), args.Error(1)
}

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- MockParseLogWriter ---
type MockParseLogWriter struct {
	mock.Mock
}

func (m *MockParseLogWriter) WriteParseLog(ctx context.Context, log *domain.ParseLog) error {
	return m.Called(ctx, log).Error(0)
}

// --- MockExtractor ---
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, rawText string) ([]domain.Question, []string, error) {
	args := m.Called(ctx, rawText)
	var questions []domain.Question
	if q := args.Get(0); q != nil {
		questions = q.([]domain.Question)
	}
	var warnings []string
	if w := args.Get(1); w != nil {
		warnings = w.([]string)
	}
	return questions, warnings, args.Error(2)
}

// --- MockCompleter ---
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// passthroughTx runs fn without a real transaction.
type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
