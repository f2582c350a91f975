package handler

import (
	"context"

	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/dto"
	"quiz-ingest/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockIngestionService is a mock implementation of service.IngestionService
type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) Submit(ctx context.Context, in service.UploadInput) (*dto.JobAcceptedResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.JobAcceptedResponse), args.Error(1)
}

func (m *MockIngestionService) Reparse(ctx context.Context, quizID string) (*dto.JobAcceptedResponse, error) {
	args := m.Called(ctx, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.JobAcceptedResponse), args.Error(1)
}

func (m *MockIngestionService) GetJob(ctx context.Context, jobID string) (*dto.JobResponse, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.JobResponse), args.Error(1)
}

func (m *MockIngestionService) GetQuiz(ctx context.Context, quizID string) (*dto.QuizDetailResponse, error) {
	args := m.Called(ctx, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.QuizDetailResponse), args.Error(1)
}

func (m *MockIngestionService) UpdateQuiz(ctx context.Context, quizID string, req dto.UpdateQuizRequest) error {
	return m.Called(ctx, quizID, req).Error(0)
}

func (m *MockIngestionService) ListQuizzes(ctx context.Context, filter domain.QuizFilter) (*dto.QuizListResponse, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.QuizListResponse), args.Error(1)
}

// MockQuestionService is a mock implementation of service.QuestionService
type MockQuestionService struct {
	mock.Mock
}

func (m *MockQuestionService) ListQuestions(ctx context.Context, quizID string) (*dto.QuestionListResponse, error) {
	args := m.Called(ctx, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.QuestionListResponse), args.Error(1)
}

func (m *MockQuestionService) GetQuestion(ctx context.Context, quizID string, index int) (*dto.QuestionResponse, error) {
	args := m.Called(ctx, quizID, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.QuestionResponse), args.Error(1)
}

func (m *MockQuestionService) UpdateQuestion(ctx context.Context, quizID string, req dto.UpdateQuestionRequest) error {
	return m.Called(ctx, quizID, req).Error(0)
}

func (m *MockQuestionService) Publish(ctx context.Context, quizID string) error {
	return m.Called(ctx, quizID).Error(0)
}

func (m *MockQuestionService) Unpublish(ctx context.Context, quizID string) error {
	return m.Called(ctx, quizID).Error(0)
}

func (m *MockQuestionService) ListPublished(ctx context.Context, search string) (*dto.PublicQuizListResponse, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PublicQuizListResponse), args.Error(1)
}

func (m *MockQuestionService) GetPublishedQuiz(ctx context.Context, quizID string) (*dto.PublicQuizResponse, error) {
	args := m.Called(ctx, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PublicQuizResponse), args.Error(1)
}

func (m *MockQuestionService) GetPublishedQuestion(ctx context.Context, quizID string, index int) (*dto.QuestionResponse, error) {
	args := m.Called(ctx, quizID, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.QuestionResponse), args.Error(1)
}

func (m *MockQuestionService) CheckAnswer(ctx context.Context, quizID string, index int, answer string) (*dto.CheckAnswerResponse, error) {
	args := m.Called(ctx, quizID, index, answer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CheckAnswerResponse), args.Error(1)
}

// MockAssistService is a mock implementation of service.AssistService
type MockAssistService struct {
	mock.Mock
}

func (m *MockAssistService) VerifyAnswer(ctx context.Context, req dto.VerifyAnswerRequest) (*dto.AssistResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AssistResponse), args.Error(1)
}

func (m *MockAssistService) CompleteExplanation(ctx context.Context, req dto.CompleteExplanationRequest) (*dto.AssistResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AssistResponse), args.Error(1)
}
