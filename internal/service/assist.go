package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/dto"
	"quiz-ingest/internal/logger"
	"quiz-ingest/internal/validation"

	"go.uber.org/zap"
)

const (
	verifyAnswerPrompt = `Check whether the answer to the following question is correct.
Reply with one of "correct", "possibly wrong" or "wrong", then a short reason and the suggested answer.
Question: %s
Answer: %s`

	completeExplanationPrompt = `Complete the explanation for the following question so that the reasoning is clear and every step is covered.
Question: %s
Existing explanation: %s`
)

// AssistService gives editors single-shot help from the completion provider.
type AssistService interface {
	VerifyAnswer(ctx context.Context, req dto.VerifyAnswerRequest) (*dto.AssistResponse, error)
	CompleteExplanation(ctx context.Context, req dto.CompleteExplanationRequest) (*dto.AssistResponse, error)
}

type assistService struct {
	completer domain.Completer
}

// NewAssistService creates a new instance of assistService. completer may be nil.
func NewAssistService(completer domain.Completer) AssistService {
	return &assistService{completer: completer}
}

func (s *assistService) VerifyAnswer(ctx context.Context, req dto.VerifyAnswerRequest) (*dto.AssistResponse, error) {
	if err := validation.ValidateQuestionText(req.QuestionText); err != nil {
		return nil, err
	}
	return s.complete(ctx, fmt.Sprintf(verifyAnswerPrompt, req.QuestionText, req.Answer))
}

func (s *assistService) CompleteExplanation(ctx context.Context, req dto.CompleteExplanationRequest) (*dto.AssistResponse, error) {
	if err := validation.ValidateQuestionText(req.QuestionText); err != nil {
		return nil, err
	}
	return s.complete(ctx, fmt.Sprintf(completeExplanationPrompt, req.QuestionText, req.Explanation))
}

func (s *assistService) complete(ctx context.Context, prompt string) (*dto.AssistResponse, error) {
	if s.completer == nil {
		return nil, domain.NewLLMNotConfiguredError()
	}
	result, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, domain.ErrCompleterNotConfigured) {
			return nil, domain.NewLLMNotConfiguredError()
		}
		logger.Get().Error("assist completion failed", zap.Error(err))
		return nil, domain.NewLLMServiceError(err)
	}
	return &dto.AssistResponse{Result: strings.TrimSpace(result)}, nil
}
