package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrForbidden    ErrorCode = "FORBIDDEN"
	ErrConflict     ErrorCode = "CONFLICT"

	// Ingestion specific errors
	ErrQuizNotFound         ErrorCode = "QUIZ_NOT_FOUND"
	ErrJobNotFound          ErrorCode = "JOB_NOT_FOUND"
	ErrQuestionNotFound     ErrorCode = "QUESTION_NOT_FOUND"
	ErrEmptyDocument        ErrorCode = "EMPTY_DOCUMENT"
	ErrNoQuestionsExtracted ErrorCode = "NO_QUESTIONS_EXTRACTED"
	ErrIncompleteQuiz       ErrorCode = "INCOMPLETE_QUIZ"
	ErrLLMServiceError      ErrorCode = "LLM_SERVICE_ERROR"
	ErrLLMNotConfigured     ErrorCode = "LLM_NOT_CONFIGURED"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions for common errors
func NewNotFoundError(message string) *DomainError {
	return NewError(ErrNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(ErrInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(ErrInternal, message, err)
}

func NewConflictError(message string) *DomainError {
	return NewError(ErrConflict, message, nil)
}

func NewQuizNotFoundError(quizID string) *DomainError {
	return NewError(ErrQuizNotFound, fmt.Sprintf("Quiz not found with ID: %s", quizID), nil)
}

func NewJobNotFoundError(jobID string) *DomainError {
	return NewError(ErrJobNotFound, fmt.Sprintf("Job not found with ID: %s", jobID), nil)
}

func NewQuestionNotFoundError(quizID string, index int) *DomainError {
	return NewError(ErrQuestionNotFound, fmt.Sprintf("Question %d not found in quiz %s", index, quizID), nil)
}

// NewEmptyDocumentError is the input error of the ingestion pipeline. Retrying cannot help.
func NewEmptyDocumentError() *DomainError {
	return NewError(ErrEmptyDocument, "source document is empty", nil)
}

func NewNoQuestionsExtractedError() *DomainError {
	return NewError(ErrNoQuestionsExtracted, "no questions extracted", nil)
}

func NewIncompleteQuizError(message string) *DomainError {
	return NewError(ErrIncompleteQuiz, message, nil)
}

func NewLLMServiceError(err error) *DomainError {
	return NewError(ErrLLMServiceError, "Failed to process with LLM service", err)
}

func NewLLMNotConfiguredError() *DomainError {
	return NewError(ErrLLMNotConfigured, "No text-completion provider is configured", nil)
}

// CodeOf returns the code of the first DomainError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrInternal
}

// IsRetryable reports whether redelivering a failed ingestion job may change its outcome.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch CodeOf(err) {
	case ErrEmptyDocument, ErrQuizNotFound, ErrInvalidInput:
		return false
	default:
		return true
	}
}
