package domain

import (
	"context"
	"time"
)

// QuizStatus mirrors the ingestion state of a quiz.
type QuizStatus string

const (
	QuizStatusPending    QuizStatus = "pending"
	QuizStatusProcessing QuizStatus = "processing"
	QuizStatusCompleted  QuizStatus = "completed"
	QuizStatusFailed     QuizStatus = "failed"
)

// Parse progress checkpoints written by the ingestion pipeline.
const (
	ProgressStarted      = 10
	ProgressAIExtraction = 30
	ProgressRuleFallback = 60
	ProgressDone         = 100
)

// Quiz is the record an uploaded document is ingested into.
type Quiz struct {
	ID            string
	Title         string
	Status        QuizStatus
	ParseProgress int
	QuestionCount int
	HTML          string
	RawText       string
	FilePath      string
	ErrorMsg      string
	IsPublished   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QuizPatch is a partial update of a quiz record. Nil fields are left untouched.
// ClearError sets error_msg to NULL and wins over ErrorMsg.
type QuizPatch struct {
	Title         *string
	Status        *QuizStatus
	ParseProgress *int
	QuestionCount *int
	HTML          *string
	FilePath      *string
	ErrorMsg      *string
	ClearError    bool
	IsPublished   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p QuizPatch) IsEmpty() bool {
	return p.Title == nil && p.Status == nil && p.ParseProgress == nil && p.QuestionCount == nil &&
		p.HTML == nil && p.FilePath == nil && p.ErrorMsg == nil && !p.ClearError && p.IsPublished == nil
}

// QuizFilter narrows ListQuizzes. Empty fields match everything.
type QuizFilter struct {
	Status        QuizStatus
	Search        string
	PublishedOnly bool
}

// QuizRepository defines the interface for quiz persistence
type QuizRepository interface {
	// CreateQuiz inserts a quiz and assigns its ID and timestamps.
	CreateQuiz(ctx context.Context, quiz *Quiz) error

	// GetQuizByID returns nil, nil when the quiz does not exist.
	GetQuizByID(ctx context.Context, id string) (*Quiz, error)

	// UpdateQuiz applies patch atomically to the quiz with the given ID.
	UpdateQuiz(ctx context.Context, id string, patch QuizPatch) error

	// ListQuizzes returns quizzes ordered by most recently updated.
	ListQuizzes(ctx context.Context, filter QuizFilter) ([]*Quiz, error)
}

// Ptr returns a pointer to v. Used to build patches.
func Ptr[T any](v T) *T {
	return &v
}
