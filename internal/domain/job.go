package domain

import (
	"context"
	"time"
)

// JobStatus follows standard queue semantics.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobTypeParse is the only job type the ingestion pipeline creates.
const JobTypeParse = "parse"

// ParseMode names the extractor that produced a quiz's questions.
type ParseMode string

const (
	ParseModeAI   ParseMode = "ai"
	ParseModeRule ParseMode = "rule"
)

// JobResult is stored on a completed ingestion job.
type JobResult struct {
	QuestionCount int       `json:"questionCount"`
	ParseMode     ParseMode `json:"parseMode"`
	Warnings      []string  `json:"warnings"`
}

// JobData is the submission snapshot kept on the job record.
type JobData struct {
	FilePath string `json:"filePath,omitempty"`
	RawText  string `json:"rawText,omitempty"`
}

// Job is the persisted record of one ingestion request.
type Job struct {
	ID        string
	QuizID    string
	Type      string
	Status    JobStatus
	Progress  int
	Data      JobData
	Result    *JobResult
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobPatch is a partial update of a job record. Nil fields are left untouched.
type JobPatch struct {
	Status   *JobStatus
	Progress *int
	Result   *JobResult
	Error    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p JobPatch) IsEmpty() bool {
	return p.Status == nil && p.Progress == nil && p.Result == nil && p.Error == nil
}

// ParseJobPayload is what travels through the queue.
type ParseJobPayload struct {
	QuizID   string `json:"quizId"`
	FilePath string `json:"filePath,omitempty"`
	RawText  string `json:"rawText,omitempty"`
	JobID    string `json:"jobId,omitempty"`
}

// JobRepository defines the interface for job record persistence
type JobRepository interface {
	CreateJob(ctx context.Context, job *Job) error

	// GetJobByID returns nil, nil when the job does not exist.
	GetJobByID(ctx context.Context, id string) (*Job, error)

	UpdateJob(ctx context.Context, id string, patch JobPatch) error

	// LatestParseModes maps each quiz ID to the parse mode of its most recent
	// completed parse job. Quizzes without one are absent.
	LatestParseModes(ctx context.Context, quizIDs []string) (map[string]ParseMode, error)
}

// ParseLog is the auxiliary record written after a successful ingestion.
type ParseLog struct {
	QuizID         string    `json:"quiz_id" bson:"quiz_id"`
	RawTextLength  int       `json:"raw_text_length" bson:"raw_text_length"`
	QuestionCount  int       `json:"question_count" bson:"question_count"`
	Warnings       string    `json:"warnings,omitempty" bson:"warnings,omitempty"`
	DetectedFormat ParseMode `json:"detected_format" bson:"detected_format"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// ParseLogWriter stores parse logs. Callers treat failures as non-fatal.
type ParseLogWriter interface {
	WriteParseLog(ctx context.Context, log *ParseLog) error
}
