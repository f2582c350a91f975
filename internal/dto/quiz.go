package dto

import "time"

// JobAcceptedResponse is returned when an ingestion job has been queued
// @Description Accepted ingestion job
type JobAcceptedResponse struct {
	QuizID string `json:"quiz_id"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResult is the outcome of a completed ingestion job
type JobResult struct {
	QuestionCount int      `json:"question_count"`
	ParseMode     string   `json:"parse_mode"`
	Warnings      []string `json:"warnings"`
}

// JobResponse represents an ingestion job in the API response
// @Description Ingestion job status
type JobResponse struct {
	ID        string     `json:"id"`
	QuizID    string     `json:"quiz_id"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	Progress  int        `json:"progress"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// QuizSummary is one row of the admin quiz list
type QuizSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	ParseProgress int       `json:"parse_progress"`
	QuestionCount int       `json:"question_count"`
	ErrorMsg      string    `json:"error_msg,omitempty"`
	IsPublished   bool      `json:"is_published"`
	ParseMode     *string   `json:"parse_mode"` // null until a parse job completed
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QuizListResponse wraps a quiz list
type QuizListResponse struct {
	Quizzes []QuizSummary `json:"quizzes"`
}

// QuizDetailResponse is the full admin view of a quiz
// @Description Quiz with its canonical document
type QuizDetailResponse struct {
	QuizSummary
	HTML     string `json:"html"`
	RawText  string `json:"raw_text"`
	FilePath string `json:"file_path,omitempty"`
}

// PublicQuizResponse is what learners see of a quiz
type PublicQuizResponse struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"question_count"`
}

// PublicQuizListResponse wraps the published quiz list
type PublicQuizListResponse struct {
	Quizzes []PublicQuizResponse `json:"quizzes"`
}

// UpdateQuizRequest edits a quiz directly. Absent fields are left untouched.
type UpdateQuizRequest struct {
	Title *string `json:"title,omitempty"`
	HTML  *string `json:"html,omitempty"`
}

// OKResponse acknowledges a mutation
type OKResponse struct {
	OK bool `json:"ok"`
}
