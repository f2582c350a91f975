package models

import (
	"database/sql"
	"time"

	"quiz-ingest/internal/domain"
)

// Quiz maps the quizzes table.
type Quiz struct {
	ID            string         `db:"id"`
	Title         string         `db:"title"`
	Status        string         `db:"status"`
	ParseProgress int            `db:"parse_progress"`
	QuestionCount int            `db:"question_count"`
	HTML          sql.NullString `db:"html"`
	RawText       sql.NullString `db:"raw_text"`
	FilePath      sql.NullString `db:"file_path"`
	ErrorMsg      sql.NullString `db:"error_msg"`
	IsPublished   int            `db:"is_published"` // NUMBER(1) on Oracle
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// Job maps the jobs table.
type Job struct {
	ID        string                 `db:"id"`
	QuizID    string                 `db:"quiz_id"`
	Type      string                 `db:"type"`
	Status    string                 `db:"status"`
	Progress  int                    `db:"progress"`
	Data      JSON[domain.JobData]   `db:"data"`
	Result    JSON[domain.JobResult] `db:"result"`
	Error     sql.NullString         `db:"error"`
	CreatedAt time.Time              `db:"created_at"`
	UpdatedAt time.Time              `db:"updated_at"`
}

// ParseLog maps the parse_logs table.
type ParseLog struct {
	ID             string         `db:"id"`
	QuizID         string         `db:"quiz_id"`
	RawTextLength  int            `db:"raw_text_length"`
	QuestionCount  int            `db:"question_count"`
	Warnings       sql.NullString `db:"warnings"`
	DetectedFormat string         `db:"detected_format"`
	CreatedAt      time.Time      `db:"created_at"`
}
