package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/repository/models"
	"quiz-ingest/internal/util"

	"github.com/jmoiron/sqlx"
)

const quizColumns = `id "id", title "title", status "status", parse_progress "parse_progress",
	question_count "question_count", html "html", raw_text "raw_text", file_path "file_path",
	error_msg "error_msg", is_published "is_published", created_at "created_at", updated_at "updated_at"`

// Listing skips the two large text columns.
const quizSummaryColumns = `id "id", title "title", status "status", parse_progress "parse_progress",
	question_count "question_count", file_path "file_path", error_msg "error_msg",
	is_published "is_published", created_at "created_at", updated_at "updated_at"`

// sqlxQuizRepository implements domain.QuizRepository using sqlx.
type sqlxQuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository creates a new quiz repository.
func NewQuizRepository(db *sqlx.DB) domain.QuizRepository {
	return &sqlxQuizRepository{db: db}
}

func (r *sqlxQuizRepository) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	if quiz == nil {
		return fmt.Errorf("quiz cannot be nil")
	}
	now := time.Now().UTC()
	if quiz.ID == "" {
		quiz.ID = util.NewULID()
	}
	quiz.CreatedAt = now
	quiz.UpdatedAt = now

	query := `INSERT INTO quizzes (id, title, status, parse_progress, question_count, html, raw_text, file_path, error_msg, is_published, created_at, updated_at)
	          VALUES (:id, :title, :status, :parse_progress, :question_count, :html, :raw_text, :file_path, :error_msg, :is_published, :created_at, :updated_at)`

	if _, err := GetExecutor(ctx, r.db).NamedExecContext(ctx, query, fromDomainQuiz(quiz)); err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	return nil
}

func (r *sqlxQuizRepository) GetQuizByID(ctx context.Context, id string) (*domain.Quiz, error) {
	exec := GetExecutor(ctx, r.db)
	var quiz models.Quiz
	query := exec.Rebind(`SELECT ` + quizColumns + ` FROM quizzes WHERE id = ?`)
	if err := exec.GetContext(ctx, &quiz, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz by id: %w", err)
	}
	return toDomainQuiz(&quiz), nil
}

func (r *sqlxQuizRepository) UpdateQuiz(ctx context.Context, id string, patch domain.QuizPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var set setClause
	if patch.Title != nil {
		set.add("title", *patch.Title)
	}
	if patch.Status != nil {
		set.add("status", string(*patch.Status))
	}
	if patch.ParseProgress != nil {
		set.add("parse_progress", *patch.ParseProgress)
	}
	if patch.QuestionCount != nil {
		set.add("question_count", *patch.QuestionCount)
	}
	if patch.HTML != nil {
		set.add("html", util.StringToNullString(*patch.HTML))
	}
	if patch.FilePath != nil {
		set.add("file_path", util.StringToNullString(*patch.FilePath))
	}
	switch {
	case patch.ClearError:
		set.add("error_msg", sql.NullString{})
	case patch.ErrorMsg != nil:
		set.add("error_msg", util.StringToNullString(*patch.ErrorMsg))
	}
	if patch.IsPublished != nil {
		set.add("is_published", util.BoolToInt(*patch.IsPublished))
	}
	set.add("updated_at", time.Now().UTC())

	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE quizzes SET ` + strings.Join(set.columns, ", ") + ` WHERE id = ?`)
	args := append(set.args, id)

	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for quiz update: %w", err)
	}
	if rows == 0 {
		return domain.NewQuizNotFoundError(id)
	}
	return nil
}

func (r *sqlxQuizRepository) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]*domain.Quiz, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.PublishedOnly {
		conditions = append(conditions, "is_published = ?")
		args = append(args, 1)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(search)+"%")
	}

	query := `SELECT ` + quizSummaryColumns + ` FROM quizzes`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY updated_at DESC`

	exec := GetExecutor(ctx, r.db)
	var rows []models.Quiz
	if err := exec.SelectContext(ctx, &rows, exec.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	quizzes := make([]*domain.Quiz, 0, len(rows))
	for i := range rows {
		quizzes = append(quizzes, toDomainQuiz(&rows[i]))
	}
	return quizzes, nil
}
