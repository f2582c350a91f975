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

const jobColumns = `id "id", quiz_id "quiz_id", type "type", status "status", progress "progress",
	data "data", result "result", error "error", created_at "created_at", updated_at "updated_at"`

// sqlxJobRepository implements domain.JobRepository using sqlx.
type sqlxJobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *sqlx.DB) domain.JobRepository {
	return &sqlxJobRepository{db: db}
}

func (r *sqlxJobRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	now := time.Now().UTC()
	if job.ID == "" {
		job.ID = util.NewULID()
	}
	if job.Type == "" {
		job.Type = domain.JobTypeParse
	}
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `INSERT INTO jobs (id, quiz_id, type, status, progress, data, result, error, created_at, updated_at)
	          VALUES (:id, :quiz_id, :type, :status, :progress, :data, :result, :error, :created_at, :updated_at)`

	if _, err := GetExecutor(ctx, r.db).NamedExecContext(ctx, query, fromDomainJob(job)); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *sqlxJobRepository) GetJobByID(ctx context.Context, id string) (*domain.Job, error) {
	exec := GetExecutor(ctx, r.db)
	var job models.Job
	query := exec.Rebind(`SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`)
	if err := exec.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job by id: %w", err)
	}
	return toDomainJob(&job), nil
}

func (r *sqlxJobRepository) UpdateJob(ctx context.Context, id string, patch domain.JobPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var set setClause
	if patch.Status != nil {
		set.add("status", string(*patch.Status))
	}
	if patch.Progress != nil {
		set.add("progress", *patch.Progress)
	}
	if patch.Result != nil {
		set.add("result", models.NewJSON(*patch.Result))
	}
	if patch.Error != nil {
		set.add("error", util.StringToNullString(*patch.Error))
	}
	set.add("updated_at", time.Now().UTC())

	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE jobs SET ` + strings.Join(set.columns, ", ") + ` WHERE id = ?`)
	args := append(set.args, id)

	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for job update: %w", err)
	}
	if rows == 0 {
		return domain.NewJobNotFoundError(id)
	}
	return nil
}

// parseModeRow is the projection LatestParseModes scans.
type parseModeRow struct {
	QuizID string                        `db:"quiz_id"`
	Result models.JSON[domain.JobResult] `db:"result"`
}

func (r *sqlxJobRepository) LatestParseModes(ctx context.Context, quizIDs []string) (map[string]domain.ParseMode, error) {
	modes := make(map[string]domain.ParseMode, len(quizIDs))
	if len(quizIDs) == 0 {
		return modes, nil
	}

	query, args, err := sqlx.In(`SELECT quiz_id "quiz_id", result "result" FROM jobs
		WHERE quiz_id IN (?) AND type = ? AND status = ? AND result IS NOT NULL
		ORDER BY updated_at DESC`, quizIDs, domain.JobTypeParse, string(domain.JobStatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to build parse mode query: %w", err)
	}

	exec := GetExecutor(ctx, r.db)
	var rows []parseModeRow
	if err := exec.SelectContext(ctx, &rows, exec.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query parse modes: %w", err)
	}

	// Rows are newest first, so the first hit per quiz wins.
	for _, row := range rows {
		if _, seen := modes[row.QuizID]; seen || !row.Result.Valid {
			continue
		}
		modes[row.QuizID] = row.Result.Data.ParseMode
	}
	return modes, nil
}
