package repository

import (
	"context"
	"fmt"
	"time"

	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/util"

	"github.com/jmoiron/sqlx"
)

// sqlxParseLogRepository writes parse logs to the parse_logs table.
type sqlxParseLogRepository struct {
	db *sqlx.DB
}

// NewParseLogRepository creates the SQL parse-log sink.
func NewParseLogRepository(db *sqlx.DB) domain.ParseLogWriter {
	return &sqlxParseLogRepository{db: db}
}

func (r *sqlxParseLogRepository) WriteParseLog(ctx context.Context, log *domain.ParseLog) error {
	if log == nil {
		return fmt.Errorf("parse log cannot be nil")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	row := fromDomainParseLog(log)
	row.ID = util.NewULID()

	query := `INSERT INTO parse_logs (id, quiz_id, raw_text_length, question_count, warnings, detected_format, created_at)
	          VALUES (:id, :quiz_id, :raw_text_length, :question_count, :warnings, :detected_format, :created_at)`

	if _, err := GetExecutor(ctx, r.db).NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to write parse log: %w", err)
	}
	return nil
}
