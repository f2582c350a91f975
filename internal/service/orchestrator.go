package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"quiz-ingest/internal/cache"
	"quiz-ingest/internal/codec"
	"quiz-ingest/internal/domain"

	"go.uber.org/zap"
)

var modeLabels = map[domain.ParseMode]string{
	domain.ParseModeAI:   "AI",
	domain.ParseModeRule: "rule-based",
}

func modeLabel(m domain.ParseMode) string {
	if label, ok := modeLabels[m]; ok {
		return label
	}
	return string(m)
}

// Orchestrator runs one ingestion job: it loads the source text, walks the
// extractor strategies in order and persists the rendered document.
// It implements domain.JobHandler.
type Orchestrator struct {
	quizzes    domain.QuizRepository
	jobs       domain.JobRepository
	files      domain.FileStore
	tx         domain.TransactionManager
	strategies []domain.ExtractionStrategy
	parseLogs  domain.ParseLogWriter
	cache      domain.Cache
	logger     *zap.Logger
}

// NewOrchestrator creates the ingestion job handler. parseLogs and cache may be nil.
func NewOrchestrator(
	quizzes domain.QuizRepository,
	jobs domain.JobRepository,
	files domain.FileStore,
	tx domain.TransactionManager,
	strategies []domain.ExtractionStrategy,
	parseLogs domain.ParseLogWriter,
	cache domain.Cache,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		quizzes:    quizzes,
		jobs:       jobs,
		files:      files,
		tx:         tx,
		strategies: strategies,
		parseLogs:  parseLogs,
		cache:      cache,
		logger:     logger,
	}
}

// Outcome is what a successful ingestion produced.
type Outcome struct {
	Questions []domain.Question
	Document  string
	Mode      domain.ParseMode
	Warnings  []string
}

// Handle implements domain.JobHandler.
func (o *Orchestrator) Handle(ctx context.Context, d domain.Delivery) error {
	p := d.Payload
	log := o.logger.With(zap.String("quiz_id", p.QuizID), zap.String("job_id", p.JobID), zap.Int("attempt", d.Attempt))

	quiz, err := o.quizzes.GetQuizByID(ctx, p.QuizID)
	if err != nil {
		return fmt.Errorf("failed to load quiz %s: %w", p.QuizID, err)
	}
	if quiz == nil {
		return domain.NewQuizNotFoundError(p.QuizID)
	}

	if err := o.setProgress(ctx, p, domain.ProgressStarted, true); err != nil {
		return err
	}

	content, err := o.loadContent(ctx, p, quiz)
	if err != nil {
		return err
	}

	outcome, err := o.Ingest(ctx, p, content)
	if err != nil {
		return err
	}

	result := domain.JobResult{
		QuestionCount: len(outcome.Questions),
		ParseMode:     outcome.Mode,
		Warnings:      outcome.Warnings,
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	err = o.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := o.quizzes.UpdateQuiz(ctx, p.QuizID, domain.QuizPatch{
			Status:        domain.Ptr(domain.QuizStatusCompleted),
			ParseProgress: domain.Ptr(domain.ProgressDone),
			HTML:          domain.Ptr(outcome.Document),
			QuestionCount: domain.Ptr(len(outcome.Questions)),
		}); err != nil {
			return err
		}
		if p.JobID == "" {
			return nil
		}
		return o.jobs.UpdateJob(ctx, p.JobID, domain.JobPatch{
			Status:   domain.Ptr(domain.JobStatusCompleted),
			Progress: domain.Ptr(domain.ProgressDone),
			Result:   &result,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to persist parsed quiz %s: %w", p.QuizID, err)
	}

	o.invalidateQuestions(ctx, p.QuizID)
	o.recordParseLog(ctx, p.QuizID, content, outcome)

	log.Info("quiz ingested",
		zap.String("mode", string(outcome.Mode)),
		zap.Int("question_count", len(outcome.Questions)),
		zap.Int("warnings", len(outcome.Warnings)),
	)
	return nil
}

// Ingest runs the extractor strategies over content and renders the first
// non-empty result. Progress checkpoints are written before each strategy.
func (o *Orchestrator) Ingest(ctx context.Context, p domain.ParseJobPayload, content string) (*Outcome, error) {
	var warnings []string
	for i, strategy := range o.strategies {
		if err := o.setProgress(ctx, p, strategy.Progress, false); err != nil {
			return nil, err
		}

		questions, extractWarnings, err := strategy.Extractor.Extract(ctx, content)
		if err == nil && len(questions) == 0 {
			err = errors.New("no questions returned")
		}
		if err != nil {
			if errors.Is(err, domain.ErrCompleterNotConfigured) {
				o.logger.Debug("skipping unconfigured extractor", zap.String("mode", string(strategy.Mode)))
				continue
			}
			warnings = append(warnings, o.fallbackWarning(i, strategy.Mode, err))
			o.logger.Warn("extractor failed",
				zap.String("quiz_id", p.QuizID),
				zap.String("mode", string(strategy.Mode)),
				zap.Error(err),
			)
			continue
		}

		return &Outcome{
			Questions: questions,
			Document:  codec.Render(questions),
			Mode:      strategy.Mode,
			Warnings:  append(warnings, extractWarnings...),
		}, nil
	}
	return nil, domain.NewNoQuestionsExtractedError()
}

func (o *Orchestrator) fallbackWarning(position int, mode domain.ParseMode, err error) string {
	if position+1 < len(o.strategies) {
		next := o.strategies[position+1].Mode
		return fmt.Sprintf("%s extraction failed, falling back to %s parsing: %s", modeLabel(mode), modeLabel(next), err.Error())
	}
	return fmt.Sprintf("%s extraction failed: %s", modeLabel(mode), err.Error())
}

// OnFailed implements domain.JobHandler. It runs once per job, after the last attempt.
func (o *Orchestrator) OnFailed(ctx context.Context, d domain.Delivery, cause error) {
	p := d.Payload
	message := "parse failed"
	if cause != nil {
		message = cause.Error()
	}
	log := o.logger.With(zap.String("quiz_id", p.QuizID), zap.String("job_id", p.JobID))

	if err := o.quizzes.UpdateQuiz(ctx, p.QuizID, domain.QuizPatch{
		Status:        domain.Ptr(domain.QuizStatusFailed),
		ErrorMsg:      domain.Ptr(message),
		ParseProgress: domain.Ptr(0),
	}); err != nil {
		log.Error("failed to mark quiz failed", zap.Error(err))
	}
	if p.JobID != "" {
		if err := o.jobs.UpdateJob(ctx, p.JobID, domain.JobPatch{
			Status: domain.Ptr(domain.JobStatusFailed),
			Error:  domain.Ptr(message),
		}); err != nil {
			log.Error("failed to mark job failed", zap.Error(err))
		}
	}
	log.Warn("ingestion failed", zap.String("reason", message), zap.Int("attempt", d.Attempt))
}

func (o *Orchestrator) setProgress(ctx context.Context, p domain.ParseJobPayload, progress int, start bool) error {
	quizPatch := domain.QuizPatch{ParseProgress: domain.Ptr(progress)}
	jobPatch := domain.JobPatch{Progress: domain.Ptr(progress)}
	if start {
		quizPatch.Status = domain.Ptr(domain.QuizStatusProcessing)
		quizPatch.ClearError = true
		jobPatch.Status = domain.Ptr(domain.JobStatusProcessing)
	}

	if err := o.quizzes.UpdateQuiz(ctx, p.QuizID, quizPatch); err != nil {
		return fmt.Errorf("failed to update progress of quiz %s: %w", p.QuizID, err)
	}
	if p.JobID == "" {
		return nil
	}
	if err := o.jobs.UpdateJob(ctx, p.JobID, jobPatch); err != nil {
		return fmt.Errorf("failed to update progress of job %s: %w", p.JobID, err)
	}
	return nil
}

// loadContent prefers inline text, then the uploaded file, then the raw text
// kept on the quiz when the file is gone.
func (o *Orchestrator) loadContent(ctx context.Context, p domain.ParseJobPayload, quiz *domain.Quiz) (string, error) {
	content := p.RawText
	if content == "" && p.FilePath != "" {
		data, err := o.files.ReadAll(ctx, p.FilePath)
		switch {
		case err == nil:
			content = string(data)
		case errors.Is(err, os.ErrNotExist):
			o.logger.Warn("source file missing, using stored raw text",
				zap.String("quiz_id", p.QuizID), zap.String("file_path", p.FilePath))
			content = quiz.RawText
		default:
			return "", fmt.Errorf("failed to read source document: %w", err)
		}
	}
	if strings.TrimSpace(content) == "" {
		return "", domain.NewEmptyDocumentError()
	}
	return content, nil
}

func (o *Orchestrator) invalidateQuestions(ctx context.Context, quizID string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Delete(ctx, cache.QuestionsKey(quizID)); err != nil {
		o.logger.Warn("failed to invalidate question cache", zap.String("quiz_id", quizID), zap.Error(err))
	}
}

func (o *Orchestrator) recordParseLog(ctx context.Context, quizID, content string, outcome *Outcome) {
	if o.parseLogs == nil {
		return
	}
	entry := &domain.ParseLog{
		QuizID:         quizID,
		RawTextLength:  len([]rune(content)),
		QuestionCount:  len(outcome.Questions),
		Warnings:       strings.Join(outcome.Warnings, "\n"),
		DetectedFormat: outcome.Mode,
		CreatedAt:      time.Now().UTC(),
	}
	if err := o.parseLogs.WriteParseLog(ctx, entry); err != nil {
		o.logger.Warn("failed to write parse log", zap.String("quiz_id", quizID), zap.Error(err))
	}
}

var _ domain.JobHandler = (*Orchestrator)(nil)
