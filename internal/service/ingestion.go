package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"quiz-ingest/internal/codec"
	"quiz-ingest/internal/config"
	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/dto"
	"quiz-ingest/internal/logger"
	"quiz-ingest/internal/util"
	"quiz-ingest/internal/validation"

	"go.uber.org/zap"
)

// UploadInput is one submitted source document.
type UploadInput struct {
	FileName string
	Content  []byte
}

// IngestionService accepts documents for parsing and reports on ingestion state.
type IngestionService interface {
	Submit(ctx context.Context, in UploadInput) (*dto.JobAcceptedResponse, error)
	Reparse(ctx context.Context, quizID string) (*dto.JobAcceptedResponse, error)
	GetJob(ctx context.Context, jobID string) (*dto.JobResponse, error)
	GetQuiz(ctx context.Context, quizID string) (*dto.QuizDetailResponse, error)
	UpdateQuiz(ctx context.Context, quizID string, req dto.UpdateQuizRequest) error
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) (*dto.QuizListResponse, error)
}

type ingestionService struct {
	quizzes   domain.QuizRepository
	jobs      domain.JobRepository
	files     domain.FileStore
	queue     domain.JobQueue
	cache     domain.Cache
	validator *validation.Validator
	opts      domain.EnqueueOptions
}

// NewIngestionService creates a new instance of ingestionService. cache may be nil.
func NewIngestionService(
	quizzes domain.QuizRepository,
	jobs domain.JobRepository,
	files domain.FileStore,
	queue domain.JobQueue,
	cache domain.Cache,
	upload config.UploadConfig,
	queueCfg config.QueueConfig,
) IngestionService {
	return &ingestionService{
		quizzes:   quizzes,
		jobs:      jobs,
		files:     files,
		queue:     queue,
		cache:     cache,
		validator: validation.NewValidator(upload),
		opts: domain.EnqueueOptions{
			MaxAttempts:   queueCfg.MaxAttempts,
			KeepCompleted: queueCfg.KeepCompleted,
			KeepFailed:    queueCfg.KeepFailed,
		},
	}
}

// Submit stores the document, creates the quiz and job records and queues the parse.
func (s *ingestionService) Submit(ctx context.Context, in UploadInput) (*dto.JobAcceptedResponse, error) {
	name, err := s.validator.ValidateUpload(in.FileName, in.Content)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(name))

	quiz := &domain.Quiz{
		ID:      util.NewULID(),
		Title:   strings.TrimSuffix(name, filepath.Ext(name)),
		Status:  domain.QuizStatusPending,
		RawText: string(in.Content),
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		return nil, domain.NewInternalError("Failed to create quiz", err)
	}

	path, err := s.files.Save(ctx, quiz.ID+ext, in.Content)
	if err != nil {
		return nil, domain.NewInternalError("Failed to store uploaded file", err)
	}
	if err := s.quizzes.UpdateQuiz(ctx, quiz.ID, domain.QuizPatch{FilePath: domain.Ptr(path)}); err != nil {
		return nil, domain.NewInternalError("Failed to record uploaded file", err)
	}

	return s.startJob(ctx, quiz.ID, domain.ParseJobPayload{QuizID: quiz.ID, FilePath: path})
}

// Reparse re-runs ingestion for an existing quiz.
func (s *ingestionService) Reparse(ctx context.Context, quizID string) (*dto.JobAcceptedResponse, error) {
	quiz, err := s.quizzes.GetQuizByID(ctx, quizID)
	if err != nil {
		return nil, domain.NewInternalError("Failed to load quiz", err)
	}
	if quiz == nil {
		return nil, domain.NewQuizNotFoundError(quizID)
	}
	if quiz.Status == domain.QuizStatusPending || quiz.Status == domain.QuizStatusProcessing {
		return nil, domain.NewConflictError(fmt.Sprintf("Quiz %s is already being parsed", quizID))
	}

	if err := s.quizzes.UpdateQuiz(ctx, quizID, domain.QuizPatch{
		Status:        domain.Ptr(domain.QuizStatusPending),
		ParseProgress: domain.Ptr(0),
		ClearError:    true,
	}); err != nil {
		return nil, domain.NewInternalError("Failed to reset quiz", err)
	}

	return s.startJob(ctx, quizID, domain.ParseJobPayload{
		QuizID:   quizID,
		FilePath: quiz.FilePath,
		RawText:  quiz.RawText,
	})
}

func (s *ingestionService) startJob(ctx context.Context, quizID string, payload domain.ParseJobPayload) (*dto.JobAcceptedResponse, error) {
	job := &domain.Job{
		QuizID: quizID,
		Type:   domain.JobTypeParse,
		Status: domain.JobStatusPending,
		Data:   domain.JobData{FilePath: payload.FilePath, RawText: payload.RawText},
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, domain.NewInternalError("Failed to create ingestion job", err)
	}
	payload.JobID = job.ID

	if _, err := s.queue.Enqueue(ctx, payload, s.opts); err != nil {
		s.markEnqueueFailed(ctx, quizID, job.ID, err)
		return nil, domain.NewInternalError("Failed to queue ingestion job", err)
	}

	logger.Get().Info("ingestion job queued", zap.String("quiz_id", quizID), zap.String("job_id", job.ID))
	return &dto.JobAcceptedResponse{QuizID: quizID, JobID: job.ID, Status: string(domain.JobStatusPending)}, nil
}

func (s *ingestionService) markEnqueueFailed(ctx context.Context, quizID, jobID string, cause error) {
	message := "failed to queue ingestion job: " + cause.Error()
	if err := s.quizzes.UpdateQuiz(ctx, quizID, domain.QuizPatch{
		Status:   domain.Ptr(domain.QuizStatusFailed),
		ErrorMsg: domain.Ptr(message),
	}); err != nil {
		logger.Get().Error("failed to mark quiz failed after enqueue error", zap.String("quiz_id", quizID), zap.Error(err))
	}
	if err := s.jobs.UpdateJob(ctx, jobID, domain.JobPatch{
		Status: domain.Ptr(domain.JobStatusFailed),
		Error:  domain.Ptr(message),
	}); err != nil {
		logger.Get().Error("failed to mark job failed after enqueue error", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (s *ingestionService) GetJob(ctx context.Context, jobID string) (*dto.JobResponse, error) {
	job, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, domain.NewInternalError("Failed to load job", err)
	}
	if job == nil {
		return nil, domain.NewJobNotFoundError(jobID)
	}
	return toJobResponse(job), nil
}

func (s *ingestionService) GetQuiz(ctx context.Context, quizID string) (*dto.QuizDetailResponse, error) {
	quiz, err := s.quizzes.GetQuizByID(ctx, quizID)
	if err != nil {
		return nil, domain.NewInternalError("Failed to load quiz", err)
	}
	if quiz == nil {
		return nil, domain.NewQuizNotFoundError(quizID)
	}
	modes, err := s.jobs.LatestParseModes(ctx, []string{quizID})
	if err != nil {
		logger.Get().Warn("failed to load parse mode", zap.String("quiz_id", quizID), zap.Error(err))
	}
	return &dto.QuizDetailResponse{
		QuizSummary: toQuizSummary(quiz, modes),
		HTML:        quiz.HTML,
		RawText:     quiz.RawText,
		FilePath:    quiz.FilePath,
	}, nil
}

// UpdateQuiz edits the title or the canonical document directly. A new document
// is normalised through the codec so the stored count matches its questions.
func (s *ingestionService) UpdateQuiz(ctx context.Context, quizID string, req dto.UpdateQuizRequest) error {
	patch := domain.QuizPatch{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return domain.NewInvalidInputError("title cannot be empty")
		}
		patch.Title = &title
	}
	if req.HTML != nil {
		questions := codec.Parse(*req.HTML)
		patch.HTML = domain.Ptr(codec.Render(questions))
		patch.QuestionCount = domain.Ptr(len(questions))
	}
	if patch.IsEmpty() {
		return domain.NewInvalidInputError("nothing to update")
	}

	if err := s.quizzes.UpdateQuiz(ctx, quizID, patch); err != nil {
		if domain.CodeOf(err) == domain.ErrQuizNotFound {
			return err
		}
		return domain.NewInternalError("Failed to update quiz", err)
	}
	invalidateQuestionCache(ctx, s.cache, quizID)
	return nil
}

func (s *ingestionService) ListQuizzes(ctx context.Context, filter domain.QuizFilter) (*dto.QuizListResponse, error) {
	quizzes, err := s.quizzes.ListQuizzes(ctx, filter)
	if err != nil {
		return nil, domain.NewInternalError("Failed to list quizzes", err)
	}

	resp := &dto.QuizListResponse{Quizzes: make([]dto.QuizSummary, 0, len(quizzes))}
	if len(quizzes) == 0 {
		return resp, nil
	}

	ids := make([]string, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
	}
	modes, err := s.jobs.LatestParseModes(ctx, ids)
	if err != nil {
		// Parse modes are decoration; the list is still useful without them.
		logger.Get().Warn("failed to load parse modes", zap.Error(err))
	}

	for _, q := range quizzes {
		resp.Quizzes = append(resp.Quizzes, toQuizSummary(q, modes))
	}
	return resp, nil
}

func toQuizSummary(q *domain.Quiz, modes map[string]domain.ParseMode) dto.QuizSummary {
	summary := dto.QuizSummary{
		ID:            q.ID,
		Title:         q.Title,
		Status:        string(q.Status),
		ParseProgress: q.ParseProgress,
		QuestionCount: q.QuestionCount,
		ErrorMsg:      q.ErrorMsg,
		IsPublished:   q.IsPublished,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
	if mode, ok := modes[q.ID]; ok && mode != "" {
		summary.ParseMode = domain.Ptr(string(mode))
	}
	return summary
}

func toJobResponse(job *domain.Job) *dto.JobResponse {
	resp := &dto.JobResponse{
		ID:        job.ID,
		QuizID:    job.QuizID,
		Type:      job.Type,
		Status:    string(job.Status),
		Progress:  job.Progress,
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Result != nil {
		resp.Result = &dto.JobResult{
			QuestionCount: job.Result.QuestionCount,
			ParseMode:     string(job.Result.ParseMode),
			Warnings:      job.Result.Warnings,
		}
	}
	return resp
}
