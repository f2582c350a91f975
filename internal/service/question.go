package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"quiz-ingest/internal/cache"
	"quiz-ingest/internal/codec"
	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/dto"
	"quiz-ingest/internal/logger"
	"quiz-ingest/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// QuestionService reads and edits the questions held in a quiz's canonical document.
type QuestionService interface {
	ListQuestions(ctx context.Context, quizID string) (*dto.QuestionListResponse, error)
	GetQuestion(ctx context.Context, quizID string, index int) (*dto.QuestionResponse, error)
	UpdateQuestion(ctx context.Context, quizID string, req dto.UpdateQuestionRequest) error
	Publish(ctx context.Context, quizID string) error
	Unpublish(ctx context.Context, quizID string) error

	ListPublished(ctx context.Context, search string) (*dto.PublicQuizListResponse, error)
	GetPublishedQuiz(ctx context.Context, quizID string) (*dto.PublicQuizResponse, error)
	GetPublishedQuestion(ctx context.Context, quizID string, index int) (*dto.QuestionResponse, error)
	CheckAnswer(ctx context.Context, quizID string, index int, answer string) (*dto.CheckAnswerResponse, error)
}

// parsedQuiz is the cached projection of a quiz.
type parsedQuiz struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	IsPublished bool              `json:"isPublished"`
	Questions   []domain.Question `json:"questions"`
}

type questionService struct {
	quizzes  domain.QuizRepository
	cache    domain.Cache
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewQuestionService creates a new instance of questionService. cache may be nil.
func NewQuestionService(quizzes domain.QuizRepository, cache domain.Cache, cacheTTL time.Duration) QuestionService {
	return &questionService{
		quizzes:  quizzes,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// load returns the parsed quiz, from cache when possible. Concurrent misses
// for the same quiz share one database read.
func (s *questionService) load(ctx context.Context, quizID string) (*parsedQuiz, error) {
	key := cache.QuestionsKey(quizID)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var pq parsedQuiz
			if jsonErr := json.Unmarshal([]byte(cached), &pq); jsonErr == nil {
				return &pq, nil
			}
			logger.Get().Warn("discarding corrupt question cache entry", zap.String("quiz_id", quizID))
		case !errors.Is(err, domain.ErrCacheMiss):
			logger.Get().Warn("question cache read failed", zap.String("quiz_id", quizID), zap.Error(err))
		}
	}

	v, err, _ := s.group.Do(quizID, func() (interface{}, error) {
		quiz, err := s.quizzes.GetQuizByID(ctx, quizID)
		if err != nil {
			return nil, domain.NewInternalError("Failed to load quiz", err)
		}
		if quiz == nil {
			return nil, domain.NewQuizNotFoundError(quizID)
		}
		pq := &parsedQuiz{
			ID:          quiz.ID,
			Title:       quiz.Title,
			IsPublished: quiz.IsPublished,
			Questions:   codec.Parse(quiz.HTML),
		}
		s.store(ctx, key, pq)
		return pq, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*parsedQuiz), nil
}

func (s *questionService) store(ctx context.Context, key string, pq *parsedQuiz) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(pq)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
		logger.Get().Warn("question cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *questionService) ListQuestions(ctx context.Context, quizID string) (*dto.QuestionListResponse, error) {
	pq, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	resp := &dto.QuestionListResponse{Questions: make([]dto.QuestionResponse, 0, len(pq.Questions))}
	for _, q := range pq.Questions {
		resp.Questions = append(resp.Questions, toQuestionResponse(q, true))
	}
	return resp, nil
}

func (s *questionService) GetQuestion(ctx context.Context, quizID string, index int) (*dto.QuestionResponse, error) {
	pq, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	q, ok := domain.FindQuestion(pq.Questions, index)
	if !ok {
		return nil, domain.NewQuestionNotFoundError(quizID, index)
	}
	resp := toQuestionResponse(*q, true)
	return &resp, nil
}

// UpdateQuestion patches one question and re-renders the whole document.
func (s *questionService) UpdateQuestion(ctx context.Context, quizID string, req dto.UpdateQuestionRequest) error {
	quiz, err := s.quizzes.GetQuizByID(ctx, quizID)
	if err != nil {
		return domain.NewInternalError("Failed to load quiz", err)
	}
	if quiz == nil || quiz.HTML == "" {
		return domain.NewQuizNotFoundError(quizID)
	}

	questions := codec.Parse(quiz.HTML)
	target, ok := domain.FindQuestion(questions, req.Index)
	if !ok {
		return domain.NewQuestionNotFoundError(quizID, req.Index)
	}
	if req.CorrectAnswer != nil {
		target.CorrectAnswer = domain.CleanText(*req.CorrectAnswer)
	}
	if req.Explanation != nil {
		target.Explanation = domain.CleanText(*req.Explanation)
	}
	target.ApplyDefaults()

	if err := s.quizzes.UpdateQuiz(ctx, quizID, domain.QuizPatch{HTML: domain.Ptr(codec.Render(questions))}); err != nil {
		return domain.NewInternalError("Failed to save question", err)
	}
	invalidateQuestionCache(ctx, s.cache, quizID)
	return nil
}

// Publish makes a fully answered quiz visible to learners.
func (s *questionService) Publish(ctx context.Context, quizID string) error {
	quiz, err := s.quizzes.GetQuizByID(ctx, quizID)
	if err != nil {
		return domain.NewInternalError("Failed to load quiz", err)
	}
	if quiz == nil {
		return domain.NewQuizNotFoundError(quizID)
	}
	if quiz.HTML == "" {
		return domain.NewIncompleteQuizError("Quiz has not been parsed yet")
	}

	questions := codec.Parse(quiz.HTML)
	if len(questions) == 0 {
		return domain.NewIncompleteQuizError("Quiz has no questions")
	}
	for _, q := range questions {
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return domain.NewIncompleteQuizError("Every question needs a correct answer before publishing")
		}
	}

	if err := s.quizzes.UpdateQuiz(ctx, quizID, domain.QuizPatch{
		IsPublished:   domain.Ptr(true),
		Status:        domain.Ptr(domain.QuizStatusCompleted),
		QuestionCount: domain.Ptr(len(questions)),
	}); err != nil {
		return domain.NewInternalError("Failed to publish quiz", err)
	}
	invalidateQuestionCache(ctx, s.cache, quizID)
	return nil
}

func (s *questionService) Unpublish(ctx context.Context, quizID string) error {
	if err := s.quizzes.UpdateQuiz(ctx, quizID, domain.QuizPatch{IsPublished: domain.Ptr(false)}); err != nil {
		if domain.CodeOf(err) == domain.ErrQuizNotFound {
			return err
		}
		return domain.NewInternalError("Failed to unpublish quiz", err)
	}
	invalidateQuestionCache(ctx, s.cache, quizID)
	return nil
}

func (s *questionService) ListPublished(ctx context.Context, search string) (*dto.PublicQuizListResponse, error) {
	quizzes, err := s.quizzes.ListQuizzes(ctx, domain.QuizFilter{Search: search, PublishedOnly: true})
	if err != nil {
		return nil, domain.NewInternalError("Failed to list quizzes", err)
	}
	resp := &dto.PublicQuizListResponse{Quizzes: make([]dto.PublicQuizResponse, 0, len(quizzes))}
	for _, q := range quizzes {
		resp.Quizzes = append(resp.Quizzes, dto.PublicQuizResponse{ID: q.ID, Title: q.Title, QuestionCount: q.QuestionCount})
	}
	return resp, nil
}

func (s *questionService) loadPublished(ctx context.Context, quizID string) (*parsedQuiz, error) {
	pq, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !pq.IsPublished {
		return nil, domain.NewQuizNotFoundError(quizID)
	}
	return pq, nil
}

func (s *questionService) GetPublishedQuiz(ctx context.Context, quizID string) (*dto.PublicQuizResponse, error) {
	pq, err := s.loadPublished(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return &dto.PublicQuizResponse{ID: pq.ID, Title: pq.Title, QuestionCount: len(pq.Questions)}, nil
}

// GetPublishedQuestion returns a question without its answer or explanation.
func (s *questionService) GetPublishedQuestion(ctx context.Context, quizID string, index int) (*dto.QuestionResponse, error) {
	pq, err := s.loadPublished(ctx, quizID)
	if err != nil {
		return nil, err
	}
	q, ok := domain.FindQuestion(pq.Questions, index)
	if !ok {
		return nil, domain.NewQuestionNotFoundError(quizID, index)
	}
	resp := toQuestionResponse(*q, false)
	return &resp, nil
}

func (s *questionService) CheckAnswer(ctx context.Context, quizID string, index int, answer string) (*dto.CheckAnswerResponse, error) {
	if err := validation.ValidateAnswer(answer); err != nil {
		return nil, err
	}
	pq, err := s.loadPublished(ctx, quizID)
	if err != nil {
		return nil, err
	}
	q, ok := domain.FindQuestion(pq.Questions, index)
	if !ok {
		return nil, domain.NewQuestionNotFoundError(quizID, index)
	}
	correct, graded := GradeAnswer(*q, answer)
	return &dto.CheckAnswerResponse{
		Correct:       correct,
		Graded:        graded,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}, nil
}

// GradeAnswer compares answer with the question's correct answer. graded is
// false for essay questions, which are never auto-graded.
func GradeAnswer(q domain.Question, answer string) (correct, graded bool) {
	switch q.Type {
	case domain.QuestionTypeChoice:
		want := optionLetters(q.CorrectAnswer)
		return want != "" && want == optionLetters(answer), true
	case domain.QuestionTypeFill:
		want := strings.TrimSpace(q.CorrectAnswer)
		return want != "" && strings.EqualFold(want, strings.TrimSpace(answer)), true
	default:
		return false, false
	}
}

// optionLetters reduces a choice answer to its sorted, upper-case option letters,
// so "b, a" and "AB" compare equal.
func optionLetters(s string) string {
	var letters []rune
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
		}
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return string(letters)
}

func toQuestionResponse(q domain.Question, withAnswer bool) dto.QuestionResponse {
	resp := dto.QuestionResponse{
		Index:        q.Index,
		Type:         string(q.Type),
		QuestionText: q.QuestionText,
		Options:      q.Options,
	}
	if withAnswer {
		resp.CorrectAnswer = q.CorrectAnswer
		resp.Explanation = q.Explanation
	}
	return resp
}

func invalidateQuestionCache(ctx context.Context, c domain.Cache, quizID string) {
	if c == nil {
		return
	}
	if err := c.Delete(ctx, cache.QuestionsKey(quizID)); err != nil {
		logger.Get().Warn("failed to invalidate question cache", zap.String("quiz_id", quizID), zap.Error(err))
	}
}
