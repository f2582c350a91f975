package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"quiz-ingest/internal/cache"
	"quiz-ingest/internal/codec"
	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/extractor/ai"
	"quiz-ingest/internal/extractor/rule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const sampleRaw = "1. What is 2+2?\nA. 3\nB. 4\n答案：B\n解析：basic arithmetic\n2. The capital of France is ____\n答案：Paris"

// recorder captures every patch written by the orchestrator.
type recorder struct {
	quizPatches []domain.QuizPatch
	jobPatches  []domain.JobPatch
}

func (r *recorder) progress() []int {
	var out []int
	for _, p := range r.quizPatches {
		if p.ParseProgress != nil {
			out = append(out, *p.ParseProgress)
		}
	}
	return out
}

func (r *recorder) last() domain.QuizPatch {
	return r.quizPatches[len(r.quizPatches)-1]
}

func (r *recorder) result() *domain.JobResult {
	for i := len(r.jobPatches) - 1; i >= 0; i-- {
		if r.jobPatches[i].Result != nil {
			return r.jobPatches[i].Result
		}
	}
	return nil
}

type orchestratorFixture struct {
	quizzes   *MockQuizRepository
	jobs      *MockJobRepository
	files     *MockFileStore
	parseLogs *MockParseLogWriter
	cache     *MockCache
	rec       *recorder
}

func newOrchestratorFixture(quiz *domain.Quiz) *orchestratorFixture {
	f := &orchestratorFixture{
		quizzes:   new(MockQuizRepository),
		jobs:      new(MockJobRepository),
		files:     new(MockFileStore),
		parseLogs: new(MockParseLogWriter),
		cache:     new(MockCache),
		rec:       &recorder{},
	}
	f.quizzes.On("GetQuizByID", mock.Anything, quiz.ID).Return(quiz, nil)
	f.quizzes.On("UpdateQuiz", mock.Anything, quiz.ID, mock.Anything).
		Run(func(args mock.Arguments) {
			f.rec.quizPatches = append(f.rec.quizPatches, args.Get(2).(domain.QuizPatch))
		}).
		Return(nil)
	f.jobs.On("UpdateJob", mock.Anything, "j1", mock.Anything).
		Run(func(args mock.Arguments) { f.rec.jobPatches = append(f.rec.jobPatches, args.Get(2).(domain.JobPatch)) }).
		Return(nil)
	f.cache.On("Delete", mock.Anything, cache.QuestionsKey(quiz.ID)).Return(nil)
	return f
}

func (f *orchestratorFixture) orchestrator(strategies ...domain.ExtractionStrategy) *Orchestrator {
	return NewOrchestrator(f.quizzes, f.jobs, f.files, passthroughTx{}, strategies, f.parseLogs, f.cache, nil)
}

func aiStrategy(e domain.Extractor) domain.ExtractionStrategy {
	return domain.ExtractionStrategy{Mode: domain.ParseModeAI, Progress: domain.ProgressAIExtraction, Extractor: e}
}

func ruleStrategy() domain.ExtractionStrategy {
	return domain.ExtractionStrategy{Mode: domain.ParseModeRule, Progress: domain.ProgressRuleFallback, Extractor: rule.NewExtractor()}
}

func inlineDelivery(raw string) domain.Delivery {
	return domain.Delivery{
		ID:      "d1",
		Payload: domain.ParseJobPayload{QuizID: "q1", RawText: raw, JobID: "j1"},
		Attempt: 1,
		Options: domain.EnqueueOptions{MaxAttempts: 2},
	}
}

func TestOrchestrator_FallbackMatchesRuleExtractor(t *testing.T) {
	f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})
	f.parseLogs.On("WriteParseLog", mock.Anything, mock.Anything).Return(nil)

	failing := new(MockExtractor)
	failing.On("Extract", mock.Anything, sampleRaw).Return(nil, nil, errors.New("provider down"))

	err := f.orchestrator(aiStrategy(failing), ruleStrategy()).Handle(context.Background(), inlineDelivery(sampleRaw))
	require.NoError(t, err)

	final := f.rec.last()
	require.NotNil(t, final.HTML)
	assert.Equal(t, codec.Render(rule.Parse(sampleRaw)), *final.HTML)
	assert.Equal(t, 2, *final.QuestionCount)
	assert.Equal(t, domain.QuizStatusCompleted, *final.Status)

	result := f.rec.result()
	require.NotNil(t, result)
	assert.Equal(t, domain.ParseModeRule, result.ParseMode)
	assert.Equal(t, []string{"AI extraction failed, falling back to rule-based parsing: provider down"}, result.Warnings)
	f.cache.AssertExpectations(t)
}

func TestOrchestrator_ProgressIsMonotonic(t *testing.T) {
	f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})
	f.parseLogs.On("WriteParseLog", mock.Anything, mock.Anything).Return(nil)

	failing := new(MockExtractor)
	failing.On("Extract", mock.Anything, mock.Anything).Return([]domain.Question{}, nil, nil)

	err := f.orchestrator(aiStrategy(failing), ruleStrategy()).Handle(context.Background(), inlineDelivery(sampleRaw))
	require.NoError(t, err)

	progress := f.rec.progress()
	assert.Equal(t, []int{10, 30, 60, 100}, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}

	first := f.rec.quizPatches[0]
	assert.Equal(t, domain.QuizStatusProcessing, *first.Status)
	assert.True(t, first.ClearError)
	assert.Equal(t, domain.JobStatusProcessing, *f.rec.jobPatches[0].Status)
}

func TestOrchestrator_AIFencedResponse(t *testing.T) {
	f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})
	var logged *domain.ParseLog
	f.parseLogs.On("WriteParseLog", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { logged = args.Get(1).(*domain.ParseLog) }).
		Return(nil)

	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(
		"Here you go:\n```json\n"+`{"questions":[{"type":"fill","questionText":"2+2=____","correctAnswer":"4"}]}`+"\n```\nDone.", nil)

	err := f.orchestrator(aiStrategy(ai.NewExtractor(completer, nil)), ruleStrategy()).
		Handle(context.Background(), inlineDelivery(sampleRaw))
	require.NoError(t, err)

	assert.Equal(t, []int{10, 30, 100}, f.rec.progress())
	result := f.rec.result()
	require.NotNil(t, result)
	assert.Equal(t, domain.ParseModeAI, result.ParseMode)
	assert.Equal(t, 1, result.QuestionCount)
	assert.Empty(t, result.Warnings)

	require.NotNil(t, logged)
	assert.Equal(t, domain.ParseModeAI, logged.DetectedFormat)
	assert.Equal(t, len([]rune(sampleRaw)), logged.RawTextLength)
}

func TestOrchestrator_UnparsableAIResponseFallsBack(t *testing.T) {
	f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})
	f.parseLogs.On("WriteParseLog", mock.Anything, mock.Anything).Return(nil)

	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("no json here", nil)

	err := f.orchestrator(aiStrategy(ai.NewExtractor(completer, nil)), ruleStrategy()).
		Handle(context.Background(), inlineDelivery(sampleRaw))
	require.NoError(t, err)

	result := f.rec.result()
	require.NotNil(t, result)
	assert.Equal(t, domain.ParseModeRule, result.ParseMode)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "AI extraction failed, falling back to rule-based parsing: ")
}

func TestOrchestrator_UnconfiguredAIRecordsNoWarning(t *testing.T) {
	f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})
	f.parseLogs.On("WriteParseLog", mock.Anything, mock.Anything).Return(nil)

	err := f.orchestrator(aiStrategy(ai.NewExtractor(nil, nil)), ruleStrategy()).
		Handle(context.Background(), inlineDelivery(sampleRaw))
	require.NoError(t, err)

	result := f.rec.result()
	require.NotNil(t, result)
	assert.Equal(t, domain.ParseModeRule, result.ParseMode)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, []int{10, 30, 60, 100}, f.rec.progress())
}

func TestOrchestrator_EmptyInputIsInputError(t *testing.T) {
	f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})

	err := f.orchestrator(ruleStrategy()).Handle(context.Background(), inlineDelivery("  \n\t "))

	assert.Equal(t, domain.ErrEmptyDocument, domain.CodeOf(err))
	assert.False(t, domain.IsRetryable(err))
	f.parseLogs.AssertNotCalled(t, "WriteParseLog", mock.Anything, mock.Anything)
}

func TestOrchestrator_NoQuestionsIsPipelineError(t *testing.T) {
	f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})

	empty := new(MockExtractor)
	empty.On("Extract", mock.Anything, mock.Anything).Return(nil, nil, nil)
	only := domain.ExtractionStrategy{Mode: domain.ParseModeRule, Progress: domain.ProgressRuleFallback, Extractor: empty}

	err := f.orchestrator(only).Handle(context.Background(), inlineDelivery("something"))

	assert.Equal(t, domain.ErrNoQuestionsExtracted, domain.CodeOf(err))
	assert.True(t, domain.IsRetryable(err))
}

func TestOrchestrator_ReadsFileAndFallsBackToStoredText(t *testing.T) {
	t.Run("file content", func(t *testing.T) {
		f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})
		f.parseLogs.On("WriteParseLog", mock.Anything, mock.Anything).Return(nil)
		f.files.On("ReadAll", mock.Anything, "uploads/q1.txt").Return([]byte(sampleRaw), nil)

		d := inlineDelivery("")
		d.Payload.FilePath = "uploads/q1.txt"
		require.NoError(t, f.orchestrator(ruleStrategy()).Handle(context.Background(), d))
		assert.Equal(t, 2, *f.rec.last().QuestionCount)
	})

	t.Run("missing file", func(t *testing.T) {
		f := newOrchestratorFixture(&domain.Quiz{ID: "q1", RawText: "1. Only question\n答案：yes"})
		f.parseLogs.On("WriteParseLog", mock.Anything, mock.Anything).Return(nil)
		f.files.On("ReadAll", mock.Anything, "uploads/q1.txt").Return(nil, fmt.Errorf("read: %w", fs.ErrNotExist))

		d := inlineDelivery("")
		d.Payload.FilePath = "uploads/q1.txt"
		require.NoError(t, f.orchestrator(ruleStrategy()).Handle(context.Background(), d))
		assert.Equal(t, 1, *f.rec.last().QuestionCount)
	})

	t.Run("read error", func(t *testing.T) {
		f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})
		f.files.On("ReadAll", mock.Anything, "uploads/q1.txt").Return(nil, errors.New("permission denied"))

		d := inlineDelivery("")
		d.Payload.FilePath = "uploads/q1.txt"
		err := f.orchestrator(ruleStrategy()).Handle(context.Background(), d)
		assert.ErrorContains(t, err, "permission denied")
		assert.True(t, domain.IsRetryable(err))
	})
}

func TestOrchestrator_ParseLogFailureIsIgnored(t *testing.T) {
	f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})
	f.parseLogs.On("WriteParseLog", mock.Anything, mock.Anything).Return(errors.New("parse_logs missing"))

	err := f.orchestrator(ruleStrategy()).Handle(context.Background(), inlineDelivery(sampleRaw))
	assert.NoError(t, err)
	assert.Equal(t, domain.QuizStatusCompleted, *f.rec.last().Status)
}

func TestOrchestrator_MissingQuiz(t *testing.T) {
	quizzes := new(MockQuizRepository)
	quizzes.On("GetQuizByID", mock.Anything, "q1").Return(nil, nil)

	o := NewOrchestrator(quizzes, new(MockJobRepository), new(MockFileStore), passthroughTx{},
		[]domain.ExtractionStrategy{ruleStrategy()}, nil, nil, nil)
	err := o.Handle(context.Background(), inlineDelivery(sampleRaw))

	assert.Equal(t, domain.ErrQuizNotFound, domain.CodeOf(err))
	assert.False(t, domain.IsRetryable(err))
}

func TestOrchestrator_RepeatedRunsAreIdempotent(t *testing.T) {
	f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})
	f.parseLogs.On("WriteParseLog", mock.Anything, mock.Anything).Return(nil)
	o := f.orchestrator(aiStrategy(ai.NewExtractor(nil, nil)), ruleStrategy())

	require.NoError(t, o.Handle(context.Background(), inlineDelivery(sampleRaw)))
	first := f.rec.last()
	require.NoError(t, o.Handle(context.Background(), inlineDelivery(sampleRaw)))
	second := f.rec.last()

	assert.Equal(t, *first.QuestionCount, *second.QuestionCount)
	assert.Equal(t, *first.HTML, *second.HTML)
}

func TestOrchestrator_OnFailed(t *testing.T) {
	f := newOrchestratorFixture(&domain.Quiz{ID: "q1"})

	f.orchestrator(ruleStrategy()).OnFailed(context.Background(), inlineDelivery(""), domain.NewNoQuestionsExtractedError())

	require.Len(t, f.rec.quizPatches, 1)
	patch := f.rec.quizPatches[0]
	assert.Equal(t, domain.QuizStatusFailed, *patch.Status)
	assert.Equal(t, "no questions extracted", *patch.ErrorMsg)
	assert.Equal(t, 0, *patch.ParseProgress)

	require.Len(t, f.rec.jobPatches, 1)
	assert.Equal(t, domain.JobStatusFailed, *f.rec.jobPatches[0].Status)
	assert.Equal(t, "no questions extracted", *f.rec.jobPatches[0].Error)
}
