package ai

import (
	"context"
	"errors"
	"testing"

	"quiz-ingest/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestExtract_NotConfigured(t *testing.T) {
	questions, warnings, err := NewExtractor(nil, nil).Extract(context.Background(), "1. a")

	assert.ErrorIs(t, err, domain.ErrCompleterNotConfigured)
	assert.Nil(t, questions)
	assert.Nil(t, warnings)
}

func TestExtract_ProviderError(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("503 upstream"))

	_, _, err := NewExtractor(completer, nil).Extract(context.Background(), "1. a")

	require.Error(t, err)
	assert.Equal(t, domain.ErrLLMServiceError, domain.CodeOf(err))
	assert.Contains(t, err.Error(), "503 upstream")
}

func TestExtract_FencedJSONWithProse(t *testing.T) {
	response := "Sure! Here is the result:\n```json\n" +
		`{"questions":[{"type":"choice","questionText":" What is 2+2? ","options":["3","4"],"correctAnswer":"B","explanation":"math"}]}` +
		"\n```\nLet me know if you need anything else."
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return p == BuildPrompt("raw text")
	})).Return(response, nil)

	questions, warnings, err := NewExtractor(completer, nil).Extract(context.Background(), "raw text")

	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, questions, 1)
	assert.Equal(t, domain.Question{
		Index:         1,
		Type:          domain.QuestionTypeChoice,
		QuestionText:  "What is 2+2?",
		Options:       []string{"3", "4"},
		CorrectAnswer: "B",
		Explanation:   "math",
	}, questions[0])
	completer.AssertExpectations(t)
}

func TestExtract_UnparsableResponse(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("I could not find any questions, sorry.", nil)

	questions, _, err := NewExtractor(completer, nil).Extract(context.Background(), "x")

	assert.ErrorIs(t, err, ErrNoJSON)
	assert.Nil(t, questions)
}

func TestExtractJSON_Order(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"json fence wins", "```\n[1]\n```\n```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"generic fence", "text\n```\n{\"b\":2}\n```", `{"b":2}`},
		{"labelled generic fence", "```javascript\n{\"c\":3}\n```", `{"c":3}`},
		{"brace span", `prefix {"d":[1,2]} suffix`, `{"d":[1,2]}`},
		{"array span", `here: [{"e":1}] done`, `[{"e":1}]`},
		{"think block stripped", "<think>maybe {x}</think>{\"f\":1}", `{"f":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.response)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ExtractJSON("   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	_, err = ExtractJSON("} backwards {")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestParseResponse_Normalization(t *testing.T) {
	response := `[
		{"index": 9, "type": "FILL", "question": "Capital of France ____", "answer": "Paris"},
		{"type": "unknown", "questionText": "Explain", "analysis": "because"},
		{"type": "essay", "questionText": "Pick", "options": ["", " x ", 42]},
		{"questionText": "   "},
		"not an object",
		{"type": "choice", "questionText": "No options", "correctAnswer": true},
		{"type": "fill", "questionText": "Keyed options", "options": {"A": "x", "B": "y"}, "answer": "x"},
		{"questionText": "String options", "options": "none"}
	]`

	questions, err := ParseResponse(response)

	require.NoError(t, err)
	require.Len(t, questions, 6)

	assert.Equal(t, 1, questions[0].Index, "model-supplied index is ignored")
	assert.Equal(t, domain.QuestionTypeFill, questions[0].Type)
	assert.Equal(t, "Paris", questions[0].CorrectAnswer)
	assert.Equal(t, domain.DefaultExplanation, questions[0].Explanation)

	assert.Equal(t, domain.QuestionTypeEssay, questions[1].Type)
	assert.Equal(t, domain.DefaultEssayAnswer, questions[1].CorrectAnswer)
	assert.Equal(t, "because", questions[1].Explanation)

	assert.Equal(t, domain.QuestionTypeChoice, questions[2].Type, "options force choice")
	assert.Equal(t, []string{"x", "42"}, questions[2].Options)

	assert.Equal(t, 4, questions[3].Index)
	assert.Equal(t, domain.QuestionTypeChoice, questions[3].Type)
	assert.Equal(t, "true", questions[3].CorrectAnswer)

	assert.Equal(t, "Keyed options", questions[4].QuestionText)
	assert.Nil(t, questions[4].Options, "non-array options are dropped")
	assert.Equal(t, domain.QuestionTypeFill, questions[4].Type)
	assert.Equal(t, "x", questions[4].CorrectAnswer)

	assert.Equal(t, 6, questions[5].Index)
	assert.Nil(t, questions[5].Options)
	assert.Equal(t, domain.QuestionTypeEssay, questions[5].Type)
}

func TestParseResponse_CleansText(t *testing.T) {
	response := `{"questions": [{"type": "choice", "questionText": " Pick\r\none ", "options": ["a\u0000b", "c\rd"], "answer": "A"}]}`

	questions, err := ParseResponse(response)

	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "Pick\none", questions[0].QuestionText)
	assert.Equal(t, []string{"ab", "c\nd"}, questions[0].Options)
}

func TestParseResponse_RejectsWrongShape(t *testing.T) {
	_, err := ParseResponse(`{"items": []}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected shape")

	_, err = ParseResponse(`{"questions": []}`)
	assert.ErrorIs(t, err, ErrNoQuestions)

	_, err = ParseResponse(`{"questions": [ {"questionText": 1,}`)
	assert.Error(t, err)
}
