// Package ai implements the completion-backed extractor tried before the rule-based one.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quiz-ingest/internal/domain"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

var (
	ErrEmptyResponse = errors.New("AI returned an empty response")
	ErrNoJSON        = errors.New("AI response contains no JSON payload")
	ErrNoQuestions   = errors.New("AI returned no usable questions")
)

const promptTemplate = `You are a quiz structuring assistant. Convert the input text into JSON.
Requirements:
1) Return pure JSON only, no markdown and no commentary.
2) Top-level shape: {"questions":[...]}
3) Each question has the fields: type (choice|fill|essay), questionText, options (optional array of strings), correctAnswer, explanation.
4) If a question cannot be fully recognised, still extract as much as possible and fill in an explanation.

Input text:
%s`

// payloadSchema only checks the outer shape. Items are coerced field by field afterwards.
const payloadSchema = `{
  "oneOf": [
    {"type": "array"},
    {
      "type": "object",
      "required": ["questions"],
      "properties": {"questions": {"type": "array"}}
    }
  ]
}`

var payloadLoader = gojsonschema.NewStringLoader(payloadSchema)

// Extractor asks a completion provider to structure raw text.
type Extractor struct {
	completer domain.Completer
	logger    *zap.Logger
}

// NewExtractor creates an AI extractor. A nil completer is allowed and makes every
// call fail with domain.ErrCompleterNotConfigured.
func NewExtractor(completer domain.Completer, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{completer: completer, logger: logger}
}

// BuildPrompt returns the structuring prompt for rawText.
func BuildPrompt(rawText string) string {
	return fmt.Sprintf(promptTemplate, rawText)
}

// Extract implements domain.Extractor. Every failure is meant to be recovered by the caller.
func (e *Extractor) Extract(ctx context.Context, rawText string) ([]domain.Question, []string, error) {
	if e.completer == nil {
		return nil, nil, domain.ErrCompleterNotConfigured
	}

	response, err := e.completer.Complete(ctx, BuildPrompt(rawText))
	if err != nil {
		return nil, nil, domain.NewLLMServiceError(err)
	}
	e.logger.Debug("AI extraction response received", zap.Int("response_length", len(response)))

	questions, err := ParseResponse(response)
	if err != nil {
		e.logger.Warn("AI extraction response rejected", zap.Error(err))
		return nil, nil, err
	}
	return questions, nil, nil
}

// ParseResponse turns raw model output into normalised questions.
func ParseResponse(response string) ([]domain.Question, error) {
	payload, err := ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(payloadLoader, gojsonschema.NewStringLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("AI response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("AI response has an unexpected shape: %s", describeErrors(result.Errors()))
	}

	items, err := decodeItems(payload)
	if err != nil {
		return nil, err
	}

	questions := make([]domain.Question, 0, len(items))
	for _, raw := range items {
		var item rawQuestion
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		q, ok := item.normalize()
		if !ok {
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	domain.Renumber(questions)
	for i := range questions {
		questions[i].ApplyDefaults()
	}
	return questions, nil
}

func decodeItems(payload string) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(payload)
	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return nil, fmt.Errorf("AI response is not valid JSON: %w", err)
		}
		return items, nil
	}
	var wrapper struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err != nil {
		return nil, fmt.Errorf("AI response is not valid JSON: %w", err)
	}
	return wrapper.Questions, nil
}

func describeErrors(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}

var _ domain.Extractor = (*Extractor)(nil)
