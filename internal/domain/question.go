package domain

import (
	"fmt"
	"strings"
)

// QuestionType is the closed set of question kinds.
type QuestionType string

const (
	QuestionTypeChoice QuestionType = "choice"
	QuestionTypeFill   QuestionType = "fill"
	QuestionTypeEssay  QuestionType = "essay"
)

const (
	// DefaultEssayAnswer marks an essay question that has no reference answer yet.
	DefaultEssayAnswer = "Reference answer"
	// DefaultExplanation is used when no rationale could be extracted.
	DefaultExplanation = "No explanation available."
)

// ParseQuestionType decodes s into the closed enumeration. ok is false for anything else.
func ParseQuestionType(s string) (QuestionType, bool) {
	switch QuestionType(strings.ToLower(strings.TrimSpace(s))) {
	case QuestionTypeChoice:
		return QuestionTypeChoice, true
	case QuestionTypeFill:
		return QuestionTypeFill, true
	case QuestionTypeEssay:
		return QuestionTypeEssay, true
	default:
		return "", false
	}
}

// Question is one extracted quiz item.
type Question struct {
	Index         int          `json:"index"`
	Type          QuestionType `json:"type"`
	QuestionText  string       `json:"questionText"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
}

// DefaultQuestionText is the placeholder prompt for a question that has none.
func DefaultQuestionText(index int) string {
	return fmt.Sprintf("Question %d", index)
}

// OptionKey returns the letter an option is addressed by (A for position 0).
func OptionKey(position int) string {
	return string(rune('A' + position))
}

// ApplyDefaults fills every empty required field with its placeholder.
// Options are normalised to nil when empty.
func (q *Question) ApplyDefaults() {
	if len(q.Options) == 0 {
		q.Options = nil
	}
	if q.QuestionText == "" {
		q.QuestionText = DefaultQuestionText(q.Index)
	}
	if q.CorrectAnswer == "" && q.Type == QuestionTypeEssay {
		q.CorrectAnswer = DefaultEssayAnswer
	}
	if q.Explanation == "" {
		q.Explanation = DefaultExplanation
	}
}

// CleanText normalises line endings to \n, drops NUL bytes and trims surrounding space.
// Every stored question field goes through it.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

// Renumber assigns contiguous 1-based indexes by position.
func Renumber(questions []Question) {
	for i := range questions {
		questions[i].Index = i + 1
	}
}

// FindQuestion returns the question with the given index.
func FindQuestion(questions []Question, index int) (*Question, bool) {
	for i := range questions {
		if questions[i].Index == index {
			return &questions[i], true
		}
	}
	return nil, false
}
