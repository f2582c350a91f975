// Package rule implements the deterministic line-pattern extractor used as the
// always-available fallback of the ingestion pipeline.
package rule

import (
	"context"
	"regexp"
	"strings"

	"quiz-ingest/internal/domain"
)

var (
	headerPattern      = regexp.MustCompile(`^(?:\d{1,3}[.、]|Q\d+|题\d+)`)
	numberingPattern   = regexp.MustCompile(`^(?:\d{1,3}[.、]|Q\d+[.、:：)]?|题\d+[.、:：)]?)\s*`)
	answerPattern      = regexp.MustCompile(`(?i)^(?:答案|正确答案|Answer)[:：]\s*`)
	explanationPattern = regexp.MustCompile(`(?i)^(?:解析|Explanation)[:：]\s*`)
	optionPattern      = regexp.MustCompile(`^[A-D][.、)]\s*`)
)

var fillBlankMarkers = []string{"____", "（  ）"}

// WarningNoHeaders is reported when the text has no recognisable question header.
const WarningNoHeaders = "no question headers found, the whole text was treated as one question"

// Extractor adapts Parse to domain.Extractor.
type Extractor struct{}

// NewExtractor creates the rule-based extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract never fails. Empty input yields no questions.
func (e *Extractor) Extract(_ context.Context, rawText string) ([]domain.Question, []string, error) {
	blocks, headed := SplitBlocks(rawText)
	var warnings []string
	if len(blocks) > 0 && !headed {
		warnings = append(warnings, WarningNoHeaders)
	}
	questions := make([]domain.Question, 0, len(blocks))
	for i, block := range blocks {
		questions = append(questions, ParseBlock(block, i+1))
	}
	return questions, warnings, nil
}

// Parse structures raw text into questions. It is the single rule-based path used
// by both ingestion and manual reparse.
func Parse(rawText string) []domain.Question {
	questions, _, _ := NewExtractor().Extract(context.Background(), rawText)
	return questions
}

func normalize(text string) string {
	return domain.CleanText(text)
}

// SplitBlocks splits text before every question header line. headed is false when no
// header was found and the whole text became a single block.
func SplitBlocks(rawText string) (blocks []string, headed bool) {
	text := normalize(rawText)
	if text == "" {
		return nil, false
	}

	var current []string
	flush := func() {
		if block := strings.TrimSpace(strings.Join(current, "\n")); block != "" {
			blocks = append(blocks, block)
		}
		current = current[:0]
	}
	for i, line := range strings.Split(text, "\n") {
		if headerPattern.MatchString(line) {
			headed = true
			if i > 0 {
				flush()
			}
		}
		current = append(current, line)
	}
	flush()
	return blocks, headed
}

// ParseBlock classifies each line of one block in a single pass. The first matching rule wins:
// answer marker, explanation marker, option marker, then free text.
func ParseBlock(block string, index int) domain.Question {
	q := domain.Question{Index: index}
	var (
		runningExplanation []string
		markedExplanation  bool
	)

	for _, raw := range strings.Split(block, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case answerPattern.MatchString(line):
			q.CorrectAnswer = strings.TrimSpace(answerPattern.ReplaceAllString(line, ""))
		case explanationPattern.MatchString(line):
			q.Explanation = strings.TrimSpace(explanationPattern.ReplaceAllString(line, ""))
			markedExplanation = true
		case optionPattern.MatchString(line):
			q.Options = append(q.Options, strings.TrimSpace(optionPattern.ReplaceAllString(line, "")))
		case q.QuestionText == "":
			q.QuestionText = strings.TrimSpace(numberingPattern.ReplaceAllString(line, ""))
		case !markedExplanation:
			runningExplanation = append(runningExplanation, line)
			q.Explanation = strings.Join(runningExplanation, "\n")
		}
	}

	q.Type = inferType(q)
	q.ApplyDefaults()
	return q
}

func inferType(q domain.Question) domain.QuestionType {
	if len(q.Options) > 0 {
		return domain.QuestionTypeChoice
	}
	for _, marker := range fillBlankMarkers {
		if strings.Contains(q.QuestionText, marker) {
			return domain.QuestionTypeFill
		}
	}
	return domain.QuestionTypeEssay
}

var _ domain.Extractor = (*Extractor)(nil)
