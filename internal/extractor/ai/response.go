package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"quiz-ingest/internal/domain"
)

var (
	jsonFencePattern    = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")
	genericFencePattern = regexp.MustCompile("(?s)```(.*?)```")
)

// stripThinking removes <think>...</think> blocks some local models prepend to their answer.
func stripThinking(text string) string {
	for {
		start := strings.Index(text, "<think>")
		if start == -1 {
			return text
		}
		end := strings.Index(text[start:], "</think>")
		if end == -1 {
			return text[:start]
		}
		text = text[:start] + text[start+end+len("</think>"):]
	}
}

// ExtractJSON pulls the JSON payload out of free-form model output. It prefers a
// json-labelled fence, then any fence, then the span from the first brace or bracket
// to the last closing one.
func ExtractJSON(response string) (string, error) {
	cleaned := strings.TrimSpace(stripThinking(response))
	if cleaned == "" {
		return "", ErrEmptyResponse
	}
	if m := jsonFencePattern.FindStringSubmatch(cleaned); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1]), nil
	}
	if m := genericFencePattern.FindStringSubmatch(cleaned); m != nil {
		if body := dropFenceLabel(m[1]); body != "" {
			return body, nil
		}
	}

	start := strings.IndexAny(cleaned, "{[")
	end := strings.LastIndexAny(cleaned, "}]")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSON
	}
	return strings.TrimSpace(cleaned[start : end+1]), nil
}

var fenceLabelPattern = regexp.MustCompile(`^[A-Za-z0-9_+-]+\s*\n`)

// dropFenceLabel removes a language label such as "javascript" from the first fence line.
func dropFenceLabel(body string) string {
	return strings.TrimSpace(fenceLabelPattern.ReplaceAllString(body, ""))
}

// looseString accepts strings, numbers and booleans. Anything else decodes to "".
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = looseString(t)
	case float64, bool:
		raw := strings.TrimSpace(string(data))
		*s = looseString(raw)
	default:
		*s = ""
	}
	return nil
}

// looseOptions accepts an array of loose strings. Any other shape decodes to no options.
type looseOptions []looseString

func (o *looseOptions) UnmarshalJSON(data []byte) error {
	var items []looseString
	if err := json.Unmarshal(data, &items); err != nil {
		*o = nil
		return nil
	}
	*o = items
	return nil
}

// rawQuestion is one model-supplied item with the field aliases models commonly use.
type rawQuestion struct {
	Type          looseString  `json:"type"`
	QuestionText  looseString  `json:"questionText"`
	Question      looseString  `json:"question"`
	Options       looseOptions `json:"options"`
	CorrectAnswer looseString  `json:"correctAnswer"`
	Answer        looseString  `json:"answer"`
	Explanation   looseString  `json:"explanation"`
	Analysis      looseString  `json:"analysis"`
}

func firstNonEmpty(values ...looseString) string {
	for _, v := range values {
		if t := domain.CleanText(string(v)); t != "" {
			return t
		}
	}
	return ""
}

// normalize decodes the closed type enum and cleans every field. ok is false when
// the item has no question text.
func (r rawQuestion) normalize() (domain.Question, bool) {
	q := domain.Question{
		QuestionText:  firstNonEmpty(r.QuestionText, r.Question),
		CorrectAnswer: firstNonEmpty(r.CorrectAnswer, r.Answer),
		Explanation:   firstNonEmpty(r.Explanation, r.Analysis),
	}
	if q.QuestionText == "" {
		return domain.Question{}, false
	}
	for _, opt := range r.Options {
		if t := domain.CleanText(string(opt)); t != "" {
			q.Options = append(q.Options, t)
		}
	}

	t, ok := domain.ParseQuestionType(string(r.Type))
	switch {
	case len(q.Options) > 0:
		q.Type = domain.QuestionTypeChoice
	case ok:
		q.Type = t
	default:
		q.Type = domain.QuestionTypeEssay
	}
	return q, true
}
