// Package codec converts between question sequences and the canonical quiz document.
//
// The document is HTML. Each question is a block:
//
//	<div class="question" data-index="1" data-type="choice">
//	  <div class="question-text">...</div>
//	  <ul class="options"><li data-key="A">...</li></ul>
//	  <div class="answer">...</div>
//	  <div class="explanation">...</div>
//	</div>
//
// Render and Parse are a lossless round-trip pair for questions whose text fields are free of
// surrounding space and NUL bytes, which domain.CleanText guarantees for every extractor and edit.
package codec

import (
	"html"
	"strconv"
	"strings"

	"quiz-ingest/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

const (
	questionSelector  = "div.question"
	questionTextClass = "question-text"
	optionsClass      = "options"
	answerClass       = "answer"
	explanationClass  = "explanation"
	attrIndex         = "data-index"
	attrType          = "data-type"
	attrOptionKey     = "data-key"
)

const documentHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8" />
<title>Quiz</title>
<style>
  body { font-family: sans-serif; padding: 24px; }
  .question { border-bottom: 1px solid #eee; padding: 16px 0; }
  .question-text { font-weight: 600; margin-bottom: 8px; }
  .options { margin: 8px 0; padding-left: 18px; }
  .answer { color: #d96b27; margin-top: 8px; }
  .explanation { color: #555; margin-top: 6px; }
</style>
</head>
<body>
`

const documentTail = "</body>\n</html>\n"

// Render serializes questions into the canonical document. All free text is entity-escaped.
func Render(questions []domain.Question) string {
	var b strings.Builder
	b.WriteString(documentHead)
	for _, q := range questions {
		renderQuestion(&b, q)
		b.WriteString("\n")
	}
	b.WriteString(documentTail)
	return b.String()
}

func renderQuestion(b *strings.Builder, q domain.Question) {
	b.WriteString(`<div class="question" `)
	b.WriteString(attrIndex)
	b.WriteString(`="`)
	b.WriteString(strconv.Itoa(q.Index))
	b.WriteString(`" `)
	b.WriteString(attrType)
	b.WriteString(`="`)
	b.WriteString(html.EscapeString(string(q.Type)))
	b.WriteString("\">\n")

	writeField(b, questionTextClass, q.QuestionText)

	if len(q.Options) > 0 {
		b.WriteString(`  <ul class="` + optionsClass + "\">\n")
		for i, opt := range q.Options {
			b.WriteString(`    <li ` + attrOptionKey + `="`)
			b.WriteString(domain.OptionKey(i))
			b.WriteString(`">`)
			b.WriteString(escapeText(opt))
			b.WriteString("</li>\n")
		}
		b.WriteString("  </ul>\n")
	}

	writeField(b, answerClass, q.CorrectAnswer)
	writeField(b, explanationClass, q.Explanation)
	b.WriteString("</div>")
}

func writeField(b *strings.Builder, class, text string) {
	b.WriteString(`  <div class="`)
	b.WriteString(class)
	b.WriteString(`">`)
	b.WriteString(escapeText(text))
	b.WriteString("</div>\n")
}

// escapeText entity-escapes free text. Carriage returns become &#13; since the HTML
// tokenizer folds literal CRLF into LF.
func escapeText(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\r", "&#13;")
}

// Parse reads questions back from a canonical document. It never fails: a block missing a
// field gets that field's default, and a document without question blocks yields nil.
func Parse(document string) []domain.Question {
	if strings.TrimSpace(document) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil
	}

	var questions []domain.Question
	doc.Find(questionSelector).Each(func(position int, s *goquery.Selection) {
		questions = append(questions, parseQuestion(position+1, s))
	})
	normalizeIndexes(questions)

	for i := range questions {
		if questions[i].QuestionText == "" {
			questions[i].QuestionText = domain.DefaultQuestionText(questions[i].Index)
		}
	}
	return questions
}

func parseQuestion(position int, s *goquery.Selection) domain.Question {
	q := domain.Question{Index: position}
	if raw, ok := s.Attr(attrIndex); ok {
		if idx, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && idx > 0 {
			q.Index = idx
		}
	}

	s.ChildrenFiltered("ul." + optionsClass).First().ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		q.Options = append(q.Options, strings.TrimSpace(li.Text()))
	})

	rawType, _ := s.Attr(attrType)
	switch t, ok := domain.ParseQuestionType(rawType); {
	case len(q.Options) > 0:
		q.Type = domain.QuestionTypeChoice
	case ok:
		q.Type = t
	default:
		q.Type = domain.QuestionTypeEssay
	}

	q.QuestionText, _ = fieldText(s, questionTextClass)

	if answer, ok := fieldText(s, answerClass); ok {
		q.CorrectAnswer = answer
	} else if q.Type == domain.QuestionTypeEssay {
		q.CorrectAnswer = domain.DefaultEssayAnswer
	}

	if explanation, ok := fieldText(s, explanationClass); ok {
		q.Explanation = explanation
	} else {
		q.Explanation = domain.DefaultExplanation
	}
	return q
}

// fieldText returns the trimmed text of the first child field with the given class.
// ok is false when the field element is missing altogether.
func fieldText(s *goquery.Selection, class string) (string, bool) {
	field := s.ChildrenFiltered("div." + class).First()
	if field.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(field.Text()), true
}

// normalizeIndexes keeps parsed indexes when they are exactly 1..N and renumbers by position otherwise.
func normalizeIndexes(questions []domain.Question) {
	seen := make(map[int]bool, len(questions))
	for _, q := range questions {
		if q.Index < 1 || q.Index > len(questions) || seen[q.Index] {
			domain.Renumber(questions)
			return
		}
		seen[q.Index] = true
	}
}
