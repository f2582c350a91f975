package validation

import (
	"strings"
	"testing"

	"quiz-ingest/internal/config"
	"quiz-ingest/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUpload(t *testing.T) {
	v := NewValidator(config.UploadConfig{MaxFileSize: 8, AllowedExtensions: []string{".txt", ".md"}})

	name, err := v.ValidateUpload(" ../notes/Week 1.MD ", []byte("1. q"))
	require.NoError(t, err)
	assert.Equal(t, "Week 1.MD", name)

	tests := []struct {
		name     string
		fileName string
		content  []byte
	}{
		{"missing name", "", []byte("x")},
		{"directory only", "/", []byte("x")},
		{"unsupported extension", "quiz.docx", []byte("x")},
		{"no extension", "quiz", []byte("x")},
		{"empty", "quiz.txt", nil},
		{"too large", "quiz.txt", []byte("123456789")},
		{"not utf-8", "quiz.txt", []byte{0xff, 0xfe}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateUpload(tt.fileName, tt.content)
			assert.Equal(t, domain.ErrInvalidInput, domain.CodeOf(err))
		})
	}
}

func TestValidateAnswer(t *testing.T) {
	assert.NoError(t, ValidateAnswer("B"))
	assert.Equal(t, domain.ErrInvalidInput, domain.CodeOf(ValidateAnswer("  ")))
	assert.Equal(t, domain.ErrInvalidInput, domain.CodeOf(ValidateAnswer(strings.Repeat("a", maxAnswerLength+1))))
	assert.NoError(t, ValidateAnswer(strings.Repeat("答", maxAnswerLength)))
}

func TestValidateQuestionText(t *testing.T) {
	assert.NoError(t, ValidateQuestionText("What is 2+2?"))
	assert.Equal(t, domain.ErrInvalidInput, domain.CodeOf(ValidateQuestionText("")))
	assert.Equal(t, domain.ErrInvalidInput, domain.CodeOf(ValidateQuestionText(strings.Repeat("x", maxQuestionTextLength+1))))
}
