package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"quiz-ingest/internal/config"
	"quiz-ingest/internal/domain"
)

const (
	maxAnswerLength       = 2000
	maxQuestionTextLength = 10000
)

// Validator provides request validation functionality
type Validator struct {
	upload config.UploadConfig
}

// NewValidator creates a new validator instance
func NewValidator(upload config.UploadConfig) *Validator {
	return &Validator{upload: upload}
}

// ValidateUpload checks an uploaded document and returns its cleaned base name.
func (v *Validator) ValidateUpload(fileName string, content []byte) (string, error) {
	name := filepath.Base(strings.TrimSpace(fileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", domain.NewInvalidInputError("file name is required")
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !v.allowedExtension(ext) {
		return "", domain.NewInvalidInputError(fmt.Sprintf("unsupported file type %q, allowed: %s",
			ext, strings.Join(v.upload.AllowedExtensions, ", ")))
	}

	if len(content) == 0 {
		return "", domain.NewInvalidInputError("file is empty")
	}
	if v.upload.MaxFileSize > 0 && int64(len(content)) > v.upload.MaxFileSize {
		return "", domain.NewInvalidInputError(fmt.Sprintf("file exceeds the %d byte limit", v.upload.MaxFileSize))
	}
	if !utf8.Valid(content) {
		return "", domain.NewInvalidInputError("file must be UTF-8 encoded text")
	}
	return name, nil
}

func (v *Validator) allowedExtension(ext string) bool {
	for _, a := range v.upload.AllowedExtensions {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

// ValidateAnswer checks a learner's answer before grading.
func ValidateAnswer(answer string) error {
	if strings.TrimSpace(answer) == "" {
		return domain.NewInvalidInputError("answer is required")
	}
	if utf8.RuneCountInString(answer) > maxAnswerLength {
		return domain.NewInvalidInputError(fmt.Sprintf("answer must be at most %d characters", maxAnswerLength))
	}
	return nil
}

// ValidateQuestionText checks the question sent to the completion provider.
func ValidateQuestionText(text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.NewInvalidInputError("questionText is required")
	}
	if utf8.RuneCountInString(text) > maxQuestionTextLength {
		return domain.NewInvalidInputError(fmt.Sprintf("questionText must be at most %d characters", maxQuestionTextLength))
	}
	return nil
}
