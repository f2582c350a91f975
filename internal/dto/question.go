package dto

// QuestionResponse represents one parsed question
// @Description Parsed quiz question
type QuestionResponse struct {
	Index         int      `json:"index"`
	Type          string   `json:"type"`
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuestionListResponse wraps a question list
type QuestionListResponse struct {
	Questions []QuestionResponse `json:"questions"`
}

// UpdateQuestionRequest patches one question. Absent fields are left untouched.
type UpdateQuestionRequest struct {
	Index         int     `json:"index"`
	CorrectAnswer *string `json:"correctAnswer,omitempty"`
	Explanation   *string `json:"explanation,omitempty"`
}

// CheckAnswerRequest is a learner's answer to one question
type CheckAnswerRequest struct {
	Answer string `json:"answer"`
}

// CheckAnswerResponse grades an answer. Essay questions are never auto-graded.
type CheckAnswerResponse struct {
	Correct       bool   `json:"correct"`
	Graded        bool   `json:"graded"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
}

// VerifyAnswerRequest asks the completion provider to review an answer
type VerifyAnswerRequest struct {
	QuestionText string `json:"questionText"`
	Answer       string `json:"answer"`
}

// CompleteExplanationRequest asks the completion provider to finish an explanation
type CompleteExplanationRequest struct {
	QuestionText string `json:"questionText"`
	Explanation  string `json:"explanation"`
}

// AssistResponse carries the provider's free-text reply
type AssistResponse struct {
	Result string `json:"result"`
}
