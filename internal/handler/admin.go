package handler

import (
	"io"

	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/dto"
	"quiz-ingest/internal/logger"
	"quiz-ingest/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler handles the editor-facing ingestion and review endpoints
type AdminHandler struct {
	ingestion service.IngestionService
	questions service.QuestionService
	assist    service.AssistService
}

// NewAdminHandler creates a new AdminHandler instance
func NewAdminHandler(ingestion service.IngestionService, questions service.QuestionService, assist service.AssistService) *AdminHandler {
	return &AdminHandler{
		ingestion: ingestion,
		questions: questions,
		assist:    assist,
	}
}

// UploadQuiz godoc
// @Summary Upload a quiz document
// @Description Stores the document, creates a pending quiz and queues it for parsing
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Plain-text quiz document (.txt or .md)"
// @Success 202 {object} dto.JobAcceptedResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quizzes/upload [post]
func (h *AdminHandler) UploadQuiz(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return domain.NewError(domain.ErrInvalidInput, "multipart field \"file\" is required", err)
	}
	f, err := fh.Open()
	if err != nil {
		return domain.NewInternalError("Failed to open uploaded file", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return domain.NewInternalError("Failed to read uploaded file", err)
	}

	resp, err := h.ingestion.Submit(c.UserContext(), service.UploadInput{FileName: fh.Filename, Content: content})
	if err != nil {
		return err
	}
	logger.Get().Info("quiz uploaded",
		zap.String("quiz_id", resp.QuizID),
		zap.String("file_name", fh.Filename),
		zap.Int("size", len(content)),
	)
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// ReparseQuiz godoc
// @Summary Re-run parsing for a quiz
// @Tags admin
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 202 {object} dto.JobAcceptedResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quizzes/{id}/reparse [post]
func (h *AdminHandler) ReparseQuiz(c *fiber.Ctx) error {
	id, err := quizIDParam(c)
	if err != nil {
		return err
	}
	resp, err := h.ingestion.Reparse(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// GetJob godoc
// @Summary Get an ingestion job
// @Tags admin
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} dto.JobResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/jobs/{id} [get]
func (h *AdminHandler) GetJob(c *fiber.Ctx) error {
	resp, err := h.ingestion.GetJob(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ListQuizzes godoc
// @Summary List quizzes
// @Description Lists quizzes by most recent update, annotated with the parse mode of their latest job
// @Tags admin
// @Produce json
// @Param status query string false "pending, processing, completed or failed"
// @Param search query string false "Case-insensitive title search"
// @Success 200 {object} dto.QuizListResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quizzes [get]
func (h *AdminHandler) ListQuizzes(c *fiber.Ctx) error {
	filter := domain.QuizFilter{Search: c.Query("search")}
	switch status := domain.QuizStatus(c.Query("status")); status {
	case "":
	case domain.QuizStatusPending, domain.QuizStatusProcessing, domain.QuizStatusCompleted, domain.QuizStatusFailed:
		filter.Status = status
	default:
		return domain.NewInvalidInputError("unknown status " + string(status))
	}

	resp, err := h.ingestion.ListQuizzes(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetQuiz godoc
// @Summary Get a quiz with its document
// @Tags admin
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} dto.QuizDetailResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quizzes/{id} [get]
func (h *AdminHandler) GetQuiz(c *fiber.Ctx) error {
	id, err := quizIDParam(c)
	if err != nil {
		return err
	}
	resp, err := h.ingestion.GetQuiz(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// UpdateQuiz godoc
// @Summary Edit a quiz title or document
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param request body dto.UpdateQuizRequest true "Fields to change"
// @Success 200 {object} dto.OKResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quizzes/{id} [put]
func (h *AdminHandler) UpdateQuiz(c *fiber.Ctx) error {
	id, err := quizIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateQuizRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.ingestion.UpdateQuiz(c.UserContext(), id, req); err != nil {
		return err
	}
	return c.JSON(dto.OKResponse{OK: true})
}

// ListQuestions godoc
// @Summary List the parsed questions of a quiz
// @Tags admin
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} dto.QuestionListResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quizzes/{id}/questions [get]
func (h *AdminHandler) ListQuestions(c *fiber.Ctx) error {
	id, err := quizIDParam(c)
	if err != nil {
		return err
	}
	resp, err := h.questions.ListQuestions(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetQuestion godoc
// @Summary Get one question
// @Tags admin
// @Produce json
// @Param id path string true "Quiz ID"
// @Param index path int true "1-based question index"
// @Success 200 {object} dto.QuestionResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quizzes/{id}/questions/{index} [get]
func (h *AdminHandler) GetQuestion(c *fiber.Ctx) error {
	id, err := quizIDParam(c)
	if err != nil {
		return err
	}
	index, err := indexParam(c)
	if err != nil {
		return err
	}
	resp, err := h.questions.GetQuestion(c.UserContext(), id, index)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// UpdateQuestion godoc
// @Summary Edit the answer or explanation of a question
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param index path int true "1-based question index"
// @Param request body dto.UpdateQuestionRequest true "Fields to change"
// @Success 200 {object} dto.OKResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quizzes/{id}/questions/{index} [put]
func (h *AdminHandler) UpdateQuestion(c *fiber.Ctx) error {
	id, err := quizIDParam(c)
	if err != nil {
		return err
	}
	index, err := indexParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateQuestionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Index = index
	if err := h.questions.UpdateQuestion(c.UserContext(), id, req); err != nil {
		return err
	}
	return c.JSON(dto.OKResponse{OK: true})
}

// PublishQuiz godoc
// @Summary Publish a quiz
// @Description Every question must have a correct answer
// @Tags admin
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} dto.OKResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quizzes/{id}/publish [post]
func (h *AdminHandler) PublishQuiz(c *fiber.Ctx) error {
	id, err := quizIDParam(c)
	if err != nil {
		return err
	}
	if err := h.questions.Publish(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.OKResponse{OK: true})
}

// UnpublishQuiz godoc
// @Summary Unpublish a quiz
// @Tags admin
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} dto.OKResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quizzes/{id}/unpublish [post]
func (h *AdminHandler) UnpublishQuiz(c *fiber.Ctx) error {
	id, err := quizIDParam(c)
	if err != nil {
		return err
	}
	if err := h.questions.Unpublish(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.OKResponse{OK: true})
}

// VerifyAnswer godoc
// @Summary Ask the completion provider to review an answer
// @Tags assist
// @Accept json
// @Produce json
// @Param request body dto.VerifyAnswerRequest true "Question and answer"
// @Success 200 {object} dto.AssistResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/assist/verify-answer [post]
func (h *AdminHandler) VerifyAnswer(c *fiber.Ctx) error {
	var req dto.VerifyAnswerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	resp, err := h.assist.VerifyAnswer(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// CompleteExplanation godoc
// @Summary Ask the completion provider to finish an explanation
// @Tags assist
// @Accept json
// @Produce json
// @Param request body dto.CompleteExplanationRequest true "Question and draft explanation"
// @Success 200 {object} dto.AssistResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/assist/complete-explanation [post]
func (h *AdminHandler) CompleteExplanation(c *fiber.Ctx) error {
	var req dto.CompleteExplanationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	resp, err := h.assist.CompleteExplanation(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
