package handler

import (
	"quiz-ingest/internal/dto"
	"quiz-ingest/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PublicHandler serves published quizzes to learners
type PublicHandler struct {
	questions service.QuestionService
}

// NewPublicHandler creates a new PublicHandler instance
func NewPublicHandler(questions service.QuestionService) *PublicHandler {
	return &PublicHandler{questions: questions}
}

// ListQuizzes godoc
// @Summary List published quizzes
// @Tags public
// @Produce json
// @Param search query string false "Case-insensitive title search"
// @Success 200 {object} dto.PublicQuizListResponse
// @Router /public/quizzes [get]
func (h *PublicHandler) ListQuizzes(c *fiber.Ctx) error {
	resp, err := h.questions.ListPublished(c.UserContext(), c.Query("search"))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetQuiz godoc
// @Summary Get a published quiz
// @Tags public
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} dto.PublicQuizResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /public/quizzes/{id} [get]
func (h *PublicHandler) GetQuiz(c *fiber.Ctx) error {
	id, err := quizIDParam(c)
	if err != nil {
		return err
	}
	resp, err := h.questions.GetPublishedQuiz(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetQuestion godoc
// @Summary Get a question without its answer
// @Tags public
// @Produce json
// @Param id path string true "Quiz ID"
// @Param index path int true "1-based question index"
// @Success 200 {object} dto.QuestionResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /public/quizzes/{id}/questions/{index} [get]
func (h *PublicHandler) GetQuestion(c *fiber.Ctx) error {
	id, err := quizIDParam(c)
	if err != nil {
		return err
	}
	index, err := indexParam(c)
	if err != nil {
		return err
	}
	resp, err := h.questions.GetPublishedQuestion(c.UserContext(), id, index)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// CheckAnswer godoc
// @Summary Check an answer
// @Description Choice and fill questions are graded; essay questions return the reference answer only
// @Tags public
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param index path int true "1-based question index"
// @Param request body dto.CheckAnswerRequest true "Learner answer"
// @Success 200 {object} dto.CheckAnswerResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /public/quizzes/{id}/questions/{index}/check [post]
func (h *PublicHandler) CheckAnswer(c *fiber.Ctx) error {
	id, err := quizIDParam(c)
	if err != nil {
		return err
	}
	index, err := indexParam(c)
	if err != nil {
		return err
	}
	var req dto.CheckAnswerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	resp, err := h.questions.CheckAnswer(c.UserContext(), id, index, req.Answer)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
