package handler

import (
	"strings"

	"quiz-ingest/internal/domain"

	"github.com/gofiber/fiber/v2"
)

func quizIDParam(c *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return "", domain.NewInvalidInputError("quiz id is required")
	}
	return id, nil
}

// indexParam reads the 1-based question index from the path.
func indexParam(c *fiber.Ctx) (int, error) {
	index, err := c.ParamsInt("index")
	if err != nil || index < 1 {
		return 0, domain.NewInvalidInputError("question index must be a positive integer")
	}
	return index, nil
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return domain.NewError(domain.ErrInvalidInput, "Invalid request body", err)
	}
	return nil
}
