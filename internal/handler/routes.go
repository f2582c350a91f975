package handler

import (
	"quiz-ingest/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts every API route under /api. Admin routes require an admin token.
func RegisterRoutes(app *fiber.App, admin *AdminHandler, public *PublicHandler, health *HealthHandler, jwtSecret string) {
	api := app.Group("/api")
	api.Get("/health", health.Health)

	adminGroup := api.Group("/admin", middleware.AdminOnly(jwtSecret))
	adminGroup.Post("/quizzes/upload", admin.UploadQuiz)
	adminGroup.Get("/quizzes", admin.ListQuizzes)
	adminGroup.Get("/quizzes/:id", admin.GetQuiz)
	adminGroup.Put("/quizzes/:id", admin.UpdateQuiz)
	adminGroup.Post("/quizzes/:id/reparse", admin.ReparseQuiz)
	adminGroup.Post("/quizzes/:id/publish", admin.PublishQuiz)
	adminGroup.Post("/quizzes/:id/unpublish", admin.UnpublishQuiz)
	adminGroup.Get("/quizzes/:id/questions", admin.ListQuestions)
	adminGroup.Get("/quizzes/:id/questions/:index", admin.GetQuestion)
	adminGroup.Put("/quizzes/:id/questions/:index", admin.UpdateQuestion)
	adminGroup.Get("/jobs/:id", admin.GetJob)
	adminGroup.Post("/assist/verify-answer", admin.VerifyAnswer)
	adminGroup.Post("/assist/complete-explanation", admin.CompleteExplanation)

	publicGroup := api.Group("/public")
	publicGroup.Get("/quizzes", public.ListQuizzes)
	publicGroup.Get("/quizzes/:id", public.GetQuiz)
	publicGroup.Get("/quizzes/:id/questions/:index", public.GetQuestion)
	publicGroup.Post("/quizzes/:id/questions/:index/check", public.CheckAnswer)
}
