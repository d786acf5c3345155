package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/belajaryuk/roadmap-api/internal/middleware"
	"github.com/belajaryuk/roadmap-api/internal/models"
	"github.com/belajaryuk/roadmap-api/internal/services"
	"github.com/belajaryuk/roadmap-api/internal/types"
	"github.com/belajaryuk/roadmap-api/internal/utils"
)

// QuizHandler handles milestone quiz generation and submission
type QuizHandler struct {
	DB  *gorm.DB
	Gen *services.Generator
}

// GetQuiz handles GET /api/roadmaps/:id/quiz?m=
// @Summary Generate a milestone quiz
// @Description Up to 5 multiple-choice questions grounded strictly in the milestone's prepared material. Empty list when nothing is prepared yet.
// @Tags Quiz
// @Produce json
// @Param id path string true "Roadmap ID"
// @Param m query int false "Milestone index"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id}/quiz [get]
func (h *QuizHandler) GetQuiz(c *fiber.Ctx) error {
	m := queryInt(c, "m", 0)

	roadmap, err := services.GetOwnedRoadmap(h.DB, c.Params("id"), middleware.UserID(c))
	if err != nil {
		return serviceError(c, err, "getQuiz")
	}
	content, err := models.ParseContent(roadmap.Content)
	if err != nil {
		return serviceError(c, err, "getQuiz")
	}

	var materials []models.Material
	if m >= 0 && m < len(content.MaterialsByMilestone) {
		materials = content.MaterialsByMilestone[m]
	}
	if len(materials) == 0 {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"questions": []services.QuizQuestion{}})
	}

	questions, err := h.Gen.GenerateQuiz(c.Context(), materials)
	if err != nil {
		return serviceError(c, err, "getQuiz")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"questions": questions})
}

// SubmitQuiz handles POST /api/roadmaps/:id/quiz
// @Summary Record a quiz result
// @Description Stores quiz-m-{index} with passed/score; passing unlocks the next milestone's material
// @Tags Quiz
// @Accept json
// @Produce json
// @Param id path string true "Roadmap ID"
// @Param body body object true "{milestoneIndex, score, passed}"
// @Success 200 {object} models.RoadmapProgress
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id}/quiz [post]
func (h *QuizHandler) SubmitQuiz(c *fiber.Ctx) error {
	var body struct {
		MilestoneIndex types.FlexInt `json:"milestoneIndex"`
		Score          float64       `json:"score"`
		Passed         bool          `json:"passed"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "quiz.validation.input")
	}

	progress, err := services.SubmitQuiz(h.DB, c.Params("id"), middleware.UserID(c),
		body.MilestoneIndex.Int(), body.Score, body.Passed)
	if err != nil {
		return serviceError(c, err, "submitQuiz")
	}
	return c.Status(fiber.StatusOK).JSON(progress)
}
