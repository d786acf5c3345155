package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/belajaryuk/roadmap-api/internal/middleware"
	"github.com/belajaryuk/roadmap-api/internal/services"
	"github.com/belajaryuk/roadmap-api/internal/types"
	"github.com/belajaryuk/roadmap-api/internal/utils"
)

// AskHandler handles the reader's tutor Q&A
type AskHandler struct {
	DB  *gorm.DB
	Gen *services.Generator
}

// Ask handles POST /api/roadmaps/:id/ask
// @Summary Ask the tutor about the current material
// @Description Answers strictly from the reading unit at (m, s); conversation history is capped to the last six turns
// @Tags Reader
// @Accept json
// @Produce json
// @Param id path string true "Roadmap ID"
// @Param body body object true "{question, m, s, history: [{role, content}]}"
// @Success 200 {object} map[string]string
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id}/ask [post]
func (h *AskHandler) Ask(c *fiber.Ctx) error {
	var body struct {
		Question string              `json:"question"`
		M        types.FlexInt       `json:"m"`
		S        types.FlexInt       `json:"s"`
		History  []services.ChatTurn `json:"history"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "ask.validation.input")
	}

	answer, err := services.AskTutor(c.Context(), h.DB, h.Gen, c.Params("id"), middleware.UserID(c),
		body.M.Int(), body.S.Int(), body.Question, body.History)
	if err != nil {
		return serviceError(c, err, "askTutor")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"answer": answer})
}
