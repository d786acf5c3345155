package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/belajaryuk/roadmap-api/internal/middleware"
	"github.com/belajaryuk/roadmap-api/internal/services"
	"github.com/belajaryuk/roadmap-api/internal/utils"
)

// GenerateHandler handles delegated LLM generation routes
type GenerateHandler struct {
	DB  *gorm.DB
	Gen *services.Generator
}

// GenerateRoadmap handles POST /api/generate-roadmap
// @Summary Generate a roadmap structure
// @Description Asks the generation service for milestones; nothing is persisted until the client saves the result via POST /roadmaps
// @Tags Generate
// @Accept json
// @Produce json
// @Param body body object true "{topic, details}"
// @Success 200 {object} models.RoadmapContent
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /generate-roadmap [post]
func (h *GenerateHandler) GenerateRoadmap(c *fiber.Ctx) error {
	var body struct {
		Topic   string `json:"topic"`
		Details string `json:"details"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "generate.validation.input")
	}
	// Validate before any model call; empty topics never reach the LLM.
	if strings.TrimSpace(body.Topic) == "" {
		return utils.ErrorResponse(c, "Topic is required", fiber.StatusBadRequest, "generate.validation.input")
	}

	content, err := h.Gen.GenerateRoadmap(c.Context(), strings.TrimSpace(body.Topic), strings.TrimSpace(body.Details))
	if err != nil {
		return serviceError(c, err, "generateRoadmap")
	}
	return c.Status(fiber.StatusOK).JSON(content)
}

// PrepareMaterials handles POST /api/roadmaps/:id/prepare-materials
// @Summary Prepare reading materials
// @Description Generates the reading unit for every sub-topic. Idempotent: already-prepared roadmaps report alreadyPrepared without regenerating.
// @Tags Generate
// @Produce json
// @Param id path string true "Roadmap ID"
// @Success 200 {object} services.PrepareResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id}/prepare-materials [post]
func (h *GenerateHandler) PrepareMaterials(c *fiber.Ctx) error {
	result, err := services.PrepareMaterials(c.Context(), h.DB, h.Gen, c.Params("id"), middleware.UserID(c))
	if err != nil {
		return serviceError(c, err, "prepareMaterials")
	}
	return c.Status(fiber.StatusOK).JSON(result)
}
