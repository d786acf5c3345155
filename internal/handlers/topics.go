package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/belajaryuk/roadmap-api/internal/services"
)

// TopicHandler serves the controlled topic vocabulary
type TopicHandler struct {
	DB *gorm.DB
}

// ListTopics handles GET /api/topics
// @Summary List the topic vocabulary
// @Tags Topics
// @Produce json
// @Success 200 {array} models.Topic
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /topics [get]
func (h *TopicHandler) ListTopics(c *fiber.Ctx) error {
	topics, err := services.ListTopics(h.DB)
	if err != nil {
		return serviceError(c, err, "listTopics")
	}
	return c.Status(fiber.StatusOK).JSON(topics)
}
