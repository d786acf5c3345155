package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/belajaryuk/roadmap-api/internal/config"
	"github.com/belajaryuk/roadmap-api/internal/services"
)

// HealthHandler reports service health
type HealthHandler struct {
	Cfg   *config.Config
	DB    *gorm.DB
	Cache *services.Cache
}

// Health handles GET /api/health
// @Summary Service health
// @Description Checks database, authorizer, and cache connectivity. A down cache degrades reads but never flips the overall status.
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Cfg, h.DB, h.Cache)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
