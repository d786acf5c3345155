package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/belajaryuk/roadmap-api/internal/jobs"
	"github.com/belajaryuk/roadmap-api/internal/middleware"
	"github.com/belajaryuk/roadmap-api/internal/services"
	"github.com/belajaryuk/roadmap-api/internal/utils"
)

// RoadmapHandler handles the owned-roadmap CRUD routes
type RoadmapHandler struct {
	DB     *gorm.DB
	Cache  *services.Cache
	Worker *jobs.MaterialsWorker
}

// CreateRoadmap handles POST /api/roadmaps
// @Summary Save a generated roadmap
// @Description Create a draft roadmap with an empty progress row. Identical retried submissions return the existing record with X-Deduped: true.
// @Tags Roadmaps
// @Accept json
// @Produce json
// @Param body body object true "Title and content"
// @Success 201 {object} models.Roadmap
// @Success 200 {object} models.Roadmap "Deduplicated"
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /roadmaps [post]
func (h *RoadmapHandler) CreateRoadmap(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var body struct {
		Title   string      `json:"title"`
		Content interface{} `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "roadmap.validation.input")
	}
	if body.Title == "" {
		return utils.ErrorResponse(c, "Title is required", fiber.StatusBadRequest, "roadmap.validation.input")
	}

	roadmap, deduped, err := services.CreateRoadmap(h.DB, userID, body.Title, body.Content)
	if err != nil {
		return serviceError(c, err, "createRoadmap")
	}

	if deduped {
		c.Set("X-Deduped", "true")
		return c.Status(fiber.StatusOK).JSON(roadmap)
	}

	// Preparation runs in the background; the endpoint stays available for
	// on-demand retries.
	if h.Worker != nil {
		h.Worker.Enqueue(roadmap.ID, userID)
	}

	return c.Status(fiber.StatusCreated).JSON(roadmap)
}

// ListRoadmaps handles GET /api/roadmaps
// @Summary List own roadmaps
// @Description List the caller's roadmaps, newest first
// @Tags Roadmaps
// @Produce json
// @Success 200 {array} models.Roadmap
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /roadmaps [get]
func (h *RoadmapHandler) ListRoadmaps(c *fiber.Ctx) error {
	roadmaps, err := services.ListOwnedRoadmaps(h.DB, middleware.UserID(c))
	if err != nil {
		return serviceError(c, err, "listRoadmaps")
	}
	return c.Status(fiber.StatusOK).JSON(roadmaps)
}

// GetRoadmap handles GET /api/roadmaps/:id
// @Summary Get an owned roadmap
// @Tags Roadmaps
// @Produce json
// @Param id path string true "Roadmap ID"
// @Success 200 {object} models.Roadmap
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id} [get]
func (h *RoadmapHandler) GetRoadmap(c *fiber.Ctx) error {
	roadmap, err := services.GetOwnedRoadmap(h.DB, c.Params("id"), middleware.UserID(c))
	if err != nil {
		return serviceError(c, err, "getRoadmap")
	}
	return c.Status(fiber.StatusOK).JSON(roadmap)
}

// DeleteRoadmap handles DELETE /api/roadmaps/:id
// @Summary Delete an owned roadmap
// @Description Hard delete; progress, ratings, aggregates, and topic links cascade
// @Tags Roadmaps
// @Produce json
// @Param id path string true "Roadmap ID"
// @Success 200 {object} utils.OkResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id} [delete]
func (h *RoadmapHandler) DeleteRoadmap(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	// Snapshot publication state before the row disappears so the right
	// cache tags can be dropped afterwards.
	roadmap, err := services.GetOwnedRoadmap(h.DB, c.Params("id"), userID)
	if err != nil {
		return serviceError(c, err, "deleteRoadmap")
	}

	if err := services.DeleteRoadmap(h.DB, roadmap.ID, userID); err != nil {
		return serviceError(c, err, "deleteRoadmap")
	}

	if roadmap.Published {
		tags := []string{services.TagPublicRoadmaps}
		if roadmap.Slug != nil {
			tags = append(tags, services.SlugTag(*roadmap.Slug))
		}
		h.Cache.Invalidate(context.Background(), tags...)
	}

	return utils.OkResponse(c)
}
