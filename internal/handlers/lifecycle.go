package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/belajaryuk/roadmap-api/internal/middleware"
	"github.com/belajaryuk/roadmap-api/internal/services"
	"github.com/belajaryuk/roadmap-api/internal/utils"
)

// LifecycleHandler handles publication state, forking, saving, and rating
type LifecycleHandler struct {
	DB    *gorm.DB
	Cache *services.Cache
	Gen   *services.Generator
}

// Publish handles POST /api/roadmaps/:id/publish
// @Summary Publish or unpublish a roadmap
// @Description Publishing requires ownership, no fork source, and 100% progress. Unpublishing keeps the slug.
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Roadmap ID"
// @Param body body object true "{publish: bool}"
// @Success 200 {object} models.Roadmap
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id}/publish [post]
func (h *LifecycleHandler) Publish(c *fiber.Ctx) error {
	var body struct {
		Publish bool `json:"publish"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "roadmap.validation.input")
	}

	roadmap, err := services.SetPublished(h.DB, c.Params("id"), middleware.UserID(c), body.Publish)
	if err != nil {
		return serviceError(c, err, "publishRoadmap")
	}

	// Drop cached public reads so the change shows on next fetch.
	tags := []string{services.TagPublicRoadmaps}
	if roadmap.Slug != nil {
		tags = append(tags, services.SlugTag(*roadmap.Slug))
	}
	h.Cache.Invalidate(c.Context(), tags...)

	if body.Publish && h.Gen != nil {
		// Classification is best effort and must not delay the response.
		go services.ClassifyRoadmap(context.Background(), h.DB, h.Gen, roadmap)
	}

	return c.Status(fiber.StatusOK).JSON(roadmap)
}

// Fork handles POST /api/roadmaps/:id/fork
// @Summary Fork a published roadmap
// @Description Clone a public roadmap into an independently progressable, never-publishable copy
// @Tags Lifecycle
// @Produce json
// @Param id path string true "Source roadmap ID"
// @Success 201 {object} models.Roadmap
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id}/fork [post]
func (h *LifecycleHandler) Fork(c *fiber.Ctx) error {
	clone, err := services.ForkRoadmap(h.DB, c.Params("id"), middleware.UserID(c))
	if err != nil {
		return serviceError(c, err, "forkRoadmap")
	}
	return c.Status(fiber.StatusCreated).JSON(clone)
}

// Save handles POST /api/roadmaps/:id/save
// @Summary Bookmark a published roadmap
// @Description Save a public roadmap to the caller's library without cloning it
// @Tags Lifecycle
// @Produce json
// @Param id path string true "Roadmap ID"
// @Success 200 {object} utils.OkResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id}/save [post]
func (h *LifecycleHandler) Save(c *fiber.Ctx) error {
	if err := services.SaveRoadmap(h.DB, c.Params("id"), middleware.UserID(c)); err != nil {
		return serviceError(c, err, "saveRoadmap")
	}
	return utils.OkResponse(c)
}

// Rate handles POST /api/roadmaps/:id/rate
// @Summary Rate a published roadmap
// @Description Upsert the caller's 1-5 star rating and recompute aggregates
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Roadmap ID"
// @Param body body object true "{stars: 1..5}"
// @Success 200 {object} models.RoadmapAggregates
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id}/rate [post]
func (h *LifecycleHandler) Rate(c *fiber.Ctx) error {
	var body struct {
		Stars int `json:"stars"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "roadmap.validation.input")
	}

	aggregates, err := services.RateRoadmap(h.DB, c.Params("id"), middleware.UserID(c), body.Stars)
	if err != nil {
		return serviceError(c, err, "rateRoadmap")
	}
	return c.Status(fiber.StatusOK).JSON(aggregates)
}
