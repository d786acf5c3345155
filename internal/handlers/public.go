package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/belajaryuk/roadmap-api/internal/services"
)

// cache TTLs for the public surface; invalidation on publish/unpublish/delete
// is the primary freshness mechanism, the TTL is a backstop.
const (
	publicListTTL = 5 * time.Minute
	publicSlugTTL = 15 * time.Minute
)

// PublicHandler serves the unauthenticated browse surface
type PublicHandler struct {
	DB    *gorm.DB
	Cache *services.Cache
}

// ListPublic handles GET /api/public/roadmaps
// @Summary Browse published roadmaps
// @Description Paged public library with title search and sorting. pageSize is clamped to [1,50], default 12; unknown sort values fall back to newest.
// @Tags Public
// @Produce json
// @Param q query string false "Title substring, case-insensitive"
// @Param sort query string false "newest | oldest | title_asc | title_desc"
// @Param page query int false "Page number, 1-based"
// @Param pageSize query int false "Items per page"
// @Success 200 {object} services.PublicListResult
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /public/roadmaps [get]
func (h *PublicHandler) ListPublic(c *fiber.Ctx) error {
	q := c.Query("q")
	sort := c.Query("sort")
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "pageSize", 0)

	key := fmt.Sprintf("public:list:q=%s:sort=%s:page=%d:size=%d", q, sort, page, pageSize)
	if data, ok := h.Cache.Get(c.Context(), key); ok {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(fiber.StatusOK).Send(data)
	}

	result, err := services.ListPublicRoadmaps(h.DB, q, sort, page, pageSize)
	if err != nil {
		return serviceError(c, err, "listPublicRoadmaps")
	}

	if payload, err := json.Marshal(result); err == nil {
		h.Cache.Set(c.Context(), key, payload, publicListTTL, services.TagPublicRoadmaps)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// GetPublic handles GET /api/public/roadmaps/:slug
// @Summary Get a published roadmap by slug
// @Description Unpublished roadmaps are invisible here even when the slug still exists
// @Tags Public
// @Produce json
// @Param slug path string true "Roadmap slug"
// @Success 200 {object} models.Roadmap
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /public/roadmaps/{slug} [get]
func (h *PublicHandler) GetPublic(c *fiber.Ctx) error {
	slug := c.Params("slug")

	key := "public:slug:" + slug
	if data, ok := h.Cache.Get(c.Context(), key); ok {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(fiber.StatusOK).Send(data)
	}

	roadmap, err := services.GetPublicRoadmapBySlug(h.DB, slug)
	if err != nil {
		return serviceError(c, err, "getPublicRoadmap")
	}

	if payload, err := json.Marshal(roadmap); err == nil {
		h.Cache.Set(c.Context(), key, payload, publicSlugTTL,
			services.TagPublicRoadmaps, services.SlugTag(slug))
	}
	return c.Status(fiber.StatusOK).JSON(roadmap)
}
