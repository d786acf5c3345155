package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/belajaryuk/roadmap-api/internal/services"
	"github.com/belajaryuk/roadmap-api/internal/utils"
)

// serviceError maps the service layer's error taxonomy onto HTTP statuses.
// Every branch is explicit; anything unrecognized is a 500 with the type tag
// of the failing operation.
func serviceError(c *fiber.Ctx, err error, errorType string) error {
	var incomplete *services.IncompleteError

	switch {
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFoundResponse(c, "Resource not found")

	case errors.As(err, &incomplete):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":    fiber.StatusBadRequest,
			"message":   incomplete.Error(),
			"ok":        false,
			"percent":   incomplete.Percent,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
			"type":      errorType,
		})

	case errors.Is(err, services.ErrForkedPublish),
		errors.Is(err, services.ErrOwnRoadmap),
		errors.Is(err, services.ErrInvalidInput):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, errorType)

	case errors.Is(err, services.ErrNotPublished):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, errorType)

	case errors.Is(err, services.ErrGeneration):
		// Upstream detail is logged by the generator; the caller gets a
		// generic failure.
		return utils.ErrorResponse(c, "Generation service failed", fiber.StatusInternalServerError, errorType)

	default:
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, errorType)
	}
}

// queryInt parses an integer query parameter with a default.
func queryInt(c *fiber.Ctx, name string, defaultValue int) int {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
