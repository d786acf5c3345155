package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/belajaryuk/roadmap-api/internal/middleware"
	"github.com/belajaryuk/roadmap-api/internal/services"
	"github.com/belajaryuk/roadmap-api/internal/types"
	"github.com/belajaryuk/roadmap-api/internal/utils"
)

// ProgressHandler handles the completion map and reading navigation
type ProgressHandler struct {
	DB *gorm.DB
}

type taskUpdateBody struct {
	MilestoneIndex types.FlexInt `json:"milestoneIndex"`
	TaskIndex      types.FlexInt `json:"taskIndex"`
	Done           bool          `json:"done"`
}

// GetProgress handles GET /api/roadmaps/:id/progress
// @Summary Get roadmap progress
// @Tags Progress
// @Produce json
// @Param id path string true "Roadmap ID"
// @Success 200 {object} models.RoadmapProgress
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id}/progress [get]
func (h *ProgressHandler) GetProgress(c *fiber.Ctx) error {
	progress, err := services.GetProgress(h.DB, c.Params("id"), middleware.UserID(c))
	if err != nil {
		return serviceError(c, err, "getProgress")
	}
	return c.Status(fiber.StatusOK).JSON(progress)
}

// UpdateProgress handles POST /api/roadmaps/:id/progress
// @Summary Update checklist progress
// @Description Accepts one update or an array of updates; percent is recomputed in the same transaction
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path string true "Roadmap ID"
// @Param body body object true "{milestoneIndex, taskIndex, done} or an array of those"
// @Success 200 {object} models.RoadmapProgress
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id}/progress [post]
func (h *ProgressHandler) UpdateProgress(c *fiber.Ctx) error {
	var body types.FlexList[taskUpdateBody]
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "progress.validation.input")
	}
	if len(body) == 0 {
		return utils.ErrorResponse(c, "No updates supplied", fiber.StatusBadRequest, "progress.validation.input")
	}

	updates := make([]services.TaskUpdate, len(body))
	for i, u := range body.Slice() {
		updates[i] = services.TaskUpdate{
			MilestoneIndex: u.MilestoneIndex.Int(),
			TaskIndex:      u.TaskIndex.Int(),
			Done:           u.Done,
		}
	}

	progress, err := services.UpdateTasks(h.DB, c.Params("id"), middleware.UserID(c), updates)
	if err != nil {
		return serviceError(c, err, "updateProgress")
	}
	return c.Status(fiber.StatusOK).JSON(progress)
}

// Read handles GET /api/roadmaps/:id/read?m=&s=
// @Summary Read prepared material
// @Description Returns the material at (m, s) plus the next navigation target. Requests past an unpassed quiz gate are redirected to that quiz.
// @Tags Progress
// @Produce json
// @Param id path string true "Roadmap ID"
// @Param m query int false "Milestone index"
// @Param s query int false "Sub-topic index"
// @Success 200 {object} services.ReadView
// @Failure 307 {string} string "Redirect to the gating quiz"
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /roadmaps/{id}/read [get]
func (h *ProgressHandler) Read(c *fiber.Ctx) error {
	m := queryInt(c, "m", 0)
	s := queryInt(c, "s", 0)

	view, redirect, err := services.GetMaterial(h.DB, c.Params("id"), middleware.UserID(c), m, s)
	if err != nil {
		return serviceError(c, err, "readMaterial")
	}
	if redirect != nil {
		location := fmt.Sprintf("/api/roadmaps/%s/quiz?m=%d", c.Params("id"), redirect.MilestoneIndex)
		return c.Redirect(location, fiber.StatusTemporaryRedirect)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}
