package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/belajaryuk/roadmap-api/internal/models"
)

// AskTutor answers a learner's question about the reading unit at (m, s) of
// an owned roadmap. Out-of-range indices are clamped onto the prepared
// materials, mirroring how the reader navigates; a roadmap with nothing
// prepared has no context to answer from.
func AskTutor(ctx context.Context, db *gorm.DB, gen *Generator, roadmapID, userID string, m, s int, question string, history []ChatTurn) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is required", ErrInvalidInput)
	}

	roadmap, err := GetOwnedRoadmap(db, roadmapID, userID)
	if err != nil {
		return "", err
	}
	content, err := models.ParseContent(roadmap.Content)
	if err != nil {
		return "", err
	}

	byMilestone := content.MaterialsByMilestone
	m = clampIndex(m, len(byMilestone))
	if m < 0 {
		return "", ErrNotFound
	}
	s = clampIndex(s, len(byMilestone[m]))
	if s < 0 {
		return "", ErrNotFound
	}

	return gen.AnswerQuestion(ctx, byMilestone[m][s], question, history)
}

// clampIndex pins i into [0, length), or -1 when the slice is empty.
func clampIndex(i, length int) int {
	if length == 0 {
		return -1
	}
	if i < 0 {
		return 0
	}
	if i >= length {
		return length - 1
	}
	return i
}
