package services

import (
	"context"
	"fmt"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"gorm.io/gorm"
)

// PrepareResult reports what material preparation did.
type PrepareResult struct {
	Ok              bool `json:"ok"`
	AlreadyPrepared bool `json:"alreadyPrepared,omitempty"`
	Count           int  `json:"count,omitempty"`
}

// PrepareMaterials generates the reading unit for every sub-topic of every
// milestone and stores the result back into content.materialsByMilestone.
// The operation is idempotent on the roadmap: already-prepared content is
// left untouched, so retries and the background worker can both call it.
func PrepareMaterials(ctx context.Context, db *gorm.DB, gen *Generator, roadmapID, userID string) (*PrepareResult, error) {
	roadmap, err := GetOwnedRoadmap(db, roadmapID, userID)
	if err != nil {
		return nil, err
	}
	content, err := models.ParseContent(roadmap.Content)
	if err != nil {
		return nil, err
	}
	if len(content.Milestones) == 0 {
		return nil, fmt.Errorf("%w: roadmap has no milestones", ErrInvalidInput)
	}
	if content.MaterialsByMilestone != nil {
		return &PrepareResult{Ok: true, AlreadyPrepared: true}, nil
	}

	byMilestone := make([][]models.Material, len(content.Milestones))
	count := 0
	for mi, milestone := range content.Milestones {
		subs := milestone.SubTopics()
		items := make([]models.Material, 0, len(subs))
		for si, sub := range subs {
			material, err := gen.GenerateMaterial(ctx, fmt.Sprintf("%s - %s", milestone.Topic, sub), sub)
			if err != nil {
				return nil, err
			}
			material.MilestoneIndex = mi
			material.SubIndex = si
			items = append(items, material)
			count++
		}
		byMilestone[mi] = items
	}

	content.MaterialsByMilestone = byMilestone
	col, err := models.MarshalJSONColumn(content)
	if err != nil {
		return nil, err
	}
	if err := db.Model(&models.Roadmap{}).
		Where("id = ?", roadmap.ID).
		Update("content", col).Error; err != nil {
		return nil, err
	}

	return &PrepareResult{Ok: true, Count: count}, nil
}
