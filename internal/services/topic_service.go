package services

import (
	"context"
	"log"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"gorm.io/gorm"
)

// ListTopics returns the controlled vocabulary, alphabetically.
func ListTopics(db *gorm.DB) ([]models.Topic, error) {
	var topics []models.Topic
	if err := db.Order("name ASC").Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// ClassifyRoadmap assigns vocabulary topics to a roadmap via the generation
// service. It is best effort: any failure is logged and swallowed, and an
// empty topic set is a valid outcome. Existing links are replaced.
func ClassifyRoadmap(ctx context.Context, db *gorm.DB, gen *Generator, roadmap *models.Roadmap) {
	content, err := models.ParseContent(roadmap.Content)
	if err != nil {
		log.Printf("Topic classification skipped for %s: %v", roadmap.ID, err)
		return
	}
	vocabulary, err := ListTopics(db)
	if err != nil {
		log.Printf("Topic classification skipped for %s: %v", roadmap.ID, err)
		return
	}

	matches, err := gen.ClassifyTopics(ctx, roadmap.Title, content, vocabulary)
	if err != nil {
		log.Printf("Topic classification failed for %s: %v", roadmap.ID, err)
		return
	}
	if len(matches) == 0 {
		return
	}

	bySlug := make(map[string]models.Topic, len(vocabulary))
	for _, t := range vocabulary {
		bySlug[t.Slug] = t
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("roadmap_id = ?", roadmap.ID).Delete(&models.RoadmapTopic{}).Error; err != nil {
			return err
		}
		for i, match := range matches {
			topic, ok := bySlug[match.Slug]
			if !ok {
				continue
			}
			link := models.RoadmapTopic{
				RoadmapID:  roadmap.ID,
				TopicID:    topic.ID,
				IsPrimary:  i == 0,
				Confidence: match.Confidence,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Topic classification write failed for %s: %v", roadmap.ID, err)
	}
}
