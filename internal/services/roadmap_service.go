package services

import (
	"errors"
	"fmt"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"github.com/belajaryuk/roadmap-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CreateRoadmap inserts a new draft roadmap together with its empty progress
// row in one transaction. Saves are idempotent on (user, title, content
// digest): a retried submission returns the existing record and deduped=true
// instead of inserting a duplicate.
func CreateRoadmap(db *gorm.DB, userID, title string, content interface{}) (*models.Roadmap, bool, error) {
	if title == "" {
		return nil, false, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	hash, err := utils.ContentHash(title, content)
	if err != nil {
		return nil, false, fmt.Errorf("%w: unencodable content", ErrInvalidInput)
	}

	// Only originals participate in dedup. A fork the user already holds
	// carries the same title and content but must never satisfy a fresh
	// save: the caller is owed a publishable draft.
	var existing models.Roadmap
	err = db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Preload("Progress").
		Where("user_id = ? AND title = ? AND content_hash = ? AND source_id IS NULL", userID, title, hash).
		First(&existing).Error
	if err == nil {
		return &existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	contentCol, err := models.MarshalJSONColumn(content)
	if err != nil {
		return nil, false, fmt.Errorf("%w: unencodable content", ErrInvalidInput)
	}
	emptyMap, err := models.MarshalJSONColumn(models.CompletionMap{})
	if err != nil {
		return nil, false, err
	}

	roadmap := models.Roadmap{
		UserID:      userID,
		Title:       title,
		Content:     contentCol,
		ContentHash: hash,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&roadmap).Error; err != nil {
			return err
		}
		progress := models.RoadmapProgress{
			RoadmapID:      roadmap.ID,
			CompletedTasks: emptyMap,
			Percent:        0,
		}
		if err := tx.Create(&progress).Error; err != nil {
			return err
		}
		roadmap.Progress = &progress
		return nil
	})
	if err != nil {
		// Two identical creates can race past the probe; the loser hits the
		// unique index and converges on the winner's row.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var winner models.Roadmap
			rErr := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
				Preload("Progress").
				Where("user_id = ? AND title = ? AND content_hash = ? AND source_id IS NULL", userID, title, hash).
				First(&winner).Error
			if rErr == nil {
				return &winner, true, nil
			}
		}
		return nil, false, err
	}

	return &roadmap, false, nil
}

// GetOwnedRoadmap fetches a roadmap by id, restricted to its owner.
func GetOwnedRoadmap(db *gorm.DB, roadmapID, userID string) (*models.Roadmap, error) {
	var roadmap models.Roadmap
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Preload("Progress").
		Preload("User").
		Where("id = ? AND user_id = ?", roadmapID, userID).
		First(&roadmap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &roadmap, nil
}

// ListOwnedRoadmaps returns the caller's roadmaps, newest first.
func ListOwnedRoadmaps(db *gorm.DB, userID string) ([]models.Roadmap, error) {
	var roadmaps []models.Roadmap
	err := db.Preload("Progress").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&roadmaps).Error
	if err != nil {
		return nil, err
	}
	return roadmaps, nil
}

// DeleteRoadmap hard-deletes an owned roadmap. Progress, ratings, aggregates,
// and topic links go with it; save rows pointing at it are removed so
// bookmarks never dangle.
func DeleteRoadmap(db *gorm.DB, roadmapID, userID string) error {
	roadmap, err := GetOwnedRoadmap(db, roadmapID, userID)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.RoadmapProgress{},
			&models.RoadmapRating{},
			&models.RoadmapAggregates{},
			&models.RoadmapSave{},
		} {
			if err := tx.Where("roadmap_id = ?", roadmap.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("roadmap_id = ?", roadmap.ID).Delete(&models.RoadmapTopic{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Roadmap{}, "id = ?", roadmap.ID).Error
	})
}

// ForkRoadmap clones a published roadmap into an independently progressable
// copy owned by the requesting user. The clone carries SourceID and therefore
// can never be published. The source's fork count is recomputed in the same
// transaction.
func ForkRoadmap(db *gorm.DB, sourceID, userID string) (*models.Roadmap, error) {
	var source models.Roadmap
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("id = ? AND published = ?", sourceID, true).
		First(&source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if source.UserID == userID {
		return nil, ErrOwnRoadmap
	}

	// Forking twice yields the first clone back; the clone's source-salted
	// hash makes the dedup index reject a second insert anyway.
	var existing models.Roadmap
	err = db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Preload("Progress").
		Where("user_id = ? AND source_id = ?", userID, source.ID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	emptyMap, err := models.MarshalJSONColumn(models.CompletionMap{})
	if err != nil {
		return nil, err
	}

	src := source.ID
	clone := models.Roadmap{
		UserID:      userID,
		Title:       source.Title,
		Content:     source.Content,
		ContentHash: utils.ForkHash(source.ID, source.ContentHash),
		SourceID:    &src,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&clone).Error; err != nil {
			return err
		}
		progress := models.RoadmapProgress{
			RoadmapID:      clone.ID,
			CompletedTasks: emptyMap,
			Percent:        0,
		}
		if err := tx.Create(&progress).Error; err != nil {
			return err
		}
		clone.Progress = &progress
		return RecomputeAggregates(tx, source.ID)
	})
	if err != nil {
		return nil, err
	}

	return &clone, nil
}

// SaveRoadmap bookmarks a published roadmap for the user. The upsert and the
// saves-count recompute happen in one transaction so the aggregate can never
// drift from the join table.
func SaveRoadmap(db *gorm.DB, roadmapID, userID string) error {
	var source models.Roadmap
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("id = ?", roadmapID).
		First(&source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !source.Published {
		return ErrNotPublished
	}
	if source.UserID == userID {
		return ErrOwnRoadmap
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var save models.RoadmapSave
		err := tx.Where("roadmap_id = ? AND user_id = ?", roadmapID, userID).
			First(&save).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			save = models.RoadmapSave{RoadmapID: roadmapID, UserID: userID}
			if err := tx.Create(&save).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return RecomputeAggregates(tx, roadmapID)
	})
}
